package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(Options{Port: 5000, Logger: zerolog.Nop()})
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("unexpected health body: %s", rec.Body.String())
	}
}

func TestRenderGetServesWorkflowPage(t *testing.T) {
	s := newTestServer(t)

	q := url.Values{}
	q.Set("workflow", `{"name":"wf","nodes":[]}`)
	q.Set("dark", "true")
	q.Set("width", "800")
	q.Set("height", "600")

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/render?"+q.Encode(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<n8n-demo") {
		t.Fatalf("expected n8n-demo component in page")
	}
	if !strings.Contains(body, "width: 800px") || !strings.Contains(body, "height: 600px") {
		t.Fatalf("expected viewport dimensions in page, got: %s", body)
	}
	if !strings.Contains(body, `theme="dark"`) {
		t.Fatalf("expected dark theme attribute")
	}
}

func TestRenderPostServesWorkflowPage(t *testing.T) {
	s := newTestServer(t)

	body := `{"workflow": {"name":"wf","nodes":[]}, "width": 1024, "height": 768}`
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "width: 1024px") {
		t.Fatalf("expected POST dimensions in page")
	}
}

func TestRenderRejectsMissingAndMalformedWorkflow(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/render", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing workflow, got %d", rec.Code)
	}

	q := url.Values{}
	q.Set("workflow", `not json`)
	rec = httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/render?"+q.Encode(), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed workflow, got %d", rec.Code)
	}
}
