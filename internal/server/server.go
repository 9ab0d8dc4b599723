// Package server hosts the local render backend: a small HTTP server that
// serves an HTML page embedding the n8n-demo web component, which the
// headless browser screenshots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Server struct {
	port int
	log  zerolog.Logger
	http *http.Server
}

type Options struct {
	Port   int
	Logger zerolog.Logger
}

func New(opts Options) *Server {
	s := &Server{
		port: opts.Port,
		log:  opts.Logger,
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(opts.Logger))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/render", s.handleRender)
	r.Post("/render", s.handleRender)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.port)
}

// Start binds the listener and serves in a background goroutine. Binding
// synchronously means a port conflict surfaces here, not as a later
// backend-unreachable failure.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	s.log.Info().Str("addr", s.http.Addr).Msg("render backend listening")
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("render backend stopped unexpectedly")
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "n8n-snap workflow renderer",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"port":   s.port,
	})
}

type renderRequest struct {
	Workflow json.RawMessage `json:"workflow"`
	Dark     bool            `json:"dark"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
}

// handleRender accepts the workflow either as a URL-encoded query parameter
// (small workflows) or as a POST body (large ones) and returns the page the
// browser screenshots.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var workflowJSON string
	dark := false
	width, height := 1920, 1080

	if r.Method == http.MethodPost {
		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body", "details": err.Error()})
			return
		}
		if len(req.Workflow) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no workflow data provided"})
			return
		}
		workflowJSON = string(req.Workflow)
		dark = req.Dark
		if req.Width > 0 {
			width = req.Width
		}
		if req.Height > 0 {
			height = req.Height
		}
	} else {
		q := r.URL.Query()
		workflowJSON = q.Get("workflow")
		if workflowJSON == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no workflow data provided"})
			return
		}
		dark = q.Get("dark") == "true"
		if v, err := strconv.Atoi(q.Get("width")); err == nil && v > 0 {
			width = v
		}
		if v, err := strconv.Atoi(q.Get("height")); err == nil && v > 0 {
			height = v
		}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(workflowJSON), &doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workflow JSON", "details": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := rendererTemplate.Execute(w, rendererPage{
		WorkflowJSON: workflowJSON,
		DarkMode:     dark,
		Width:        width,
		Height:       height,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("render template failed")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

type rendererPage struct {
	WorkflowJSON string
	DarkMode     bool
	Width        int
	Height       int
}

var rendererTemplate = template.Must(template.New("workflow-renderer").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>n8n-snap renderer</title>
  <script type="module" src="https://cdn.jsdelivr.net/npm/@n8n_io/n8n-demo-component@latest/n8n-demo.bundled.js"></script>
  <style>
    html, body {
      margin: 0;
      padding: 0;
      background: {{if .DarkMode}}#2d2e3a{{else}}#ffffff{{end}};
    }
    n8n-demo {
      display: block;
      width: {{.Width}}px;
      height: {{.Height}}px;
    }
  </style>
</head>
<body>
  <n8n-demo workflow="{{.WorkflowJSON}}" frame="true" clicktointeract="false" hidecanvaserrors="true" disableinteractivity="true"{{if .DarkMode}} theme="dark"{{end}}></n8n-demo>
</body>
</html>
`))
