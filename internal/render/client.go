package render

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"n8n-snap/internal/model"
)

// Client is the opaque render capability the batch engine drives: one call
// per job, safe for concurrent use from multiple workers.
type Client interface {
	// Render turns one workflow document into PNG bytes, or fails with one
	// of the taxonomy errors (ErrBackendUnreachable, ErrTimeout,
	// ErrInvalidInput, ErrRender).
	Render(ctx context.Context, workflow []byte, cfg model.RenderConfig) ([]byte, error)
}

// ValidatePayload rejects payloads the backend cannot render before a
// browser tab is spent on them.
func ValidatePayload(workflow []byte) error {
	if len(workflow) == 0 {
		return invalidInput("empty workflow document")
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(workflow, &doc); err != nil {
		return invalidInput("workflow is not a JSON object: %v", err)
	}
	if _, ok := doc["nodes"]; !ok {
		return invalidInput("workflow has no nodes field")
	}
	return nil
}

// WaitForBackend polls the backend health endpoint until it answers or the
// context expires. Used once at run start so the first job does not eat the
// server's boot time.
func WaitForBackend(ctx context.Context, serverURL string) error {
	healthURL := serverURL + "/health"
	client := &http.Client{Timeout: 2 * time.Second}

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: backend did not become healthy at %s", ErrBackendUnreachable, healthURL)
		case <-tick.C:
		}
	}
}
