package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure taxonomy for a single render call. Per-job failures are always
// recovered by the worker pool; these sentinels only classify the reason
// recorded in the status report.
var (
	// ErrBackendUnreachable means the render backend could not be reached
	// at all (server not running, connection refused). Not retried within
	// a run.
	ErrBackendUnreachable = errors.New("render backend unreachable")

	// ErrTimeout means the render exceeded its configured budget.
	ErrTimeout = errors.New("render timed out")

	// ErrInvalidInput means the workflow payload was malformed or
	// unreadable.
	ErrInvalidInput = errors.New("invalid workflow input")

	// ErrRender means the backend reported an internal rendering failure.
	ErrRender = errors.New("render failed")
)

// Reason codes as they appear in the persisted status report.
const (
	ReasonBackendUnreachable = "backend_unreachable"
	ReasonTimeout            = "timeout"
	ReasonInvalidInput       = "invalid_input"
	ReasonRenderError        = "render_error"
	ReasonIOError            = "io_error"
)

// Reason maps a render failure to its report reason code.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrBackendUnreachable):
		return ReasonBackendUnreachable
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	default:
		return ReasonRenderError
	}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func renderError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRender, fmt.Sprintf(format, args...))
}

// classify wraps a raw browser error with the matching sentinel so callers
// can use errors.Is on the taxonomy instead of matching strings.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "ERR_CONNECTION_REFUSED") ||
		strings.Contains(msg, "ERR_CONNECTION_RESET") ||
		strings.Contains(msg, "ERR_ADDRESS_UNREACHABLE") ||
		strings.Contains(msg, "connection refused") {
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	return fmt.Errorf("%w: %v", ErrRender, err)
}
