package model

import "fmt"

// Job result statuses. Replaced is a success whose output path already
// contained a prior artifact that was overwritten.
const (
	StatusPending   = "pending"
	StatusRendering = "rendering"
	StatusSuccess   = "success"
	StatusReplaced  = "replaced"
	StatusFailed    = "failed"
)

var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusPending: true,
	},
	StatusPending: {
		StatusPending:   true,
		StatusRendering: true,
		StatusFailed:    true,
	},
	StatusRendering: {
		StatusRendering: true,
		StatusSuccess:   true,
		StatusReplaced:  true,
		StatusFailed:    true,
	},
	// Terminal states. Re-running a folder builds a fresh queue, it never
	// mutates results from a finished run.
	StatusSuccess:  {StatusSuccess: true},
	StatusReplaced: {StatusReplaced: true},
	StatusFailed:   {StatusFailed: true},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionStatus(from, to string) (string, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("invalid job status transition: %q -> %q", from, to)
	}
	return to, nil
}
