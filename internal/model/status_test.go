package model

import "testing"

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{"", StatusPending},
		{StatusPending, StatusRendering},
		{StatusRendering, StatusSuccess},
		{StatusRendering, StatusReplaced},
		{StatusRendering, StatusFailed},
		{StatusPending, StatusFailed},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{StatusPending, StatusSuccess},
		{StatusSuccess, StatusRendering},
		{StatusFailed, StatusPending},
		{StatusReplaced, StatusPending},
		{"not_a_state", StatusPending},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestTransitionStatus_BlocksIllegalTransition(t *testing.T) {
	if _, err := TransitionStatus(StatusPending, StatusSuccess); err == nil {
		t.Fatalf("expected illegal transition error")
	}
	got, err := TransitionStatus(StatusRendering, StatusReplaced)
	if err != nil {
		t.Fatalf("transition failed unexpectedly: %v", err)
	}
	if got != StatusReplaced {
		t.Fatalf("expected %q, got %q", StatusReplaced, got)
	}
}

func TestJobResultSucceeded(t *testing.T) {
	if !(JobResult{Status: StatusSuccess}).Succeeded() {
		t.Fatal("success should count as succeeded")
	}
	if !(JobResult{Status: StatusReplaced}).Succeeded() {
		t.Fatal("replaced should count as succeeded")
	}
	if (JobResult{Status: StatusFailed}).Succeeded() {
		t.Fatal("failed should not count as succeeded")
	}
}
