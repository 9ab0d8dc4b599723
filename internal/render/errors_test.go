package render

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestReasonMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("navigate: %w", ErrBackendUnreachable), ReasonBackendUnreachable},
		{fmt.Errorf("budget: %w", ErrTimeout), ReasonTimeout},
		{context.DeadlineExceeded, ReasonTimeout},
		{invalidInput("no nodes"), ReasonInvalidInput},
		{renderError("iframe missing"), ReasonRenderError},
		{errors.New("something else entirely"), ReasonRenderError},
	}
	for _, tc := range cases {
		if got := Reason(tc.err); got != tc.want {
			t.Fatalf("Reason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestClassifyConnectionFailures(t *testing.T) {
	err := classify(context.Background(), errors.New(`page load error net::ERR_CONNECTION_REFUSED`))
	if !errors.Is(err, ErrBackendUnreachable) {
		t.Fatalf("expected backend unreachable, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()
	err = classify(ctx, errors.New("tab closed"))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	err = classify(context.Background(), errors.New("tab crashed"))
	if !errors.Is(err, ErrRender) {
		t.Fatalf("expected render error, got %v", err)
	}
}

func TestValidatePayload(t *testing.T) {
	if err := ValidatePayload(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty payload, got %v", err)
	}
	if err := ValidatePayload([]byte(`[1, 2]`)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for non-object, got %v", err)
	}
	if err := ValidatePayload([]byte(`{"name": "x"}`)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input without nodes, got %v", err)
	}
	if err := ValidatePayload([]byte(`{"name": "x", "nodes": []}`)); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}
