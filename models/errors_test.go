package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	base := NewHarvestError(ErrCodeBlocked, "challenge page detected", nil)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"direct", base, ErrCodeBlocked},
		{"wrapped once", fmt.Errorf("query failed: %w", base), ErrCodeBlocked},
		{"wrapped twice", fmt.Errorf("run: %w", fmt.Errorf("query: %w", base)), ErrCodeBlocked},
		{"plain error", errors.New("boom"), ErrCodeInternal},
		{"nil", nil, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHarvestError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	he := NewHarvestError(ErrCodeNavigation, "navigation to ad library failed", inner)
	if !errors.Is(he, inner) {
		t.Error("wrapped error not reachable via errors.Is")
	}
}
