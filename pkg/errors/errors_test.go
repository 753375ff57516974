package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config sentinel", ErrInvalidConfig, ExitConfig},
		{"wrapped config", fmt.Errorf("building engine: %w", ErrInvalidConfig), ExitConfig},
		{"stopwords", fmt.Errorf("loading: %w", ErrStopwordsUnreadable), ExitConfig},
		{"no documents", ErrNoDocuments, ExitNoDocuments},
		{"app error wins", New(ErrSinkUnavailable, 7, "redis down"), 7},
		{"wrapped app error", fmt.Errorf("render: %w", Configf("engine.maxQueueSize", "must be positive")), ExitConfig},
		{"unknown", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestConfigfMessage(t *testing.T) {
	err := Configf("engine.wordsPerFrame", "must be positive, got %d", 0)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	want := "invalid configuration: engine.wordsPerFrame: must be positive, got 0"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
