package provider

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Classification
	}{
		{"nil error", nil, Fatal},
		{"rate limit", errors.New("rate limit exceeded"), Retryable},
		{"quota", errors.New("insufficient quota for this request"), Retryable},
		{"timeout", errors.New("connection timeout"), Retryable},
		{"503", errors.New("503 service unavailable"), Retryable},
		{"429", errors.New("429 too many requests"), Retryable},
		{"500", errors.New("500 internal server error"), Retryable},
		{"case insensitive", errors.New("Rate Limit reached"), Retryable},
		{"wrapped retryable", fmt.Errorf("call failed: %w", errors.New("request timeout")), Retryable},
		{"400 bad request", errors.New("400 bad request"), Fatal},
		{"401 unauthorized", errors.New("401 unauthorized"), Fatal},
		{"invalid api key", errors.New("invalid api key"), Fatal},
		{"malformed prompt", errors.New("prompt exceeds maximum length"), Fatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	underlying := errors.New("503 service unavailable")
	err := &ProviderError{
		Provider: types.ProviderHighThroughput,
		Attempts: 4,
		Err:      underlying,
	}

	if !strings.Contains(err.Error(), "high_throughput") {
		t.Errorf("expected provider role in message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "4 attempts") {
		t.Errorf("expected attempt count in message, got %q", err.Error())
	}

	if !errors.Is(err, underlying) {
		t.Error("expected errors.Is to find the underlying error")
	}

	if !errors.Is(err, &ProviderError{}) {
		t.Error("expected errors.Is to match the ProviderError type")
	}

	var target *ProviderError
	if !errors.As(err, &target) {
		t.Fatal("expected errors.As to extract *ProviderError")
	}
	if target.Attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", target.Attempts)
	}
}
