package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int
	// InitialDelay is the delay before the first retry (default: 1 second)
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff (default: 30 seconds)
	MaxDelay time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff (default: 2.0)
	BackoffMultiplier float64
	// Jitter is the upper bound of the random delay added to each backoff
	// to avoid synchronized retries across concurrent callers (default: 1 second)
	Jitter time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            1 * time.Second,
	}
}

// RetryClient wraps a Client and adds bounded exponential-backoff retry.
// Transient failures (per Classify) are retried up to MaxRetries; fatal
// failures are re-raised immediately without consuming a retry. The client
// is stateless across calls; retry state lives only for one invocation.
type RetryClient struct {
	client Client
	config *RetryConfig
}

// NewRetryClient creates a new retry client wrapper.
func NewRetryClient(client Client, config *RetryConfig) *RetryClient {
	if config == nil {
		config = DefaultRetryConfig()
	}
	// Ensure sensible defaults
	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 1 * time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.Jitter < 0 {
		config.Jitter = 0
	}

	return &RetryClient{
		client: client,
		config: config,
	}
}

// GenerateContent implements the Client interface with retry logic.
func (r *RetryClient) GenerateContent(ctx context.Context, prompt string) (*types.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		// If this is a retry, wait with exponential backoff
		if attempt > 0 {
			delay := r.calculateDelay(attempt)
			slog.Debug("retrying provider call",
				"provider", r.client.ID(),
				"attempt", attempt,
				"delay", delay,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
			}
		}

		resp, err := r.client.GenerateContent(ctx, prompt)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if Classify(err) != Retryable {
			// Fatal error, fail immediately
			return nil, err
		}
	}

	// All retries exhausted
	return nil, &ProviderError{
		Provider: r.client.ID(),
		Attempts: r.config.MaxRetries + 1,
		Err:      lastErr,
	}
}

// ID implements Client.
func (r *RetryClient) ID() types.ProviderID {
	return r.client.ID()
}

// Close implements Client.
func (r *RetryClient) Close() error {
	return r.client.Close()
}

// calculateDelay computes the backoff for a given retry attempt:
// min(InitialDelay * BackoffMultiplier^(attempt-1), MaxDelay) plus up to
// Jitter of random delay.
func (r *RetryClient) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffMultiplier, float64(attempt-1))

	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	if r.config.Jitter > 0 {
		delay += rand.Float64() * float64(r.config.Jitter)
	}

	return time.Duration(delay)
}
