package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

// RateLimiter enforces a minimum interval between permitted calls, derived
// from a requests-per-minute budget. State lives for the lifetime of the
// owning provider instance; the mutex makes Acquire safe when multiple
// orchestration calls share one provider.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastCall    time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute calls.
// Non-positive values disable throttling.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	var interval time.Duration
	if requestsPerMinute > 0 {
		interval = time.Minute / time.Duration(requestsPerMinute)
	}
	return &RateLimiter{minInterval: interval}
}

// Acquire suspends the caller until the minimum inter-call interval has
// elapsed since the last permitted call, then stamps now as the last
// permitted time. A waiter that wakes rechecks against the possibly-advanced
// timestamp before being admitted, so concurrent callers come out one
// interval apart. Waiting is interrupted by context cancellation, in which
// case the timestamp is not advanced.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	for {
		now := time.Now()
		wait := l.minInterval - now.Sub(l.lastCall)
		if wait <= 0 {
			l.lastCall = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled waiting for rate limiter: %w", ctx.Err())
		}

		l.mu.Lock()
	}
}

// MinInterval returns the enforced inter-call interval.
func (l *RateLimiter) MinInterval() time.Duration {
	return l.minInterval
}

// RateLimitedClient wraps a Client so every call first acquires the
// provider's rate limiter.
type RateLimitedClient struct {
	client  Client
	limiter *RateLimiter
}

// NewRateLimitedClient creates a rate limited client wrapper.
func NewRateLimitedClient(client Client, requestsPerMinute int) *RateLimitedClient {
	return &RateLimitedClient{
		client:  client,
		limiter: NewRateLimiter(requestsPerMinute),
	}
}

// GenerateContent implements Client, throttling before delegating.
func (c *RateLimitedClient) GenerateContent(ctx context.Context, prompt string) (*types.Response, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return c.client.GenerateContent(ctx, prompt)
}

// ID implements Client.
func (c *RateLimitedClient) ID() types.ProviderID {
	return c.client.ID()
}

// Close implements Client.
func (c *RateLimitedClient) Close() error {
	return c.client.Close()
}
