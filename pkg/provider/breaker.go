package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/sahasand/dmpbuilder/pkg/types"
	"github.com/sony/gobreaker"
)

// BreakerConfig holds configuration for circuit breaking.
type BreakerConfig struct {
	// MaxRequests allowed while half-open.
	MaxRequests uint32
	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// ReadyToTripRatio is the failure ratio that opens the circuit.
	ReadyToTripRatio float64
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		ReadyToTripRatio: 0.6,
	}
}

// CircuitBreakerClient wraps a Client with circuit breaking so a provider in
// sustained failure stops being hammered while its retry budget burns.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

// NewCircuitBreakerClient creates a new circuit breaker client.
func NewCircuitBreakerClient(client Client, cfg *BreakerConfig) *CircuitBreakerClient {
	if cfg == nil {
		cfg = DefaultBreakerConfig()
	}

	st := gobreaker.Settings{
		Name:        string(client.ID()),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				"provider", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &CircuitBreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(st),
	}
}

// GenerateContent implements Client.
func (c *CircuitBreakerClient) GenerateContent(ctx context.Context, prompt string) (*types.Response, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.GenerateContent(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*types.Response), nil
}

// ID implements Client.
func (c *CircuitBreakerClient) ID() types.ProviderID {
	return c.client.ID()
}

// Close implements Client.
func (c *CircuitBreakerClient) Close() error {
	return c.client.Close()
}
