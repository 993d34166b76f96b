package dmpbuilder

import (
	"fmt"
	"time"

	"github.com/sahasand/dmpbuilder/pkg/chunker"
	"github.com/sahasand/dmpbuilder/pkg/config"
	"github.com/sahasand/dmpbuilder/pkg/orchestrator"
	"github.com/sahasand/dmpbuilder/pkg/provider"
	"github.com/sahasand/dmpbuilder/pkg/router"
	"github.com/sahasand/dmpbuilder/pkg/types"
)

// Client wires the two provider stacks, the chunker, and the router into an
// orchestrator. Provider instances are constructed explicitly from
// configuration rather than as process-wide singletons, so tests can inject
// fakes through NewClientWithProviders.
type Client struct {
	orch    *orchestrator.Orchestrator
	tracker *provider.ParquetUsageTracker
}

// NewClient builds a Client from configuration. Each provider role gets its
// own rate limiter and retry controller; circuit breaking and usage
// telemetry are layered on when enabled.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var tracker *provider.ParquetUsageTracker
	if cfg.Telemetry.Enabled {
		var err error
		tracker, err = provider.NewUsageTracker(cfg.Telemetry.ParquetPath)
		if err != nil {
			return nil, fmt.Errorf("usage tracker: %w", err)
		}
	}

	highFidelity, err := buildProviderStack(cfg, types.ProviderHighFidelity, tracker)
	if err != nil {
		return nil, err
	}
	highThroughput, err := buildProviderStack(cfg, types.ProviderHighThroughput, tracker)
	if err != nil {
		return nil, err
	}

	rt := router.New(
		router.WithCriticalSections(cfg.Routing.CriticalSections),
		router.WithWholeDocumentThreshold(cfg.Routing.WholeDocumentTokenThreshold),
	)
	ch := chunker.NewHeuristic(cfg.Routing.WholeDocumentTokenThreshold)

	return &Client{
		orch:    orchestrator.New(highFidelity, highThroughput, ch, ch, rt),
		tracker: tracker,
	}, nil
}

// NewClientWithProviders builds a Client around caller-supplied provider
// clients, bypassing the resilience stack construction. Intended for tests
// and for callers that assemble their own wrappers.
func NewClientWithProviders(highFidelity, highThroughput provider.Client, cfg *config.Config) *Client {
	var rt *router.Router
	threshold := 0
	if cfg != nil {
		rt = router.New(
			router.WithCriticalSections(cfg.Routing.CriticalSections),
			router.WithWholeDocumentThreshold(cfg.Routing.WholeDocumentTokenThreshold),
		)
		threshold = cfg.Routing.WholeDocumentTokenThreshold
	} else {
		rt = router.New()
	}
	ch := chunker.NewHeuristic(threshold)

	return &Client{
		orch: orchestrator.New(highFidelity, highThroughput, ch, ch, rt),
	}
}

// Orchestrator returns the composed orchestrator. The generic entry points
// (ProcessWholeDocument, ProcessChunked, EnhanceCriticalSections) are
// package-level functions in pkg/orchestrator and take this value.
func (c *Client) Orchestrator() *orchestrator.Orchestrator {
	return c.orch
}

// DefaultOptions derives per-call options from configuration.
func (c *Client) DefaultOptions(cfg *config.Config) *orchestrator.Options {
	opts := &orchestrator.Options{}
	if cfg != nil {
		opts.MaxHighFidelityChunks = cfg.Routing.MaxHighFidelityChunks
		opts.PerChunkCeiling = cfg.Routing.PerChunkTokenCeiling
	}
	return opts
}

// Close releases provider resources and flushes any buffered telemetry.
func (c *Client) Close() error {
	err := c.orch.Close()
	if c.tracker != nil {
		if ferr := c.tracker.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}

// buildProviderStack assembles base client -> rate limiter -> retry ->
// optional breaker -> optional usage tracking for one provider role.
func buildProviderStack(cfg *config.Config, role types.ProviderID, tracker *provider.ParquetUsageTracker) (provider.Client, error) {
	pc, ok := cfg.Providers[string(role)]
	if !ok {
		return nil, fmt.Errorf("no configuration for provider %s", role)
	}

	genCfg := provider.NewGenerationConfig().
		WithModel(pc.Model).
		WithBaseURL(pc.BaseURL)
	if pc.MaxTokens > 0 {
		genCfg.WithMaxTokens(pc.MaxTokens)
	}
	if pc.Temperature > 0 {
		genCfg.WithTemperature(pc.Temperature)
	}

	base, err := provider.NewOpenAIClient(pc.APIKey, role, *genCfg)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", role, err)
	}

	var client provider.Client = provider.NewRateLimitedClient(base, pc.RequestsPerMinute)

	client = provider.NewRetryClient(client, &provider.RetryConfig{
		MaxRetries:        cfg.Retry.MaxRetries,
		InitialDelay:      time.Duration(cfg.Retry.InitialDelayMs) * time.Millisecond,
		MaxDelay:          time.Duration(cfg.Retry.MaxDelayMs) * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            time.Duration(cfg.Retry.JitterMs) * time.Millisecond,
	})

	if cfg.CircuitBreaker.Enabled {
		client = provider.NewCircuitBreakerClient(client, &provider.BreakerConfig{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         time.Duration(cfg.CircuitBreaker.Interval) * time.Second,
			Timeout:          time.Duration(cfg.CircuitBreaker.Timeout) * time.Second,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		})
	}

	if tracker != nil {
		client = provider.NewUsageTrackingClient(client, tracker)
	}

	return client, nil
}
