// Package orchestrator is the top-level facade of the generation core. One
// orchestration call moves through
//
//	INIT -> STRATEGY_SELECT -> {WHOLE_DOCUMENT | CHUNKED}
//	     -> (per unit: ROUTE -> PROVIDER_CALL -> RECONCILE) -> MERGE -> DONE
//
// In chunked mode units are processed strictly sequentially in chunk order:
// the router's budget counter and the usage metrics are mutated across the
// loop without locking. Parallel chunk processing would require
// synchronizing both; that is a required change, not an optimization, if it
// is ever added.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sahasand/dmpbuilder/pkg/chunker"
	"github.com/sahasand/dmpbuilder/pkg/merge"
	"github.com/sahasand/dmpbuilder/pkg/provider"
	"github.com/sahasand/dmpbuilder/pkg/router"
	"github.com/sahasand/dmpbuilder/pkg/types"
)

// ProcessFunc turns one unit of source text into a partial structured
// result using the routed provider client. Prompt construction and
// reconciliation belong to the caller; the orchestrator only routes,
// sequences, and tallies.
type ProcessFunc[T any] func(ctx context.Context, client provider.Client, content string) (T, error)

// EnhanceFunc re-processes one extracted section with the high-fidelity
// provider and returns a field overlay for the base result. Returning an
// error skips the section; the base value is kept.
type EnhanceFunc[T any] func(ctx context.Context, client provider.Client, section types.Section) (func(base T) T, error)

// Orchestrator composes the router, chunker, and the two provider stacks.
// All per-call state (budget counters, metrics) is created at the start of
// an orchestration call and discarded at its end.
type Orchestrator struct {
	providers map[types.ProviderID]provider.Client
	chunker   chunker.Chunker
	sections  chunker.SectionExtractor
	router    *router.Router
}

// New creates an Orchestrator. The section extractor may be nil when the
// enhancement pass is not used.
func New(highFidelity, highThroughput provider.Client, ch chunker.Chunker, sections chunker.SectionExtractor, rt *router.Router) *Orchestrator {
	if rt == nil {
		rt = router.New()
	}
	return &Orchestrator{
		providers: map[types.ProviderID]provider.Client{
			types.ProviderHighFidelity:   highFidelity,
			types.ProviderHighThroughput: highThroughput,
		},
		chunker:  ch,
		sections: sections,
		router:   rt,
	}
}

// Router exposes the configured router, primarily for callers that need the
// critical-section predicate.
func (o *Orchestrator) Router() *router.Router {
	return o.router
}

// Client returns the provider client for a role.
func (o *Orchestrator) Client(id types.ProviderID) provider.Client {
	return o.providers[id]
}

// Close closes both provider stacks.
func (o *Orchestrator) Close() error {
	var firstErr error
	for id, client := range o.providers {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", id, err)
		}
	}
	return firstErr
}

// ProcessWholeDocument processes a document as a single unit. The whole
// document routes to one provider: under the token threshold it defaults to
// high-fidelity, otherwise to high-throughput, with the caller's preference
// honored either way.
func ProcessWholeDocument[T any](ctx context.Context, o *Orchestrator, text string, processFn ProcessFunc[T], opts *Options) (T, *types.UsageMetrics, error) {
	var zero T
	options := opts.withDefaults()
	metrics := types.NewUsageMetrics()
	start := time.Now()

	analysis, err := o.chunker.AnalyzeDocument(ctx, text, types.DocTypeGeneric)
	if err != nil {
		return zero, metrics, fmt.Errorf("document analysis failed: %w", err)
	}

	providerID := o.router.RouteDocument(analysis, options.PreferredProvider)
	slog.Info("processing whole document",
		"provider", providerID,
		"total_tokens", analysis.TotalTokens,
	)

	result, err := processFn(ctx, o.providers[providerID], text)
	if err != nil {
		return zero, metrics, err
	}

	metrics.Record(providerID)
	metrics.TotalChunks = 1
	metrics.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, metrics, nil
}

// ProcessChunked splits a document and processes each chunk with the
// provider the router assigns, strictly sequentially in chunk order, then
// merges the partial results. An unrecoverable provider error on any chunk
// fails the whole call; there is no partial-document success path.
func ProcessChunked[T, R any](ctx context.Context, o *Orchestrator, text string, docType types.DocType, processFn ProcessFunc[T], mergeFn merge.MergeFunc[T, R], opts *Options) (R, *types.UsageMetrics, error) {
	var zero R
	options := opts.withDefaults()
	metrics := types.NewUsageMetrics()
	start := time.Now()

	chunks, err := o.chunker.ChunkDocument(ctx, text, docType, chunker.ChunkOptions{
		MaxTokensPerChunk:  options.MaxTokensPerChunk,
		ProviderPreference: options.PreferredProvider,
	})
	if err != nil {
		return zero, metrics, fmt.Errorf("chunking failed: %w", err)
	}

	budget := options.budget()
	state := &router.State{}
	partials := make([]T, 0, len(chunks))

	for _, chunk := range chunks {
		providerID := o.router.Assign(chunk, state, budget, options.PreferredProvider)
		slog.Debug("processing chunk",
			"position", chunk.Position,
			"section", chunk.SectionName,
			"tokens", chunk.TokenCount,
			"provider", providerID,
		)

		partial, err := processFn(ctx, o.providers[providerID], chunk.Content)
		if err != nil {
			return zero, metrics, fmt.Errorf("chunk %d (%s) failed: %w", chunk.Position, chunk.SectionName, err)
		}

		partials = append(partials, partial)
		metrics.Record(providerID)
		metrics.TotalChunks++
	}

	result, err := merge.Chunks(chunks, partials, mergeFn)
	if err != nil {
		return zero, metrics, err
	}

	metrics.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result, metrics, nil
}

// EnhanceCriticalSections re-processes a bounded subset of critical sections
// with the high-fidelity provider and overlays the resulting field updates
// onto the base result. A section whose re-processing fails is skipped and
// its field keeps the base value; enhancement never reduces the completeness
// of the base result. Applied section names are returned and, when metrics
// is non-nil, accumulated onto it; every attempted section counts one
// high-fidelity call whether or not its overlay is applied.
func EnhanceCriticalSections[T any](ctx context.Context, o *Orchestrator, base T, originalText string, enhanceFn EnhanceFunc[T], opts *Options, metrics *types.UsageMetrics) (T, []string, error) {
	options := opts.withDefaults()

	if o.sections == nil {
		return base, nil, nil
	}

	var critical []types.Section
	for _, section := range o.sections.ExtractSections(originalText) {
		if o.router.IsCriticalSection(section.Name) {
			critical = append(critical, section)
		}
	}
	if len(critical) > options.MaxHighFidelityChunks {
		critical = critical[:options.MaxHighFidelityChunks]
	}
	if len(critical) == 0 {
		return base, nil, nil
	}

	client := o.providers[types.ProviderHighFidelity]
	updates := make([]merge.FieldUpdate[T], 0, len(critical))

	for _, section := range critical {
		apply, err := enhanceFn(ctx, client, section)
		// Every attempted section counts as a high-fidelity call, applied or
		// not, so metrics reflect actual provider traffic.
		if metrics != nil {
			metrics.Record(types.ProviderHighFidelity)
		}
		if err != nil {
			// Not applied: the base value stands for this section.
			slog.Warn("section enhancement skipped",
				"section", section.Name,
				"error", err,
			)
			updates = append(updates, merge.FieldUpdate[T]{Section: section.Name})
			continue
		}
		updates = append(updates, merge.FieldUpdate[T]{Section: section.Name, Apply: apply})
	}

	result, applied := merge.Enhance(base, updates)
	if metrics != nil {
		metrics.EnhancedSections = append(metrics.EnhancedSections, applied...)
	}
	return result, applied, nil
}
