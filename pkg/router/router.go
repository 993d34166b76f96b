// Package router decides which content provider handles which piece of work.
//
// Per-chunk routing spends a bounded budget of high-fidelity calls on the
// sections where reasoning quality matters (endpoints, safety, eligibility
// criteria); everything else goes to the high-throughput provider. A coarse
// analogue applies to whole documents: small documents go to the
// high-fidelity provider wholesale, large ones to high-throughput with an
// optional bounded enhancement pass afterwards.
package router

import (
	"strings"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

// Hand-tuned defaults preserved as configuration rather than hard-coded at
// call sites.
const (
	// DefaultMaxHighFidelityChunks caps high-fidelity assignments per document.
	DefaultMaxHighFidelityChunks = 3
	// DefaultPerChunkCeiling is the largest chunk the high-fidelity provider accepts.
	DefaultPerChunkCeiling = 12000
	// DefaultWholeDocumentThreshold is the total-token cutoff below which a
	// document defaults to the high-fidelity provider wholesale.
	DefaultWholeDocumentThreshold = 80000
)

// DefaultCriticalSections are the section-name keywords that mark a chunk as
// worth a high-fidelity call.
var DefaultCriticalSections = []string{
	"endpoints",
	"safety",
	"inclusion",
	"exclusion",
	"primary",
	"secondary",
}

// Budget is the per-document cap on routing to the costlier provider.
type Budget struct {
	// MaxHighFidelityChunks caps how many chunks may be routed high-fidelity.
	MaxHighFidelityChunks int
	// PerChunkCeiling is the largest token count eligible for high-fidelity.
	PerChunkCeiling int
}

// DefaultBudget returns the default routing budget.
func DefaultBudget() Budget {
	return Budget{
		MaxHighFidelityChunks: DefaultMaxHighFidelityChunks,
		PerChunkCeiling:       DefaultPerChunkCeiling,
	}
}

// State carries the running counters for one document. It is mutated across
// the chunk loop without locking, which is why chunk processing is strictly
// sequential; parallel chunk processing would require synchronizing this.
type State struct {
	// HighFidelityUsed counts high-fidelity assignments made so far.
	HighFidelityUsed int
}

// Router assigns chunks and whole documents to provider roles.
type Router struct {
	criticalSections  []string
	wholeDocThreshold int
}

// Option configures a Router.
type Option func(*Router)

// WithCriticalSections overrides the critical-section keyword set.
func WithCriticalSections(keywords []string) Option {
	return func(r *Router) {
		if len(keywords) > 0 {
			r.criticalSections = keywords
		}
	}
}

// WithWholeDocumentThreshold overrides the whole-document token threshold.
func WithWholeDocumentThreshold(tokens int) Option {
	return func(r *Router) {
		if tokens > 0 {
			r.wholeDocThreshold = tokens
		}
	}
}

// New creates a Router with the default keyword set and threshold.
func New(opts ...Option) *Router {
	r := &Router{
		criticalSections:  DefaultCriticalSections,
		wholeDocThreshold: DefaultWholeDocumentThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Assign decides which provider processes a chunk. It is called once per
// chunk in document order. Policy, evaluated in order:
//
//  1. budget exhausted: high-throughput
//  2. caller prefers high-throughput: high-throughput (explicit override)
//  3. chunk fits the ceiling AND (critical section OR caller prefers
//     high-fidelity): high-fidelity, consuming budget
//  4. otherwise: high-throughput
func (r *Router) Assign(chunk types.Chunk, state *State, budget Budget, preference types.ProviderID) types.ProviderID {
	if state.HighFidelityUsed >= budget.MaxHighFidelityChunks {
		return types.ProviderHighThroughput
	}

	if preference == types.ProviderHighThroughput {
		return types.ProviderHighThroughput
	}

	if chunk.TokenCount <= budget.PerChunkCeiling &&
		(r.IsCriticalSection(chunk.SectionName) || preference == types.ProviderHighFidelity) {
		state.HighFidelityUsed++
		return types.ProviderHighFidelity
	}

	return types.ProviderHighThroughput
}

// RouteDocument applies the coarse whole-document rule: documents under the
// threshold default to high-fidelity unless the caller prefers otherwise;
// larger documents go to high-throughput wholesale.
func (r *Router) RouteDocument(analysis *types.DocumentAnalysis, preference types.ProviderID) types.ProviderID {
	if preference == types.ProviderHighThroughput {
		return types.ProviderHighThroughput
	}

	if analysis.TotalTokens < r.wholeDocThreshold {
		return types.ProviderHighFidelity
	}

	return types.ProviderHighThroughput
}

// IsCriticalSection reports whether a section name matches the configured
// keyword set. Matching is case-insensitive and substring-based, so
// "Primary Endpoints" matches both "primary" and "endpoints".
func (r *Router) IsCriticalSection(sectionName string) bool {
	name := strings.ToLower(sectionName)
	for _, keyword := range r.criticalSections {
		if strings.Contains(name, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
