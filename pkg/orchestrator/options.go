package orchestrator

import (
	"github.com/sahasand/dmpbuilder/pkg/chunker"
	"github.com/sahasand/dmpbuilder/pkg/router"
	"github.com/sahasand/dmpbuilder/pkg/types"
)

// ChunkingStrategy tunes how aggressively documents are split.
type ChunkingStrategy string

const (
	// StrategyDefault uses the configured per-chunk token ceiling as-is.
	StrategyDefault ChunkingStrategy = "default"
	// StrategyConservative halves the per-chunk token ceiling.
	StrategyConservative ChunkingStrategy = "conservative"
)

// Options configure one orchestration call.
type Options struct {
	// PreferredProvider biases routing. Empty means no preference.
	PreferredProvider types.ProviderID

	// MaxHighFidelityChunks caps high-fidelity routing per document (default 3).
	MaxHighFidelityChunks int

	// PerChunkCeiling is the largest chunk eligible for high-fidelity routing.
	PerChunkCeiling int

	// MaxTokensPerChunk is passed to the chunker.
	MaxTokensPerChunk int

	// ChunkingStrategy selects the splitting aggressiveness.
	ChunkingStrategy ChunkingStrategy
}

// withDefaults returns a copy of the options with defaults applied. A nil
// receiver yields all defaults.
func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.MaxHighFidelityChunks <= 0 {
		opts.MaxHighFidelityChunks = router.DefaultMaxHighFidelityChunks
	}
	if opts.PerChunkCeiling <= 0 {
		opts.PerChunkCeiling = router.DefaultPerChunkCeiling
	}
	if opts.MaxTokensPerChunk <= 0 {
		opts.MaxTokensPerChunk = chunker.DefaultMaxTokensPerChunk
	}
	if opts.ChunkingStrategy == "" {
		opts.ChunkingStrategy = StrategyDefault
	}
	if opts.ChunkingStrategy == StrategyConservative {
		opts.MaxTokensPerChunk /= 2
	}
	return opts
}

// budget derives the routing budget from the options.
func (o Options) budget() router.Budget {
	return router.Budget{
		MaxHighFidelityChunks: o.MaxHighFidelityChunks,
		PerChunkCeiling:       o.PerChunkCeiling,
	}
}
