// Package merge combines partial results into one document-shaped value
// without disturbing untouched fields.
package merge

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

// ErrInputMismatch signals a programming-contract violation: the number of
// partial results does not equal the number of chunks produced. It is fatal,
// never retried and never silently corrected.
var ErrInputMismatch = errors.New("merge input count does not match chunk count")

// MergeFunc combines ordered per-chunk partial results into one value.
type MergeFunc[T, R any] func(partials []T) (R, error)

// Chunks merges per-chunk partial results. The merger's structural
// responsibilities are that partials reach mergeFn in original document
// order and that their count equals the chunk count; the combination logic
// itself belongs to the caller.
func Chunks[T, R any](chunks []types.Chunk, partials []T, mergeFn MergeFunc[T, R]) (R, error) {
	var zero R

	if len(partials) != len(chunks) {
		return zero, fmt.Errorf("%w: %d chunks, %d partial results", ErrInputMismatch, len(chunks), len(partials))
	}

	// Chunks normally arrive position-ordered; restore order if not.
	ordered := partials
	if !positionsSorted(chunks) {
		idx := make([]int, len(chunks))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return chunks[idx[a]].Position < chunks[idx[b]].Position
		})
		ordered = make([]T, len(partials))
		for out, in := range idx {
			ordered[out] = partials[in]
		}
	}

	return mergeFn(ordered)
}

func positionsSorted(chunks []types.Chunk) bool {
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Position < chunks[i-1].Position {
			return false
		}
	}
	return true
}

// FieldUpdate is a targeted overlay produced by re-processing one extracted
// section with the high-fidelity provider. Apply must change only the fields
// the enhancement targets and leave everything else identical to its input.
// A nil Apply marks an enhancement that failed reconciliation and is not
// applied.
type FieldUpdate[T any] struct {
	Section string
	Apply   func(base T) T
}

// Enhance overlays targeted field updates onto a base result, returning the
// enhanced value and the names of the sections whose updates were applied.
// A skipped update leaves its field at the base value: enhancement never
// reduces the completeness of the base result.
func Enhance[T any](base T, updates []FieldUpdate[T]) (T, []string) {
	result := base
	var applied []string

	for _, update := range updates {
		if update.Apply == nil {
			continue
		}
		result = update.Apply(result)
		applied = append(applied, update.Section)
	}

	return result, applied
}
