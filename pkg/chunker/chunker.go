// Package chunker splits source documents into ordered, token-counted
// chunks. The orchestration core treats the chunker as a pure collaborator
// with no side effects and trusts its token counts for routing decisions;
// Heuristic is a default implementation good enough for plain-text clinical
// documents.
package chunker

import (
	"context"
	"strings"
	"unicode"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

// DefaultMaxTokensPerChunk is the per-chunk token ceiling used when the
// caller does not specify one.
const DefaultMaxTokensPerChunk = 24000

// Chunker analyzes and splits documents.
type Chunker interface {
	// AnalyzeDocument estimates size and recommends a provider for the
	// whole document.
	AnalyzeDocument(ctx context.Context, text string, docType types.DocType) (*types.DocumentAnalysis, error)

	// ChunkDocument splits the document into an ordered chunk sequence.
	ChunkDocument(ctx context.Context, text string, docType types.DocType, opts ChunkOptions) ([]types.Chunk, error)
}

// SectionExtractor pulls named sections out of a document for the critical
// section enhancement pass.
type SectionExtractor interface {
	ExtractSections(text string) []types.Section
}

// ChunkOptions configures a ChunkDocument call.
type ChunkOptions struct {
	// MaxTokensPerChunk caps each chunk's token estimate.
	MaxTokensPerChunk int
	// ProviderPreference is passed through to the analysis recommendation.
	ProviderPreference types.ProviderID
}

// Heuristic is a paragraph-and-heading based chunker. Token counts are
// estimated at roughly four characters per token.
type Heuristic struct {
	wholeDocThreshold int
}

// NewHeuristic creates a Heuristic chunker. The threshold feeds the
// whole-document provider recommendation.
func NewHeuristic(wholeDocThreshold int) *Heuristic {
	if wholeDocThreshold <= 0 {
		wholeDocThreshold = 80000
	}
	return &Heuristic{wholeDocThreshold: wholeDocThreshold}
}

// EstimateTokens approximates the token count of a text.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// AnalyzeDocument implements Chunker.
func (h *Heuristic) AnalyzeDocument(ctx context.Context, text string, docType types.DocType) (*types.DocumentAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.ErrEmptyContent
	}

	total := EstimateTokens(text)
	estimated := total/DefaultMaxTokensPerChunk + 1

	recommended := types.ProviderHighFidelity
	if total >= h.wholeDocThreshold {
		recommended = types.ProviderHighThroughput
	}

	return &types.DocumentAnalysis{
		TotalTokens:         total,
		EstimatedChunks:     estimated,
		RecommendedProvider: recommended,
	}, nil
}

// ChunkDocument implements Chunker. Paragraphs are accumulated into chunks
// up to the token ceiling, never splitting inside a paragraph; each chunk is
// tagged with the most recent section heading.
func (h *Heuristic) ChunkDocument(ctx context.Context, text string, docType types.DocType, opts ChunkOptions) ([]types.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.ErrEmptyContent
	}

	maxTokens := opts.MaxTokensPerChunk
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokensPerChunk
	}

	var chunks []types.Chunk
	var current strings.Builder
	section := "preamble"
	chunkSection := section

	flush := func() {
		content := strings.TrimSpace(current.String())
		if content == "" {
			return
		}
		chunks = append(chunks, types.Chunk{
			Content:     content,
			TokenCount:  EstimateTokens(content),
			SectionName: chunkSection,
			Position:    len(chunks),
		})
		current.Reset()
	}

	for _, paragraph := range splitParagraphs(text) {
		if name, ok := headingName(paragraph); ok {
			section = name
		}

		if current.Len() > 0 && EstimateTokens(current.String())+EstimateTokens(paragraph) > maxTokens {
			flush()
		}
		if current.Len() == 0 {
			chunkSection = section
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(paragraph)
	}
	flush()

	return chunks, nil
}

// ExtractSections implements SectionExtractor: each heading starts a new
// named section containing everything up to the next heading.
func (h *Heuristic) ExtractSections(text string) []types.Section {
	var sections []types.Section
	name := "preamble"
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content != "" {
			sections = append(sections, types.Section{Name: name, Content: content})
		}
		body.Reset()
	}

	for _, paragraph := range splitParagraphs(text) {
		if heading, ok := headingName(paragraph); ok {
			flush()
			name = heading
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(paragraph)
	}
	flush()

	return sections
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

// headingName recognizes a single-line paragraph as a section heading when
// it is short, has no sentence-ending period, and is either numbered
// ("6.1 Inclusion Criteria"), colon-terminated, or upper-case.
func headingName(paragraph string) (string, bool) {
	if strings.Contains(paragraph, "\n") || len(paragraph) > 80 {
		return "", false
	}
	line := strings.TrimSpace(paragraph)
	if line == "" || strings.HasSuffix(line, ".") {
		return "", false
	}

	switch {
	case strings.HasSuffix(line, ":"):
		return normalizeHeading(strings.TrimSuffix(line, ":")), true
	case startsNumbered(line):
		return normalizeHeading(stripNumbering(line)), true
	case isUpper(line):
		return normalizeHeading(line), true
	}
	return "", false
}

func startsNumbered(line string) bool {
	i := 0
	for i < len(line) && (unicode.IsDigit(rune(line[i])) || line[i] == '.') {
		i++
	}
	return i > 0 && i < len(line) && line[i] == ' '
}

func stripNumbering(line string) string {
	if i := strings.Index(line, " "); i != -1 {
		return line[i+1:]
	}
	return line
}

func isUpper(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

func normalizeHeading(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
