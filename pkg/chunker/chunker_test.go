package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

const sampleProtocol = `PROTOCOL SYNOPSIS

This study evaluates the investigational product in adults.

6.1 Inclusion Criteria

Subjects must be between 18 and 65 years of age.

Subjects must provide written informed consent.

6.2 Exclusion Criteria

Subjects with prior exposure to the investigational product.

Primary Endpoints:

Change from baseline at week 12.`

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestAnalyzeDocument(t *testing.T) {
	h := NewHeuristic(100)

	small, err := h.AnalyzeDocument(context.Background(), "short document", types.DocTypeProtocol)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderHighFidelity, small.RecommendedProvider)

	large, err := h.AnalyzeDocument(context.Background(), strings.Repeat("w ", 400), types.DocTypeProtocol)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderHighThroughput, large.RecommendedProvider)
	assert.GreaterOrEqual(t, large.TotalTokens, 100)
}

func TestAnalyzeDocument_EmptyInput(t *testing.T) {
	h := NewHeuristic(0)

	_, err := h.AnalyzeDocument(context.Background(), "   \n\n  ", types.DocTypeProtocol)
	assert.True(t, errors.Is(err, types.ErrEmptyContent))
}

func TestChunkDocument_SingleChunk(t *testing.T) {
	h := NewHeuristic(0)

	chunks, err := h.ChunkDocument(context.Background(), sampleProtocol, types.DocTypeProtocol, ChunkOptions{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, EstimateTokens(chunks[0].Content), chunks[0].TokenCount)
}

func TestChunkDocument_SplitsAtCeiling(t *testing.T) {
	h := NewHeuristic(0)

	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString(strings.Repeat("word ", 100))
		b.WriteString("\n\n")
	}

	chunks, err := h.ChunkDocument(context.Background(), b.String(), types.DocTypeProtocol, ChunkOptions{
		MaxTokensPerChunk: 300,
	})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Position, "positions must be contiguous")
		assert.LessOrEqual(t, chunk.TokenCount, 300)
		assert.NoError(t, chunk.Validate())
	}
}

func TestChunkDocument_NeverSplitsParagraphs(t *testing.T) {
	h := NewHeuristic(0)

	paragraphs := []string{
		strings.Repeat("alpha ", 50),
		strings.Repeat("beta ", 50),
	}
	text := strings.TrimSpace(strings.Join(paragraphs, "\n\n"))

	// Ceiling smaller than one paragraph: each paragraph becomes its own chunk.
	chunks, err := h.ChunkDocument(context.Background(), text, types.DocTypeProtocol, ChunkOptions{
		MaxTokensPerChunk: 10,
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, "alpha")
	assert.Contains(t, chunks[1].Content, "beta")
}

func TestChunkDocument_SectionTagging(t *testing.T) {
	h := NewHeuristic(0)

	text := "6.1 Inclusion Criteria\n\n" + strings.Repeat("adult subjects ", 30) +
		"\n\n6.2 Exclusion Criteria\n\n" + strings.Repeat("prior exposure ", 30)

	chunks, err := h.ChunkDocument(context.Background(), text, types.DocTypeProtocol, ChunkOptions{
		MaxTokensPerChunk: 120,
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	assert.Equal(t, "inclusion criteria", chunks[0].SectionName)
	assert.Equal(t, "exclusion criteria", chunks[len(chunks)-1].SectionName)
}

func TestChunkDocument_EmptyInput(t *testing.T) {
	h := NewHeuristic(0)

	_, err := h.ChunkDocument(context.Background(), "", types.DocTypeProtocol, ChunkOptions{})
	assert.True(t, errors.Is(err, types.ErrEmptyContent))
}

func TestExtractSections(t *testing.T) {
	h := NewHeuristic(0)

	sections := h.ExtractSections(sampleProtocol)
	require.NotEmpty(t, sections)

	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.Name)
	}

	assert.Contains(t, names, "protocol synopsis")
	assert.Contains(t, names, "inclusion criteria")
	assert.Contains(t, names, "exclusion criteria")
	assert.Contains(t, names, "primary endpoints")

	for _, s := range sections {
		assert.NotEmpty(t, s.Content, "section %q has no content", s.Name)
	}
}

func TestExtractSections_NoHeadings(t *testing.T) {
	h := NewHeuristic(0)

	sections := h.ExtractSections("Just one paragraph of plain prose about the study.")
	require.Len(t, sections, 1)
	assert.Equal(t, "preamble", sections[0].Name)
}

func TestHeadingName(t *testing.T) {
	tests := []struct {
		paragraph string
		want      string
		ok        bool
	}{
		{"6.1 Inclusion Criteria", "inclusion criteria", true},
		{"PRIMARY ENDPOINTS", "primary endpoints", true},
		{"Background:", "background", true},
		{"This is a full sentence about the study.", "", false},
		{"Multi\nline\nparagraph", "", false},
		{strings.Repeat("long ", 30), "", false},
	}

	for _, tt := range tests {
		got, ok := headingName(tt.paragraph)
		assert.Equal(t, tt.ok, ok, "paragraph: %q", tt.paragraph)
		if tt.ok {
			assert.Equal(t, tt.want, got)
		}
	}
}
