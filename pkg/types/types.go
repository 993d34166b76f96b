package types

import "errors"

// Validation errors
var (
	ErrEmptyContent    = errors.New("content cannot be empty")
	ErrEmptyPrompt     = errors.New("prompt cannot be empty")
	ErrInvalidPosition = errors.New("position must be non-negative")
)

// ProviderID identifies one of the two content provider roles. The roles
// describe a fidelity-versus-cost tradeoff, not specific vendors.
type ProviderID string

const (
	// ProviderHighFidelity is the small-context, stronger-reasoning, costlier provider.
	ProviderHighFidelity ProviderID = "high_fidelity"
	// ProviderHighThroughput is the large-context, cheaper provider.
	ProviderHighThroughput ProviderID = "high_throughput"
)

// DocType identifies the kind of clinical document being processed.
type DocType string

const (
	// DocTypeProtocol is a clinical study protocol.
	DocTypeProtocol DocType = "protocol"
	// DocTypeCRF is a case report form specification.
	DocTypeCRF DocType = "crf"
	// DocTypeGeneric is any other source document.
	DocTypeGeneric DocType = "generic"
)

// Chunk is a bounded, token-counted slice of a source document produced by
// the chunker. Chunks are immutable and ordered; Position is significant for
// the final merge.
type Chunk struct {
	Content     string `json:"content"`
	TokenCount  int    `json:"token_count"`
	SectionName string `json:"section_name"`
	Position    int    `json:"position"`
}

// Validate checks if the Chunk has all required fields set.
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return ErrEmptyContent
	}
	if c.Position < 0 {
		return ErrInvalidPosition
	}
	return nil
}

// DocumentAnalysis is the chunker's assessment of a whole document, used to
// select the processing strategy.
type DocumentAnalysis struct {
	TotalTokens         int        `json:"total_tokens"`
	EstimatedChunks     int        `json:"estimated_chunks"`
	RecommendedProvider ProviderID `json:"recommended_provider"`
}

// Section is a named region of a source document, used by the critical
// section enhancement pass.
type Section struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// TokenUsage reports token consumption for one provider call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a provider's raw output for one generation call. Content is
// unstructured text; it is never stored beyond the reconciliation step.
type Response struct {
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Model        string      `json:"model,omitempty"`
	TokensUsed   *TokenUsage `json:"tokens_used,omitempty"`
}

// UsageMetrics is accumulated by the orchestrator across one call. It is
// owned exclusively by that invocation; nothing is shared between calls.
type UsageMetrics struct {
	ProviderCounts   map[ProviderID]int `json:"provider_counts"`
	TotalChunks      int                `json:"total_chunks"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	EnhancedSections []string           `json:"enhanced_sections,omitempty"`
}

// NewUsageMetrics returns an empty metrics accumulator.
func NewUsageMetrics() *UsageMetrics {
	return &UsageMetrics{
		ProviderCounts: make(map[ProviderID]int),
	}
}

// Record counts one provider call.
func (m *UsageMetrics) Record(provider ProviderID) {
	m.ProviderCounts[provider]++
}

// ContextKey is a typed key for context values attached to orchestration calls.
type ContextKey string

const (
	// ContextKeyRequestID carries the caller's request identifier into usage records.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyDocType carries the document type into usage records.
	ContextKeyDocType ContextKey = "doc_type"
)
