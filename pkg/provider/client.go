package provider

import (
	"context"

	"github.com/sahasand/dmpbuilder/pkg/types"
)

// Client defines the polymorphic content provider capability. Two instances
// exist per orchestrator, one per role (high-fidelity and high-throughput);
// both are wrapped uniformly by the rate limiter and retry controller.
type Client interface {
	// GenerateContent sends a prompt and returns the provider's raw text output.
	GenerateContent(ctx context.Context, prompt string) (*types.Response, error)

	// ID returns the provider role this client serves.
	ID() types.ProviderID

	// Close cleans up any resources.
	Close() error
}

// GenerationConfig holds per-provider generation parameters.
type GenerationConfig struct {
	// Model is the model identifier passed to the backing service.
	Model string `json:"model,omitempty"`

	// BaseURL points at an OpenAI-compatible service. Empty means api.openai.com.
	BaseURL string `json:"base_url,omitempty"`

	// Temperature controls randomness in generation (0.0 to 2.0).
	Temperature float32 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int `json:"max_tokens,omitempty"`

	// SystemPrompt, when set, is prepended to every request as a system message.
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// NewGenerationConfig creates a GenerationConfig with default values.
func NewGenerationConfig() *GenerationConfig {
	return &GenerationConfig{
		Temperature: 0.2,
		MaxTokens:   8192,
	}
}

// WithModel sets the model.
func (c *GenerationConfig) WithModel(model string) *GenerationConfig {
	c.Model = model
	return c
}

// WithBaseURL sets the base URL.
func (c *GenerationConfig) WithBaseURL(baseURL string) *GenerationConfig {
	c.BaseURL = baseURL
	return c
}

// WithTemperature sets the temperature.
func (c *GenerationConfig) WithTemperature(temperature float32) *GenerationConfig {
	c.Temperature = temperature
	return c
}

// WithMaxTokens sets the max tokens.
func (c *GenerationConfig) WithMaxTokens(maxTokens int) *GenerationConfig {
	c.MaxTokens = maxTokens
	return c
}

// WithSystemPrompt sets the system prompt.
func (c *GenerationConfig) WithSystemPrompt(prompt string) *GenerationConfig {
	c.SystemPrompt = prompt
	return c
}
