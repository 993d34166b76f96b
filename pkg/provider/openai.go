package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sahasand/dmpbuilder/pkg/types"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements the Client interface against OpenAI or any
// OpenAI-compatible service. Both provider roles use this client; the role
// is a label, the fidelity/cost tradeoff comes from the configured model
// and endpoint.
type OpenAIClient struct {
	client *openai.Client
	role   types.ProviderID
	config GenerationConfig
}

// NewOpenAIClient creates a new client for the given provider role.
// Supports OpenAI-compatible services through a custom BaseURL.
func NewOpenAIClient(apiKey string, role types.ProviderID, config GenerationConfig) (*OpenAIClient, error) {
	var client *openai.Client

	if config.BaseURL != "" {
		if err := validateBaseURL(config.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}

		// Some compatible services don't require authentication
		if apiKey == "" {
			apiKey = "dummy-key"
		}

		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = config.BaseURL

		// Many services expect "/v1" appended to the base URL
		if !hasAPIPath(config.BaseURL) {
			clientConfig.BaseURL = config.BaseURL + "/v1"
		}

		client = openai.NewClientWithConfig(clientConfig)
	} else {
		client = openai.NewClient(apiKey)
	}

	if config.Model == "" {
		config.Model = openai.GPT4o
	}

	return &OpenAIClient{
		client: client,
		role:   role,
		config: config,
	}, nil
}

// GenerateContent sends a completion request and returns the raw text output.
func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt string) (*types.Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, types.ErrEmptyPrompt
	}

	req := c.buildRequest(prompt)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion failed: %w", c.role, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", c.role, ErrNoChoices)
	}

	choice := resp.Choices[0]
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("%s: %w", c.role, ErrEmptyResponse)
	}

	response := &types.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
	}

	// Some OpenAI-compatible services don't report usage
	if resp.Usage.TotalTokens > 0 {
		response.TokensUsed = &types.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return response, nil
}

// ID implements Client.
func (c *OpenAIClient) ID() types.ProviderID {
	return c.role
}

// Close cleans up resources (no-op for the OpenAI client).
func (c *OpenAIClient) Close() error {
	return nil
}

func (c *OpenAIClient) buildRequest(prompt string) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if c.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.config.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: messages,
	}

	if c.config.Temperature > 0 {
		req.Temperature = c.config.Temperature
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}

	return req
}

// validateBaseURL validates the base URL format.
func validateBaseURL(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("baseURL cannot be empty")
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL format: %w", err)
	}

	if parsedURL.Scheme == "" {
		return fmt.Errorf("baseURL must include scheme (http:// or https://)")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("baseURL must use http:// or https:// scheme")
	}

	return nil
}

// hasAPIPath checks if the base URL already includes an API path component.
func hasAPIPath(baseURL string) bool {
	commonPaths := []string{"/v1", "/api", "/v1/", "/api/"}
	for _, path := range commonPaths {
		if strings.HasSuffix(baseURL, path) {
			return true
		}
	}
	return false
}
