package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const claudeMaxTokens = 4096

// ClaudeClient produces completions with the Anthropic Messages API.
type ClaudeClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeClient creates a Claude client. The retry policy's MaxAttempts
// bounds the SDK's own retries (attempts = retries + 1). baseURL is optional.
func NewClaudeClient(apiKey, model, baseURL string, config *ClientConfig) (*ClaudeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if config == nil {
		config = DefaultClientConfig()
	}

	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(max(config.RetryPolicy().MaxAttempts-1, 0)),
	}
	if config.Timeout > 0 {
		opts = append(opts, anthropicoption.WithRequestTimeout(config.Timeout))
	}
	if baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(baseURL))
	}

	return &ClaudeClient{
		client: anthropic.NewClient(opts...),
		model:  anthropic.Model(model),
	}, nil
}

// Generate sends system as the system prompt and user as the only user turn
// at temperature 0 and returns the concatenated text blocks.
func (c *ClaudeClient) Generate(ctx context.Context, system, user string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   claudeMaxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}

	var parts []string
	for _, block := range message.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("unexpected response format: no text blocks")
	}
	return strings.Join(parts, ""), nil
}
