package extraction

import (
	"context"

	"github.com/jonathan/script-agent/internal/llm"
)

// ClaudeProvider extracts candidates with the Anthropic Messages API.
type ClaudeProvider struct {
	client *llm.ClaudeClient
}

// NewClaudeProvider builds the "claude" provider from cfg. The SDK's own
// retries are bounded by clientCfg's max attempts.
func NewClaudeProvider(cfg ClaudeConfig, clientCfg *llm.ClientConfig) (*ClaudeProvider, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, &ConfigError{Provider: ProviderClaude, Message: "Claude configuration is missing"}
	}
	client, err := llm.NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, clientCfg)
	if err != nil {
		return nil, err
	}
	return &ClaudeProvider{client: client}, nil
}

// Name returns "claude".
func (p *ClaudeProvider) Name() string {
	return ProviderClaude
}

// ExtractCandidates sends the prompt as the system block and the chunk as the user message.
func (p *ClaudeProvider) ExtractCandidates(ctx context.Context, prompt, chunkJSON string) (string, error) {
	text, err := p.client.Generate(ctx, prompt, chunkJSON)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrEmptyContent
	}
	return normalizeOutput(text)
}
