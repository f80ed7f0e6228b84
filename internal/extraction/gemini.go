package extraction

import (
	"context"
	"fmt"

	"github.com/jonathan/script-agent/internal/llm"
)

// GeminiProvider extracts candidates with Google Gemini in JSON mode.
type GeminiProvider struct {
	client *llm.GeminiClient
}

// NewGeminiProvider builds the "gemini" provider from cfg. Calls are retried
// according to clientCfg.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, clientCfg *llm.ClientConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" || cfg.Model == "" {
		return nil, &ConfigError{Provider: ProviderGemini, Message: "Gemini configuration is missing"}
	}
	client, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini provider: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Name returns "gemini".
func (p *GeminiProvider) Name() string {
	return ProviderGemini
}

// ExtractCandidates sends the prompt as the system instruction and the chunk as the user turn.
func (p *GeminiProvider) ExtractCandidates(ctx context.Context, prompt, chunkJSON string) (string, error) {
	text, err := p.client.GenerateJSON(ctx, prompt, chunkJSON)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrEmptyContent
	}
	return normalizeOutput(text)
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
