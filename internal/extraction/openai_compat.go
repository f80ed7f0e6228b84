package extraction

import (
	"context"

	"github.com/jonathan/script-agent/internal/llm"
)

// OpenAICompatProvider sends chunks to an OpenAI-compatible chat completions
// endpoint. Retries happen inside the completion client only.
type OpenAICompatProvider struct {
	client *llm.Client
	model  string
}

// NewOpenAICompatProvider builds the "gpt" provider from cfg.
func NewOpenAICompatProvider(cfg GPTConfig, clientCfg *llm.ClientConfig, opts ...llm.Option) (*OpenAICompatProvider, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.Model == "" {
		return nil, &ConfigError{Provider: ProviderGPT, Message: "GPT configuration is missing"}
	}
	return &OpenAICompatProvider{
		client: llm.NewClient(cfg.Endpoint, cfg.APIKey, clientCfg, opts...),
		model:  cfg.Model,
	}, nil
}

// Name returns "gpt".
func (p *OpenAICompatProvider) Name() string {
	return ProviderGPT
}

// ExtractCandidates sends the prompt as the system message and the chunk as
// the user message at temperature 0.
func (p *OpenAICompatProvider) ExtractCandidates(ctx context.Context, prompt, chunkJSON string) (string, error) {
	temperature := 0.0
	result, err := p.client.Complete(ctx, llm.CompletionRequest{
		Model: p.model,
		Messages: []llm.Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: chunkJSON},
		},
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}
	if result.Content == nil {
		return "", ErrEmptyContent
	}
	return normalizeOutput(*result.Content)
}
