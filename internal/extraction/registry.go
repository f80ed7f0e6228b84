package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/script-agent/internal/llm"
)

// Provider names
const (
	ProviderMock   = "mock"
	ProviderGPT    = "gpt"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// ErrUnsupportedProvider is returned by New for an unknown provider name.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ConfigError reports a provider that is known but not configured.
type ConfigError struct {
	Provider string
	Message  string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// GPTConfig configures the OpenAI-compatible provider.
type GPTConfig struct {
	Endpoint string
	APIKey   string
	Model    string
}

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// ClaudeConfig configures the Anthropic provider.
type ClaudeConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config carries everything New may need to build any provider.
type Config struct {
	GPT    GPTConfig
	Gemini GeminiConfig
	Claude ClaudeConfig
	Client *llm.ClientConfig
	Logger *zap.Logger
}

// Names returns the supported provider names, sorted.
func Names() []string {
	names := []string{ProviderMock, ProviderGPT, ProviderGemini, ProviderClaude}
	sort.Strings(names)
	return names
}

// New builds the provider registered under name. Unknown names wrap
// ErrUnsupportedProvider; missing settings yield a *ConfigError. Both are
// detected before any network call is made.
func New(ctx context.Context, name string, cfg Config) (Provider, error) {
	clientCfg := cfg.Client
	if clientCfg == nil {
		clientCfg = llm.DefaultClientConfig()
	}

	var (
		provider Provider
		err      error
	)
	switch strings.TrimSpace(name) {
	case ProviderMock:
		return MockProvider{}, nil
	case ProviderGPT:
		var opts []llm.Option
		if cfg.Logger != nil {
			opts = append(opts, llm.WithLogger(cfg.Logger))
		}
		provider, err = NewOpenAICompatProvider(cfg.GPT, clientCfg, opts...)
	case ProviderGemini:
		provider, err = NewGeminiProvider(ctx, cfg.Gemini, clientCfg)
	case ProviderClaude:
		provider, err = NewClaudeProvider(cfg.Claude, clientCfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// Close releases provider resources when the provider holds any.
func Close(p Provider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
