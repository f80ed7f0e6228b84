// Package config loads service configuration from an optional YAML file,
// SCRIPT_AGENT_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/script-agent/internal/extraction"
	"github.com/jonathan/script-agent/internal/llm"
	"github.com/jonathan/script-agent/internal/logging"
	"github.com/jonathan/script-agent/internal/prompts"
)

// EnvPrefix is prepended to every configuration key when read from the environment.
const EnvPrefix = "SCRIPT_AGENT"

// Config holds every setting the CLI and server read.
type Config struct {
	DatabaseURL string

	Server ServerConfig
	Prompt PromptConfig
	LLM    LLMConfig
	Log    logging.Config
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port             int
	RateLimitPerMin  int
	ExtractPerMin    int
	ShutdownTimeout  time.Duration
	AllowedOrigins   []string
	DefaultRunsLimit int
}

// PromptConfig selects the extraction prompt
type PromptConfig struct {
	Dir  string
	Name string
}

// LLMConfig holds client behaviour and per-provider credentials
type LLMConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	GPTEndpoint string
	GPTAPIKey   string
	GPTModel    string

	GeminiAPIKey string
	GeminiModel  string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string
}

// Load reads configuration. path may be empty; a named file that cannot be
// read is an error.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_url", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_min", 120)
	v.SetDefault("server.extract_per_min", 10)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.default_runs_limit", 50)

	v.SetDefault("prompt.dir", "")
	v.SetDefault("prompt.name", prompts.DefaultName)

	v.SetDefault("llm.timeout", llm.DefaultTimeout.String())
	v.SetDefault("llm.max_attempts", llm.DefaultMaxAttempts)
	v.SetDefault("llm.base_delay", llm.DefaultBaseDelay.String())
	v.SetDefault("llm.max_delay", llm.DefaultMaxDelay.String())
	v.SetDefault("llm.gpt.endpoint", "")
	v.SetDefault("llm.gpt.api_key", "")
	v.SetDefault("llm.gpt.model", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", "gemini-1.5-flash")
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.anthropic.base_url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	// Unprefixed names used by existing deployments
	_ = v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("llm.gpt.endpoint", EnvPrefix+"_LLM_GPT_ENDPOINT", "GPT_API_BASE_URL")
	_ = v.BindEnv("llm.gpt.api_key", EnvPrefix+"_LLM_GPT_API_KEY", "GPT_API_KEY")
	_ = v.BindEnv("llm.gpt.model", EnvPrefix+"_LLM_GPT_MODEL", "GPT_MODEL")
	_ = v.BindEnv("llm.gemini.api_key", EnvPrefix+"_LLM_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("llm.anthropic.api_key", EnvPrefix+"_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		DatabaseURL: v.GetString("database_url"),
		Server: ServerConfig{
			Port:             v.GetInt("server.port"),
			RateLimitPerMin:  v.GetInt("server.rate_limit_per_min"),
			ExtractPerMin:    v.GetInt("server.extract_per_min"),
			ShutdownTimeout:  v.GetDuration("server.shutdown_timeout"),
			AllowedOrigins:   v.GetStringSlice("server.allowed_origins"),
			DefaultRunsLimit: v.GetInt("server.default_runs_limit"),
		},
		Prompt: PromptConfig{
			Dir:  v.GetString("prompt.dir"),
			Name: v.GetString("prompt.name"),
		},
		LLM: LLMConfig{
			Timeout:          v.GetDuration("llm.timeout"),
			MaxAttempts:      v.GetInt("llm.max_attempts"),
			BaseDelay:        v.GetDuration("llm.base_delay"),
			MaxDelay:         v.GetDuration("llm.max_delay"),
			GPTEndpoint:      v.GetString("llm.gpt.endpoint"),
			GPTAPIKey:        v.GetString("llm.gpt.api_key"),
			GPTModel:         v.GetString("llm.gpt.model"),
			GeminiAPIKey:     v.GetString("llm.gemini.api_key"),
			GeminiModel:      v.GetString("llm.gemini.model"),
			AnthropicAPIKey:  v.GetString("llm.anthropic.api_key"),
			AnthropicModel:   v.GetString("llm.anthropic.model"),
			AnthropicBaseURL: v.GetString("llm.anthropic.base_url"),
		},
		Log: logging.Config{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
	}
}

// Validate checks that the configuration has valid values.
// Provider credentials are not required here; a provider reports its own
// missing settings when it is selected.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("config error: 'server.port' must be between 1 and 65535"))
	}
	if c.Server.RateLimitPerMin < 0 || c.Server.ExtractPerMin < 0 {
		errs = append(errs, fmt.Errorf("config error: rate limits must be non-negative"))
	}
	if c.Prompt.Name == "" {
		errs = append(errs, fmt.Errorf("config error: 'prompt.name' is required"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("config error: 'llm.timeout' must be positive"))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("config error: 'llm.max_attempts' must be at least 1"))
	}
	if c.LLM.BaseDelay < 0 || c.LLM.MaxDelay < c.LLM.BaseDelay {
		errs = append(errs, fmt.Errorf("config error: 'llm.max_delay' must not be below 'llm.base_delay'"))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config error: %w", err))
	}

	return errors.Join(errs...)
}

// ClientConfig returns the completion client settings.
func (c *Config) ClientConfig() *llm.ClientConfig {
	return &llm.ClientConfig{
		Timeout:     c.LLM.Timeout,
		MaxAttempts: c.LLM.MaxAttempts,
		BaseDelay:   c.LLM.BaseDelay,
		MaxDelay:    c.LLM.MaxDelay,
	}
}

// ExtractionConfig returns the settings every provider is built from.
func (c *Config) ExtractionConfig() extraction.Config {
	return extraction.Config{
		GPT: extraction.GPTConfig{
			Endpoint: c.LLM.GPTEndpoint,
			APIKey:   c.LLM.GPTAPIKey,
			Model:    c.LLM.GPTModel,
		},
		Gemini: extraction.GeminiConfig{
			APIKey: c.LLM.GeminiAPIKey,
			Model:  c.LLM.GeminiModel,
		},
		Claude: extraction.ClaudeConfig{
			APIKey:  c.LLM.AnthropicAPIKey,
			Model:   c.LLM.AnthropicModel,
			BaseURL: c.LLM.AnthropicBaseURL,
		},
		Client: c.ClientConfig(),
	}
}
