// Package llm provides the chat completion client used by the remote
// extraction providers, plus thin wrappers over vendor SDKs.
package llm

import "time"

// Default client settings
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
)

// ClientConfig holds transport and retry settings shared by every remote backend.
type ClientConfig struct {
	Timeout     time.Duration // per attempt
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultClientConfig returns a 30s per-attempt timeout and the default retry policy.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// RetryPolicy converts the config into a RetryPolicy, filling zero values
// with defaults.
func (c *ClientConfig) RetryPolicy() RetryPolicy {
	policy := DefaultRetryPolicy()
	if c == nil {
		return policy
	}
	if c.MaxAttempts > 0 {
		policy.MaxAttempts = c.MaxAttempts
	}
	if c.BaseDelay > 0 {
		policy.BaseDelay = c.BaseDelay
	}
	if c.MaxDelay > 0 {
		policy.MaxDelay = c.MaxDelay
	}
	return policy
}
