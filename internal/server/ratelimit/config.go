package ratelimit

import (
	"net/http"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// NewConfig builds the limiter configuration used by the API server.
// readsPerMin applies to every endpoint without a specific entry; extractPerMin
// applies to extraction triggers. A zero limit leaves that tier unlimited.
func NewConfig(readsPerMin, extractPerMin int) *Config {
	return &Config{
		Enabled:         readsPerMin > 0 || extractPerMin > 0,
		DefaultLimit:    readsPerMin,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(extractPerMin),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific configurations.
func DefaultEndpointConfigs(extractPerMin int) []EndpointConfig {
	burst := max(1, extractPerMin/5)
	return []EndpointConfig{
		// Extraction calls a remote model per chunk
		{Path: "/runs/extract", Method: http.MethodPost, Limit: extractPerMin, Window: time.Minute, Burst: burst},
		{Path: "/runs/extract/stream", Method: http.MethodPost, Limit: extractPerMin, Window: time.Minute, Burst: burst},

		// Curation writes
		{Path: "/candidates/", Method: http.MethodPatch, Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/candidates/", Method: http.MethodDelete, Limit: 60, Window: time.Minute, Burst: 10},
	}
}
