package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(l *Limiter, t time.Time) *time.Time {
	now := t
	l.now = func() time.Time { return now }
	return &now
}

func TestLimiter_DefaultTier(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 3, DefaultWindow: time.Minute})
	defer limiter.Stop()
	fixedClock(limiter, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		allowed, info := limiter.Allow("10.0.0.1", "/runs", http.MethodGet)
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := limiter.Allow("10.0.0.1", "/runs", http.MethodGet)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.InDelta(t, float64(20*time.Second), float64(info.RetryAfter), float64(time.Millisecond))
}

func TestLimiter_Refill(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute})
	defer limiter.Stop()
	now := fixedClock(limiter, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 60; i++ {
		limiter.Allow("c", "/runs", http.MethodGet)
	}
	allowed, _ := limiter.Allow("c", "/runs", http.MethodGet)
	require.False(t, allowed)

	*now = now.Add(1100 * time.Millisecond)
	allowed, _ = limiter.Allow("c", "/runs", http.MethodGet)
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("c", "/runs", http.MethodGet)
	assert.False(t, allowed)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	allowed, _ := limiter.Allow("a", "/runs", http.MethodGet)
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("a", "/runs", http.MethodGet)
	assert.False(t, allowed)
	allowed, _ = limiter.Allow("b", "/runs", http.MethodGet)
	assert.True(t, allowed)
}

func TestLimiter_ExtractStricterThanReads(t *testing.T) {
	limiter := NewLimiter(NewConfig(100, 5))
	defer limiter.Stop()

	allowed, info := limiter.Allow("c", "/runs/extract", http.MethodPost)
	require.True(t, allowed)
	assert.Equal(t, 5, info.Limit)

	allowed, _ = limiter.Allow("c", "/runs/extract", http.MethodPost)
	assert.False(t, allowed, "burst of one")

	allowed, info = limiter.Allow("c", "/runs/abc", http.MethodGet)
	assert.True(t, allowed)
	assert.Equal(t, 100, info.Limit)
}

func TestLimiter_PathsShareTierBucket(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 2, DefaultWindow: time.Minute})
	defer limiter.Stop()

	limiter.Allow("c", "/runs/1", http.MethodGet)
	limiter.Allow("c", "/runs/2", http.MethodGet)
	allowed, _ := limiter.Allow("c", "/runs/3", http.MethodGet)
	assert.False(t, allowed)
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 50; i++ {
		allowed, _ := limiter.Allow("c", "/health", http.MethodGet)
		require.True(t, allowed)
	}
}

func TestLimiter_DisabledAndWhitelist(t *testing.T) {
	disabled := NewLimiter(NewConfig(0, 0))
	defer disabled.Stop()
	for i := 0; i < 10; i++ {
		allowed, _ := disabled.Allow("c", "/runs/extract", http.MethodPost)
		assert.True(t, allowed)
	}

	wl := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, Whitelist: map[string]bool{"ops": true}})
	defer wl.Stop()
	for i := 0; i < 10; i++ {
		allowed, _ := wl.Allow("ops", "/runs", http.MethodGet)
		assert.True(t, allowed)
	}
}

func TestLimiter_EvictIdle(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()
	now := fixedClock(limiter, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	limiter.Allow("c", "/runs", http.MethodGet)
	*now = now.Add(2 * time.Hour)
	limiter.evictIdle(now.Add(-time.Hour))

	allowed, _ := limiter.Allow("c", "/runs", http.MethodGet)
	assert.True(t, allowed, "evicted bucket starts full")
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("c", "/runs", http.MethodGet); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(10)

	m := MatchEndpoint("/runs/extract", http.MethodPost, configs)
	require.NotNil(t, m)
	assert.Equal(t, 10, m.Limit)

	m = MatchEndpoint("/candidates/123", http.MethodPatch, configs)
	require.NotNil(t, m)
	assert.Equal(t, "/candidates/", m.Path)

	assert.Nil(t, MatchEndpoint("/candidates/123", http.MethodGet, configs))
	assert.Nil(t, MatchEndpoint("/runs", http.MethodGet, configs))

	m = MatchEndpoint("/health", http.MethodGet, configs)
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Limit)
}
