package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/prospect/internal/common"
)

func fastRateConfig() common.RateLimitConfig {
	return common.RateLimitConfig{
		DirectoryMinDelay: time.Millisecond,
		DirectoryMaxDelay: 2 * time.Millisecond,
		MapMinDelay:       time.Millisecond,
		MapMaxDelay:       2 * time.Millisecond,
		ExternalMinDelay:  0,
		ExternalMaxDelay:  time.Millisecond,
		MaxRetries:        3,
		BackoffFactor:     2.0,
		RetryStatusCodes:  []int{429, 503},
	}
}

func newTestGovernor(stealth common.StealthConfig) *Governor {
	return NewGovernor(fastRateConfig(), stealth, "www.gelbeseiten.de", "www.google.com")
}

func TestClassify(t *testing.T) {
	g := newTestGovernor(common.StealthConfig{})

	assert.Equal(t, ClassDirectory, g.Classify("www.gelbeseiten.de"))
	assert.Equal(t, ClassMap, g.Classify("www.google.com"))
	assert.Equal(t, ClassExternal, g.Classify("www.handwerker-schmidt.de"))
}

func TestAcquirePacesRequests(t *testing.T) {
	g := newTestGovernor(common.StealthConfig{})
	ctx := context.Background()

	_, err := g.Acquire(ctx, "www.gelbeseiten.de")
	require.NoError(t, err)
	_, err = g.Acquire(ctx, "www.gelbeseiten.de")
	require.NoError(t, err)
}

func TestAcquireCancelled(t *testing.T) {
	cfg := fastRateConfig()
	cfg.DirectoryMinDelay = time.Hour
	cfg.DirectoryMaxDelay = 2 * time.Hour
	g := NewGovernor(cfg, common.StealthConfig{}, "www.gelbeseiten.de", "www.google.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Acquire(ctx, "www.gelbeseiten.de")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionLimit(t *testing.T) {
	g := newTestGovernor(common.StealthConfig{
		Enabled:        true,
		MinDelay:       time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		HourlyLimit:    3600,
		SessionMinutes: 180,
	})
	g.now = func() time.Time { return g.sessionStart.Add(181 * time.Minute) }

	_, err := g.Acquire(context.Background(), "www.gelbeseiten.de")
	assert.ErrorIs(t, err, ErrSessionLimit)
}

func TestSessionWithinCap(t *testing.T) {
	g := newTestGovernor(common.StealthConfig{
		Enabled:        true,
		MinDelay:       time.Millisecond,
		MaxDelay:       2 * time.Millisecond,
		HourlyLimit:    3600,
		SessionMinutes: 180,
	})

	assert.True(t, g.Stealth())
	_, err := g.Acquire(context.Background(), "www.gelbeseiten.de")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, g.SessionElapsed(), time.Duration(0))
}

func TestErrorCooldown(t *testing.T) {
	g := newTestGovernor(common.StealthConfig{})

	g.ReportError("www.gelbeseiten.de", 429)

	delay, cooldown := g.planDelay("www.gelbeseiten.de")
	// backoff^1 * 5s = 10s cooldown after one 429
	assert.InDelta(t, 10*time.Second, cooldown, float64(50*time.Millisecond))
	assert.Greater(t, delay, time.Duration(0))

	g.ReportSuccess("www.gelbeseiten.de")
	g.mu.Lock()
	assert.Zero(t, g.hosts["www.gelbeseiten.de"].consecutiveErrors)
	g.mu.Unlock()
}

func TestNonThrottleErrorNoCooldown(t *testing.T) {
	g := newTestGovernor(common.StealthConfig{})

	g.ReportError("www.gelbeseiten.de", 500)

	_, cooldown := g.planDelay("www.gelbeseiten.de")
	assert.Zero(t, cooldown)
}

func TestShouldRetry(t *testing.T) {
	g := newTestGovernor(common.StealthConfig{})

	assert.True(t, g.ShouldRetry(429, 0))
	assert.True(t, g.ShouldRetry(503, 2))
	assert.False(t, g.ShouldRetry(429, 3))
	assert.False(t, g.ShouldRetry(404, 0))
}

func TestRetryDelayGrows(t *testing.T) {
	g := newTestGovernor(common.StealthConfig{})

	// 2*2^0=2s and 2*2^2=8s, each with ±20% jitter
	first := g.RetryDelay(0)
	assert.InDelta(t, 2*time.Second, first, float64(500*time.Millisecond))

	third := g.RetryDelay(2)
	assert.InDelta(t, 8*time.Second, third, float64(1700*time.Millisecond))
}
