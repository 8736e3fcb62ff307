package ratelimit

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ternarybob/prospect/internal/common"
)

// ErrSessionLimit signals that the stealth session wall-clock cap was
// reached. Callers treat it as normal early termination, not failure.
var ErrSessionLimit = errors.New("session limit reached")

// HostClass selects the pacing profile for a host
type HostClass int

const (
	ClassExternal HostClass = iota
	ClassDirectory
	ClassMap
)

const (
	maxBackoffDelay = 60 * time.Second
	maxCooldown     = 300 * time.Second
)

// hostState tracks pacing state for a single host
type hostState struct {
	requestCount      int
	lastRequest       time.Time
	consecutiveErrors int
	blockedUntil      time.Time
}

// Governor paces outbound requests per host with class-specific delays,
// error backoff, periodic long pauses on the directory host, and an
// optional stealth profile with hourly and session-wide ceilings.
//
// The internal lock is held only across state updates, never across sleeps,
// so independent callers do not serialize on each other's waits.
type Governor struct {
	rateCfg    common.RateLimitConfig
	stealthCfg common.StealthConfig

	directoryHost string
	mapHost       string

	mu    sync.Mutex
	hosts map[string]*hostState
	rng   *rand.Rand

	// stealth session state
	stealth      bool
	sessionStart time.Time
	sessionCap   time.Duration
	acquireCount int
	hourLimiter  *rate.Limiter

	now func() time.Time
}

// NewGovernor creates a governor for the given pacing configuration.
// directoryHost and mapHost select the stricter host classes; all other
// hosts get the external profile.
func NewGovernor(rateCfg common.RateLimitConfig, stealthCfg common.StealthConfig, directoryHost, mapHost string) *Governor {
	g := &Governor{
		rateCfg:       rateCfg,
		stealthCfg:    stealthCfg,
		directoryHost: directoryHost,
		mapHost:       mapHost,
		hosts:         make(map[string]*hostState),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		now:           time.Now,
	}

	if stealthCfg.Enabled {
		g.stealth = true
		g.sessionStart = g.now()
		g.sessionCap = time.Duration(stealthCfg.SessionMinutes) * time.Minute
		// Hourly ceiling enforced on top of the randomized delays, so the
		// window holds even when individual delays are short.
		g.hourLimiter = rate.NewLimiter(rate.Limit(float64(stealthCfg.HourlyLimit)/3600.0), 1)
	}

	return g
}

// Classify maps a host name to its pacing class
func (g *Governor) Classify(host string) HostClass {
	switch {
	case g.directoryHost != "" && strings.HasSuffix(host, g.directoryHost):
		return ClassDirectory
	case g.mapHost != "" && strings.HasSuffix(host, g.mapHost):
		return ClassMap
	default:
		return ClassExternal
	}
}

// Acquire blocks until a request to the host is admitted and returns the
// delay actually slept. Under stealth it returns ErrSessionLimit once the
// session cap is exceeded.
func (g *Governor) Acquire(ctx context.Context, host string) (time.Duration, error) {
	if g.stealth {
		if g.now().Sub(g.sessionStart) >= g.sessionCap {
			return 0, ErrSessionLimit
		}
		// Hourly ceiling: sleeps until the window rolls when exhausted.
		if err := g.hourLimiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	delay, cooldown := g.planDelay(host)

	total := cooldown + delay
	if total > 0 {
		if err := sleepCtx(ctx, total); err != nil {
			return 0, err
		}
	}

	g.mu.Lock()
	state := g.hostState(host)
	state.requestCount++
	state.lastRequest = g.now()
	g.mu.Unlock()

	return total, nil
}

// planDelay computes the residual delay and remaining cooldown for the next
// request without sleeping
func (g *Governor) planDelay(host string) (delay, cooldown time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.hostState(host)
	now := g.now()

	if state.blockedUntil.After(now) {
		cooldown = state.blockedUntil.Sub(now)
	}

	minDelay, maxDelay := g.delayRange(g.Classify(host))
	base := minDelay + time.Duration(g.rng.Float64()*float64(maxDelay-minDelay))

	// Consecutive errors widen the delay exponentially.
	if state.consecutiveErrors > 0 {
		factor := math.Pow(g.rateCfg.BackoffFactor, float64(state.consecutiveErrors))
		base = time.Duration(float64(base) * factor)
		if base > maxBackoffDelay {
			base = maxBackoffDelay
		}
	}

	// Periodic long pause on the paced classes.
	pauseEvery, pauseMin, pauseMax := g.pauseProfile(g.Classify(host))
	if pauseEvery > 0 && state.requestCount > 0 && state.requestCount%pauseEvery == 0 {
		base += pauseMin + time.Duration(g.rng.Float64()*float64(pauseMax-pauseMin))
	}

	// Subtract time already elapsed since the last request.
	if !state.lastRequest.IsZero() {
		elapsed := now.Sub(state.lastRequest)
		if elapsed >= base {
			base = 0
		} else {
			base -= elapsed
		}
	}

	return base, cooldown
}

// delayRange returns the base delay window for a host class
func (g *Governor) delayRange(class HostClass) (time.Duration, time.Duration) {
	if g.stealth {
		return g.stealthCfg.MinDelay, g.stealthCfg.MaxDelay
	}
	switch class {
	case ClassDirectory:
		return g.rateCfg.DirectoryMinDelay, g.rateCfg.DirectoryMaxDelay
	case ClassMap:
		return g.rateCfg.MapMinDelay, g.rateCfg.MapMaxDelay
	default:
		return g.rateCfg.ExternalMinDelay, g.rateCfg.ExternalMaxDelay
	}
}

// pauseProfile returns the long-pause cadence for a host class
func (g *Governor) pauseProfile(class HostClass) (int, time.Duration, time.Duration) {
	if g.stealth {
		return g.stealthCfg.BreakEveryN, g.stealthCfg.BreakMinDuration, g.stealthCfg.BreakMaxDuration
	}
	if class == ClassDirectory {
		return g.rateCfg.PauseEveryN, g.rateCfg.PauseMinDuration, g.rateCfg.PauseMaxDuration
	}
	return 0, 0, 0
}

// ReportSuccess resets the consecutive-error count for the host
func (g *Governor) ReportSuccess(host string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hostState(host).consecutiveErrors = 0
}

// ReportError increments the error count and, for throttling status codes,
// places the host in a cooldown of backoff^errors * 5s capped at 300s
func (g *Governor) ReportError(host string, statusCode int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := g.hostState(host)
	state.consecutiveErrors++

	if g.isRetryableStatus(statusCode) {
		cooldown := time.Duration(math.Pow(g.rateCfg.BackoffFactor, float64(state.consecutiveErrors))*5) * time.Second
		if cooldown > maxCooldown {
			cooldown = maxCooldown
		}
		state.blockedUntil = g.now().Add(cooldown)
	}
}

// ShouldRetry reports whether another attempt is permitted
func (g *Governor) ShouldRetry(statusCode, attempt int) bool {
	if attempt >= g.rateCfg.MaxRetries {
		return false
	}
	return g.isRetryableStatus(statusCode)
}

// RetryDelay returns 2*backoff^attempt seconds with ±20% jitter
func (g *Governor) RetryDelay(attempt int) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	base := 2.0 * math.Pow(g.rateCfg.BackoffFactor, float64(attempt))
	jitter := base * 0.2 * (g.rng.Float64()*2 - 1)
	return time.Duration((base + jitter) * float64(time.Second))
}

// SessionElapsed returns the stealth session age, zero when not in stealth
func (g *Governor) SessionElapsed() time.Duration {
	if !g.stealth {
		return 0
	}
	return g.now().Sub(g.sessionStart)
}

// Stealth reports whether the stealth profile is active
func (g *Governor) Stealth() bool {
	return g.stealth
}

func (g *Governor) isRetryableStatus(statusCode int) bool {
	for _, code := range g.rateCfg.RetryStatusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// hostState returns the state for a host, creating it on first use.
// Caller must hold g.mu.
func (g *Governor) hostState(host string) *hostState {
	state, ok := g.hosts[host]
	if !ok {
		state = &hostState{}
		g.hosts[host] = state
	}
	return state
}

// sleepCtx waits for the duration with context cancellation support
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
