package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	discogsRatelimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "discogs_rate_limit_remaining",
		Help: "Requests remaining in the current Discogs rate limit window",
	})

	discogsRateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discogs_rate_limit_waits_total",
		Help: "Total number of requests that waited for the rate limit window to reset",
	})

	discogsRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discogs_rate_limit_throttles_total",
		Help: "Total number of requests throttled because the window was nearly used up",
	})
)

// ErrWaitTooLong is returned when honoring the limit would exceed MaxWait.
var ErrWaitTooLong = errors.New("rate limit wait exceeds maximum")

// Config controls how the tracker reacts to low remaining quota.
type Config struct {
	// Throttle is the pause applied below RemainingWarning.
	Throttle time.Duration

	// MaxWait bounds the wait below RemainingCritical.
	MaxWait time.Duration
}

// DefaultConfig returns a one second throttle and a full window max wait.
func DefaultConfig() Config {
	return Config{
		Throttle: 1 * time.Second,
		MaxWait:  Window,
	}
}

// Tracker monitors Discogs rate limit headers and gates requests.
type Tracker struct {
	store  Store
	config Config
	logger zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTracker creates a tracker backed by store; a MemoryStore when nil.
func NewTracker(store Store, cfg Config, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = Window
	}
	return &Tracker{
		store:  store,
		config: cfg,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// GetState returns the last stored state, or nil when none is known.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	return t.store.Load(ctx)
}

// Observe parses rate limit headers from a response and stores the state.
// Responses without the headers are ignored.
func (t *Tracker) Observe(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	state := &State{
		Remaining:  remain,
		LastUpdate: t.now(),
	}
	if v := headers.Get(HeaderLimit); v != "" {
		if state.Limit, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
	}
	if v := headers.Get(HeaderUsed); v != "" {
		if state.Used, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("parse %s header: %w", HeaderUsed, err)
		}
	}

	if err := t.store.Save(ctx, state); err != nil {
		return err
	}

	discogsRatelimitRemaining.Set(float64(remain))

	t.logger.Debug().
		Int("limit", state.Limit).
		Int("used", state.Used).
		Int("remaining", state.Remaining).
		Msg("Discogs rate limit state updated")

	return nil
}

// Wait blocks until a request may be sent under the last observed state.
// Store failures are logged and do not block requests.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable, allowing request")
		return nil
	}

	now := t.now()
	if state == nil || state.IsStale(now) {
		return nil
	}

	if state.NeedsWait() {
		wait := state.TimeUntilReset(now)
		if wait > t.config.MaxWait {
			return fmt.Errorf("%w: %s > %s", ErrWaitTooLong, wait, t.config.MaxWait)
		}

		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait_duration", wait).
			Msg("Discogs rate limit nearly exhausted - waiting for window reset")

		discogsRateLimitWaitsTotal.Inc()
		return t.sleep(ctx, wait)
	}

	if state.NeedsThrottling() && t.config.Throttle > 0 {
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Dur("throttle", t.config.Throttle).
			Msg("Discogs rate limit low - throttling request")

		discogsRateLimitThrottlesTotal.Inc()
		return t.sleep(ctx, t.config.Throttle)
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
