// Package ratelimit implements Discogs rate limit tracking and request gating.
// It follows the X-Discogs-Ratelimit, X-Discogs-Ratelimit-Used and
// X-Discogs-Ratelimit-Remaining headers, which describe a moving one minute
// window per token.
package ratelimit

import (
	"time"
)

// Header names sent by Discogs on every API response.
const (
	HeaderLimit     = "X-Discogs-Ratelimit"
	HeaderUsed      = "X-Discogs-Ratelimit-Used"
	HeaderRemaining = "X-Discogs-Ratelimit-Remaining"
)

// Window is the length of the Discogs moving rate limit window.
const Window = 60 * time.Second

// Thresholds for rate limit decisions.
const (
	// RemainingCritical makes requests wait for the window to roll over.
	RemainingCritical = 2

	// RemainingWarning slows requests down.
	RemainingWarning = 10
)

// State is the last observed rate limit state for one token.
type State struct {
	Limit      int       `json:"limit"`
	Used       int       `json:"used"`
	Remaining  int       `json:"remaining"`
	LastUpdate time.Time `json:"last_update"`
}

// IsStale reports whether a full window has passed since the state was
// observed, in which case it no longer constrains anything.
func (s *State) IsStale(now time.Time) bool {
	return now.Sub(s.LastUpdate) >= Window
}

// NeedsWait returns true if requests should wait for the window to reset.
func (s *State) NeedsWait() bool {
	return s.Remaining < RemainingCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *State) NeedsThrottling() bool {
	return s.Remaining < RemainingWarning && !s.NeedsWait()
}

// TimeUntilReset returns how long until the window that produced this state
// has fully rolled over. Returns 0 if it already has.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	d := s.LastUpdate.Add(Window).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
