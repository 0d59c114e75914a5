// Package backoff computes reconnect delays per termination cause.
package backoff

import (
	"time"

	"github.com/vietddude/streamwatch/internal/core/domain"
)

// State is the accumulated backoff for the current run of failures.
// Reset to zero whenever the stream shows healthy activity.
type State time.Duration

// Seconds returns the state as float seconds, for metrics.
func (s State) Seconds() float64 {
	return time.Duration(s).Seconds()
}

// Policy holds the per-category growth laws.
type Policy struct {
	NetworkStep     time.Duration // linear increment for network timeouts
	NetworkCap      time.Duration
	SignalDelay     time.Duration // fixed delay for an explicit backoff signal (HTTP 304)
	RateLimitBase   time.Duration // first delay after a rate-limit status
	RateLimitCap    time.Duration
	ServerErrorBase time.Duration // first delay after a server error
	ServerErrorCap  time.Duration
}

// DefaultPolicy returns the reference deployment's laws:
// linear 250ms capped 16s, fixed 60s, doubling from 60s capped 3840s,
// doubling from 5s capped 320s.
func DefaultPolicy() Policy {
	return Policy{
		NetworkStep:     250 * time.Millisecond,
		NetworkCap:      16 * time.Second,
		SignalDelay:     60 * time.Second,
		RateLimitBase:   60 * time.Second,
		RateLimitCap:    3840 * time.Second,
		ServerErrorBase: 5 * time.Second,
		ServerErrorCap:  320 * time.Second,
	}
}

// Next maps (state, cause) to the next state and the delay to wait
// before reconnecting. Pure; the caller owns the state.
// For every non-reset category the new state equals the delay.
func (p Policy) Next(s State, cause domain.TerminationCause) (State, time.Duration) {
	switch cause.Category() {
	case domain.CategorySelfTimeout:
		// Expected idle-interval reconnect, not a failure.
		return 0, 0

	case domain.CategoryNetworkTimeout:
		next := time.Duration(s) + p.NetworkStep
		if next > p.NetworkCap {
			next = p.NetworkCap
		}
		return State(next), next

	case domain.CategoryBackoffSignal:
		return State(p.SignalDelay), p.SignalDelay

	case domain.CategoryRateLimited:
		next := doubled(time.Duration(s), p.RateLimitBase, p.RateLimitCap)
		return State(next), next

	case domain.CategoryServerError:
		next := doubled(time.Duration(s), p.ServerErrorBase, p.ServerErrorCap)
		return State(next), next
	}

	// Fatal categories never reconnect; the state is dead weight.
	return s, 0
}

func doubled(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		return base
	}
	next := current * 2
	if next > ceiling {
		next = ceiling
	}
	return next
}
