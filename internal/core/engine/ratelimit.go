package engine

import (
	"sync"
	"time"
)

// DefaultMinInterval spaces provider calls for free-tier quotas (5 requests/minute).
const DefaultMinInterval = 12 * time.Second

// Decision is the outcome of a TryAcquire call.
type Decision struct {
	Granted    bool
	RetryAfter time.Duration
}

// RateGate admits at most one outbound call per minimum interval.
//
// It is a single-slot limiter, not a token bucket: idle time never accumulates
// into a burst. Rejected callers are not queued; they wait and retry or give up.
type RateGate struct {
	mu           sync.Mutex
	accepted     bool
	lastAccepted time.Time
}

// NewRateGate returns a gate whose first call is always admitted.
func NewRateGate() *RateGate {
	return &RateGate{}
}

// TryAcquire admits the call when at least minInterval has elapsed since the last
// admitted call, recording now as the new last-accepted time.
func (g *RateGate) TryAcquire(now time.Time, minInterval time.Duration) Decision {
	if g == nil {
		return Decision{Granted: true}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accepted {
		elapsed := now.Sub(g.lastAccepted)
		if elapsed < minInterval {
			return Decision{RetryAfter: minInterval - elapsed}
		}
	}

	g.accepted = true
	g.lastAccepted = now
	return Decision{Granted: true}
}

// LastAccepted returns the time of the last admitted call (zero if none).
func (g *RateGate) LastAccepted() time.Time {
	if g == nil {
		return time.Time{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastAccepted
}
