// Package breaker implements Google SRE-style adaptive throttling client-side
// admission control: rather than flipping between open/closed states, it
// probabilistically sheds an increasing share of requests as the recent
// success rate degrades.
package breaker

import (
	"math/rand/v2"
	"sync"
	"time"
)

// DefaultK is the SRE formula's aggressiveness constant: lower values shed
// load earlier. 2 is the value Google's SRE book uses as its example.
const DefaultK = 2.0

// DefaultWindow is how long accept/request counts are accumulated before
// rotating to a fresh window.
const DefaultWindow = 10 * time.Second

// SreBreaker tracks a sliding window of (requests, accepts) for a single
// path and decides whether a new request should be admitted.
//
//	rejectionProbability = max(0, (requests - k*accepts) / (requests + 1))
//
// requests counts every call that was itself admitted and ran to
// completion; accepts counts the subset that succeeded.
type SreBreaker struct {
	k      float64
	window time.Duration

	mu          sync.Mutex
	windowStart time.Time
	requests    int64
	accepts     int64

	randFloat64 func() float64
}

// New creates an SreBreaker with aggressiveness k over the given window.
func New(k float64, window time.Duration) *SreBreaker {
	if k <= 0 {
		k = DefaultK
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &SreBreaker{
		k:           k,
		window:      window,
		windowStart: time.Now(),
		randFloat64: rand.Float64,
	}
}

// Allow reports whether a new request should be admitted, given the current
// window's counters. It does not itself affect those counters; call
// MarkSuccess or MarkFailed once the request's outcome is known.
func (b *SreBreaker) Allow() bool {
	b.mu.Lock()
	b.rotateLocked()
	requests := float64(b.requests)
	accepts := float64(b.accepts)
	b.mu.Unlock()

	p := rejectionProbability(requests, accepts, b.k)
	if p <= 0 {
		return true
	}
	return b.randFloat64() >= p
}

// MarkSuccess records an admitted request that completed successfully.
func (b *SreBreaker) MarkSuccess() { b.record(true) }

// MarkFailed records an admitted request that completed with an error.
func (b *SreBreaker) MarkFailed() { b.record(false) }

// Snapshot returns the current window's counters and resulting rejection
// probability, for diagnostics.
func (b *SreBreaker) Snapshot() (requests, accepts int64, rejectionProb float64) {
	b.mu.Lock()
	b.rotateLocked()
	requests, accepts = b.requests, b.accepts
	b.mu.Unlock()
	return requests, accepts, rejectionProbability(float64(requests), float64(accepts), b.k)
}

func (b *SreBreaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotateLocked()
	b.requests++
	if ok {
		b.accepts++
	}
}

// rotateLocked resets the window once it has elapsed. Callers must hold mu.
func (b *SreBreaker) rotateLocked() {
	if time.Since(b.windowStart) < b.window {
		return
	}
	b.windowStart = time.Now()
	b.requests = 0
	b.accepts = 0
}

func rejectionProbability(requests, accepts, k float64) float64 {
	p := (requests - k*accepts) / (requests + 1)
	if p < 0 {
		return 0
	}
	return p
}
