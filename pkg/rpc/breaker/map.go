package breaker

import (
	"sync"
	"time"
)

// Map holds one SreBreaker per path, created lazily and first-writer-wins
// under concurrent access: two goroutines racing to create the same path's
// breaker both end up using whichever one won the race, never two.
type Map struct {
	k       float64
	window  time.Duration
	metrics *Metrics
	m       sync.Map // path string -> *SreBreaker
}

// NewMap creates a Map whose breakers use aggressiveness k over window.
// metrics may be nil to disable per-path accept/reject counters.
func NewMap(k float64, window time.Duration, metrics *Metrics) *Map {
	return &Map{k: k, window: window, metrics: metrics}
}

// Breaker returns the SreBreaker for path, creating it if this is the first
// time path has been seen.
func (m *Map) Breaker(path string) *SreBreaker {
	if v, ok := m.m.Load(path); ok {
		return v.(*SreBreaker)
	}
	fresh := New(m.k, m.window)
	actual, _ := m.m.LoadOrStore(path, fresh)
	return actual.(*SreBreaker)
}

// Allow looks up (or creates) path's breaker, asks it whether to admit the
// request, and records the decision in metrics if configured.
func (m *Map) Allow(path string) (*SreBreaker, bool) {
	b := m.Breaker(path)
	ok := b.Allow()
	if m.metrics != nil {
		m.metrics.observe(path, ok)
	}
	return b, ok
}

// Stat is a point-in-time snapshot of one path's breaker state.
type Stat struct {
	Path                 string
	Requests             int64
	Accepts              int64
	RejectionProbability float64
}

// Snapshot returns the current state of every breaker the Map has created.
func (m *Map) Snapshot() []Stat {
	var stats []Stat
	m.m.Range(func(key, value any) bool {
		b := value.(*SreBreaker)
		requests, accepts, p := b.Snapshot()
		stats = append(stats, Stat{
			Path:                 key.(string),
			Requests:             requests,
			Accepts:              accepts,
			RejectionProbability: p,
		})
		return true
	})
	return stats
}
