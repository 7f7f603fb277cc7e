package risk

import (
	"strings"
	"sync"
)

// SurgeTracker keeps the last risk score per location and flags jumps
// above the surge threshold. Single-writer within the scoring service;
// the mutex covers concurrent consumer workers.
type SurgeTracker struct {
	mu         sync.Mutex
	last       map[string]float64
	percentage float64
}

// NewSurgeTracker creates a tracker. percentage <= 0 defaults to 20.
func NewSurgeTracker(percentage float64) *SurgeTracker {
	if percentage <= 0 {
		percentage = 20
	}
	return &SurgeTracker{
		last:       make(map[string]float64),
		percentage: percentage,
	}
}

// Observe records a score for a location and reports whether it surged
// strictly more than the threshold percentage over the previous score.
// The first observation for a location never surges.
func (t *SurgeTracker) Observe(state, lga string, score float64) (detected bool, increase float64) {
	key := strings.ToLower(state) + ":" + strings.ToLower(lga)

	t.mu.Lock()
	defer t.mu.Unlock()

	previous, seen := t.last[key]
	t.last[key] = score

	if !seen || previous <= 0 {
		return false, 0
	}
	increase = (score - previous) / previous * 100
	return increase > t.percentage, increase
}

// Seen reports whether the tracker holds a baseline for a location.
func (t *SurgeTracker) Seen(state, lga string) bool {
	key := strings.ToLower(state) + ":" + strings.ToLower(lga)
	t.mu.Lock()
	defer t.mu.Unlock()
	_, seen := t.last[key]
	return seen
}

// Seed primes a location with a known previous score, used to warm the
// tracker from persisted history on startup.
func (t *SurgeTracker) Seed(state, lga string, score float64) {
	key := strings.ToLower(state) + ":" + strings.ToLower(lga)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.last[key]; !seen {
		t.last[key] = score
	}
}
