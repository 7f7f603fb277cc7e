package memory

import (
	"context"
	"sync"
	"time"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// RiskTimeseriesStore is an in-memory implementation of
// storage.RiskTimeseriesStore, used in tests and when no analytics
// backend is configured.
type RiskTimeseriesStore struct {
	mu   sync.RWMutex
	data []*domain.RiskSignal
}

// NewRiskTimeseriesStore creates a new in-memory risk timeseries store.
func NewRiskTimeseriesStore() *RiskTimeseriesStore {
	return &RiskTimeseriesStore{}
}

// InsertBulk appends signal points.
func (s *RiskTimeseriesStore) InsertBulk(_ context.Context, signals []*domain.RiskSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sig := range signals {
		signalCopy := *sig
		s.data = append(s.data, &signalCopy)
	}
	return nil
}

// AverageScoreByState aggregates mean risk score per state at or after the cutoff.
func (s *RiskTimeseriesStore) AverageScoreByState(_ context.Context, since time.Time) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, sig := range s.data {
		if sig.IsSimulation || sig.CalculatedAt.Before(since) {
			continue
		}
		sums[sig.State] += sig.RiskScore
		counts[sig.State]++
	}

	out := make(map[string]float64, len(sums))
	for state, sum := range sums {
		out[state] = sum / float64(counts[state])
	}
	return out, nil
}

// Verify interface compliance at compile time.
var _ storage.RiskTimeseriesStore = (*RiskTimeseriesStore)(nil)
