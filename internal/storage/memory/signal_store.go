package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RiskSignal // keyed by id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.RiskSignal),
	}
}

// Insert adds a new signal. Returns ErrDuplicateKey if (event_id, version)
// already exists for a non-simulation signal.
func (s *SignalStore) Insert(_ context.Context, sig *domain.RiskSignal) error {
	if sig == nil || sig.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if !sig.IsSimulation && sig.EventID != nil {
		for _, other := range s.data {
			if !other.IsSimulation && other.EventID != nil &&
				*other.EventID == *sig.EventID && other.Version == sig.Version {
				return storage.ErrDuplicateKey
			}
		}
	}

	signalCopy := *sig
	s.data[sig.ID] = &signalCopy
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, id string) (*domain.RiskSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	signalCopy := *sig
	return &signalCopy, nil
}

// GetLatestByEventID retrieves the highest-version signal for an event.
func (s *SignalStore) GetLatestByEventID(_ context.Context, eventID string) (*domain.RiskSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.RiskSignal
	for _, sig := range s.data {
		if sig.IsSimulation || sig.EventID == nil || *sig.EventID != eventID {
			continue
		}
		if latest == nil || sig.Version > latest.Version {
			latest = sig
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	signalCopy := *latest
	return &signalCopy, nil
}

// NextVersion returns the next monotonic version for a location.
func (s *SignalStore) NextVersion(_ context.Context, state, lga string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for _, sig := range s.data {
		if sig.IsSimulation || !sameLocation(sig, state, lga) {
			continue
		}
		if sig.Version > max {
			max = sig.Version
		}
	}
	return max + 1, nil
}

// GetPreviousScore retrieves the risk score of the latest prior
// non-simulation signal for a location.
func (s *SignalStore) GetPreviousScore(_ context.Context, state, lga string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.RiskSignal
	for _, sig := range s.data {
		if sig.IsSimulation || !sameLocation(sig, state, lga) {
			continue
		}
		if latest == nil || sig.Version > latest.Version {
			latest = sig
		}
	}
	if latest == nil {
		return 0, storage.ErrNotFound
	}
	return latest.RiskScore, nil
}

// ListRecent retrieves up to limit non-simulation signals,
// ordered by calculated_at DESC.
func (s *SignalStore) ListRecent(_ context.Context, limit int) ([]*domain.RiskSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskSignal
	for _, sig := range s.data {
		if sig.IsSimulation {
			continue
		}
		signalCopy := *sig
		result = append(result, &signalCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CalculatedAt.Equal(result[j].CalculatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CalculatedAt.After(result[j].CalculatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListByLocation retrieves non-simulation signals for a location,
// ordered by version DESC, up to limit.
func (s *SignalStore) ListByLocation(_ context.Context, state, lga string, limit int) ([]*domain.RiskSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskSignal
	for _, sig := range s.data {
		if sig.IsSimulation || !sameLocation(sig, state, lga) {
			continue
		}
		signalCopy := *sig
		result = append(result, &signalCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Version > result[j].Version
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountByLevelSince aggregates non-simulation signal counts per risk level.
func (s *SignalStore) CountByLevelSince(_ context.Context, since time.Time) (map[domain.RiskLevel]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.RiskLevel]int64)
	for _, sig := range s.data {
		if sig.IsSimulation || sig.CalculatedAt.Before(since) {
			continue
		}
		counts[sig.RiskLevel]++
	}
	return counts, nil
}

func sameLocation(sig *domain.RiskSignal, state, lga string) bool {
	return strings.EqualFold(sig.State, state) && strings.EqualFold(sig.LGA, lga)
}

// Verify interface compliance at compile time.
var _ storage.SignalStore = (*SignalStore)(nil)
