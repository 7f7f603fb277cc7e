package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// StrategicStore is an in-memory implementation of storage.StrategicStore.
type StrategicStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StrategicIndicators // keyed by lower(state)
}

// NewStrategicStore creates a new in-memory strategic store.
func NewStrategicStore() *StrategicStore {
	return &StrategicStore{
		data: make(map[string]*domain.StrategicIndicators),
	}
}

// Upsert inserts or replaces the indicators for a state.
func (s *StrategicStore) Upsert(_ context.Context, ind *domain.StrategicIndicators) error {
	if ind == nil || ind.State == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	indCopy := *ind
	s.data[strings.ToLower(ind.State)] = &indCopy
	return nil
}

// GetByState retrieves indicators for a state, case-insensitively.
func (s *StrategicStore) GetByState(_ context.Context, state string) (*domain.StrategicIndicators, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ind, exists := s.data[strings.ToLower(state)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	indCopy := *ind
	return &indCopy, nil
}

// GetAll retrieves all indicators, ordered by state.
func (s *StrategicStore) GetAll(_ context.Context) ([]*domain.StrategicIndicators, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.StrategicIndicators, 0, len(s.data))
	for _, ind := range s.data {
		indCopy := *ind
		result = append(result, &indCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].State) < strings.ToLower(result[j].State)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.StrategicStore = (*StrategicStore)(nil)
