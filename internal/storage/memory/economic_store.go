package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// EconomicStore is an in-memory implementation of storage.EconomicStore.
type EconomicStore struct {
	mu   sync.RWMutex
	data map[string]*domain.EconomicRecord // keyed by lower(state)|lower(lga)
}

// NewEconomicStore creates a new in-memory economic store.
func NewEconomicStore() *EconomicStore {
	return &EconomicStore{
		data: make(map[string]*domain.EconomicRecord),
	}
}

func economicKey(state, lga string) string {
	return strings.ToLower(state) + "|" + strings.ToLower(lga)
}

// Upsert inserts or replaces the record for (state, lga).
func (s *EconomicStore) Upsert(_ context.Context, r *domain.EconomicRecord) error {
	if r == nil || r.State == "" || r.LGA == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *r
	s.data[economicKey(r.State, r.LGA)] = &recordCopy
	return nil
}

// GetByLocation retrieves the record for (state, lga), case-insensitively.
func (s *EconomicStore) GetByLocation(_ context.Context, state, lga string) (*domain.EconomicRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[economicKey(state, lga)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	return &recordCopy, nil
}

// GetAnyByState retrieves one record for the state when no LGA-level
// record exists.
func (s *EconomicStore) GetAnyByState(_ context.Context, state string) (*domain.EconomicRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*domain.EconomicRecord
	for _, r := range s.data {
		if strings.EqualFold(r.State, state) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil, storage.ErrNotFound
	}

	// Deterministic choice: lowest lga
	sort.Slice(candidates, func(i, j int) bool {
		return strings.ToLower(candidates[i].LGA) < strings.ToLower(candidates[j].LGA)
	})

	recordCopy := *candidates[0]
	return &recordCopy, nil
}

// GetAll retrieves all records, ordered by state then lga.
func (s *EconomicStore) GetAll(_ context.Context) ([]*domain.EconomicRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.EconomicRecord, 0, len(s.data))
	for _, r := range s.data {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !strings.EqualFold(result[i].State, result[j].State) {
			return strings.ToLower(result[i].State) < strings.ToLower(result[j].State)
		}
		return strings.ToLower(result[i].LGA) < strings.ToLower(result[j].LGA)
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.EconomicStore = (*EconomicStore)(nil)
