package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu        sync.RWMutex
	data      map[string]*domain.ParsedEvent // keyed by id
	byArticle map[string]string              // article_id -> id
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data:      make(map[string]*domain.ParsedEvent),
		byArticle: make(map[string]string),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id or
// article_id already exists.
func (s *EventStore) Insert(_ context.Context, e *domain.ParsedEvent) error {
	if e == nil || e.ID == "" || e.ArticleID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byArticle[e.ArticleID]; exists {
		return storage.ErrDuplicateKey
	}

	eventCopy := *e
	s.data[e.ID] = &eventCopy
	s.byArticle[e.ArticleID] = e.ID
	return nil
}

// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
func (s *EventStore) GetByID(_ context.Context, id string) (*domain.ParsedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	eventCopy := *e
	return &eventCopy, nil
}

// GetByArticleID retrieves the event extracted from an article.
func (s *EventStore) GetByArticleID(_ context.Context, articleID string) (*domain.ParsedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byArticle[articleID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	eventCopy := *s.data[id]
	return &eventCopy, nil
}

// GetAll retrieves all events, ordered by parsed_at ASC.
func (s *EventStore) GetAll(_ context.Context) ([]*domain.ParsedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ParsedEvent, 0, len(s.data))
	for _, e := range s.data {
		eventCopy := *e
		result = append(result, &eventCopy)
	}

	sortEventsAsc(result)
	return result, nil
}

// ListRecent retrieves up to limit events, ordered by parsed_at DESC.
func (s *EventStore) ListRecent(_ context.Context, limit int) ([]*domain.ParsedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ParsedEvent, 0, len(s.data))
	for _, e := range s.data {
		eventCopy := *e
		result = append(result, &eventCopy)
	}

	sortEventsAsc(result)
	// Reverse for DESC
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountByTypeSince aggregates event counts per event_type at or after the cutoff.
func (s *EventStore) CountByTypeSince(_ context.Context, since time.Time) (map[domain.EventType]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.EventType]int64)
	for _, e := range s.data {
		if !e.ParsedAt.Before(since) {
			counts[e.EventType]++
		}
	}
	return counts, nil
}

func sortEventsAsc(events []*domain.ParsedEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].ParsedAt.Equal(events[j].ParsedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].ParsedAt.Before(events[j].ParsedAt)
	})
}

// Verify interface compliance at compile time.
var _ storage.EventStore = (*EventStore)(nil)
