package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// ArticleStore is an in-memory implementation of storage.ArticleStore.
type ArticleStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.Article // keyed by id
	byURL map[string]string          // url -> id
}

// NewArticleStore creates a new in-memory article store.
func NewArticleStore() *ArticleStore {
	return &ArticleStore{
		data:  make(map[string]*domain.Article),
		byURL: make(map[string]string),
	}
}

// Insert adds a new article. Returns ErrDuplicateKey if the URL exists.
func (s *ArticleStore) Insert(_ context.Context, a *domain.Article) error {
	if a == nil || a.ID == "" || a.URL == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byURL[a.URL]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	articleCopy := *a
	s.data[a.ID] = &articleCopy
	s.byURL[a.URL] = a.ID
	return nil
}

// GetByID retrieves an article by its ID. Returns ErrNotFound if not exists.
func (s *ArticleStore) GetByID(_ context.Context, id string) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	articleCopy := *a
	return &articleCopy, nil
}

// GetByURL retrieves an article by URL. Returns ErrNotFound if not exists.
func (s *ArticleStore) GetByURL(_ context.Context, url string) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byURL[url]
	if !exists {
		return nil, storage.ErrNotFound
	}

	articleCopy := *s.data[id]
	return &articleCopy, nil
}

// GetByContentHashSince retrieves articles sharing a content fingerprint
// scraped at or after the cutoff, ordered by scraped_at ASC.
func (s *ArticleStore) GetByContentHashSince(_ context.Context, hash string, since time.Time) ([]*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Article
	for _, a := range s.data {
		if a.ContentHash == hash && !a.ScrapedAt.Before(since) {
			articleCopy := *a
			result = append(result, &articleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ScrapedAt.Equal(result[j].ScrapedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].ScrapedAt.Before(result[j].ScrapedAt)
	})

	return result, nil
}

// UpdateStatus transitions an article's processing status.
func (s *ArticleStore) UpdateStatus(_ context.Context, id string, status domain.ProcessingStatus, errorLog *string) error {
	if !status.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	a.Status = status
	if errorLog != nil {
		logCopy := *errorLog
		a.ErrorLog = &logCopy
	}
	return nil
}

// UpdateVeracity sets the multi-source confirmation fields.
func (s *ArticleStore) UpdateVeracity(_ context.Context, id string, veracity float64, sourceCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	a.VeracityScore = &veracity
	a.SourceCount = sourceCount
	return nil
}

// ListByStatus retrieves up to limit articles in the given status,
// ordered by scraped_at ASC.
func (s *ArticleStore) ListByStatus(_ context.Context, status domain.ProcessingStatus, limit int) ([]*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Article
	for _, a := range s.data {
		if a.Status == status {
			articleCopy := *a
			result = append(result, &articleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ScrapedAt.Equal(result[j].ScrapedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].ScrapedAt.Before(result[j].ScrapedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListRecent retrieves up to limit articles scraped at or after since,
// ordered by scraped_at DESC. A zero since means no cutoff.
func (s *ArticleStore) ListRecent(_ context.Context, since time.Time, limit int) ([]*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Article
	for _, a := range s.data {
		if !since.IsZero() && a.ScrapedAt.Before(since) {
			continue
		}
		articleCopy := *a
		result = append(result, &articleCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ScrapedAt.Equal(result[j].ScrapedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].ScrapedAt.After(result[j].ScrapedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountSince counts articles scraped at or after the cutoff.
func (s *ArticleStore) CountSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.data {
		if !a.ScrapedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// Verify interface compliance at compile time.
var _ storage.ArticleStore = (*ArticleStore)(nil)
