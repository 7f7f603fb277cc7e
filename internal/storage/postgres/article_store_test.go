package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

func sampleArticle(id, url string, scrapedAt time.Time) *domain.Article {
	return &domain.Article{
		ID:          id,
		URL:         url,
		Title:       "Gunmen attack village in Zamfara",
		Content:     "Armed men raided the village at dawn, residents said.",
		Source:      "example.ng",
		ScrapedAt:   scrapedAt,
		ContentHash: "hash-" + id,
		Status:      domain.StatusPending,
	}
}

func TestArticleStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArticleStore(pool)
	ctx := context.Background()

	a := sampleArticle("art-001", "https://example.ng/news/1", time.Now().UTC().Truncate(time.Millisecond))
	a.RiskScore = ptr(42.5)

	err := store.Insert(ctx, a)
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "art-001")
	require.NoError(t, err)

	assert.Equal(t, a.URL, retrieved.URL)
	assert.Equal(t, a.Title, retrieved.Title)
	assert.Equal(t, a.ContentHash, retrieved.ContentHash)
	assert.Equal(t, domain.StatusPending, retrieved.Status)
	require.NotNil(t, retrieved.RiskScore)
	assert.Equal(t, 42.5, *retrieved.RiskScore)

	byURL, err := store.GetByURL(ctx, "https://example.ng/news/1")
	require.NoError(t, err)
	assert.Equal(t, "art-001", byURL.ID)
}

func TestArticleStore_DuplicateURL(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArticleStore(pool)
	ctx := context.Background()

	err := store.Insert(ctx, sampleArticle("art-001", "https://example.ng/news/1", time.Now()))
	require.NoError(t, err)

	// Same URL under a different id
	err = store.Insert(ctx, sampleArticle("art-002", "https://example.ng/news/1", time.Now()))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestArticleStore_UpdateStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArticleStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleArticle("art-001", "https://example.ng/news/1", time.Now())))

	err := store.UpdateStatus(ctx, "art-001", domain.StatusFailed, ptr("llm timeout"))
	require.NoError(t, err)

	retrieved, err := store.GetByID(ctx, "art-001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, retrieved.Status)
	require.NotNil(t, retrieved.ErrorLog)
	assert.Equal(t, "llm timeout", *retrieved.ErrorLog)

	// Nil errorLog keeps the existing log
	require.NoError(t, store.UpdateStatus(ctx, "art-001", domain.StatusProcessed, nil))
	retrieved, err = store.GetByID(ctx, "art-001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, retrieved.Status)
	require.NotNil(t, retrieved.ErrorLog)

	err = store.UpdateStatus(ctx, "missing", domain.StatusProcessed, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestArticleStore_ContentHashWindow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArticleStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	old := sampleArticle("art-old", "https://example.ng/news/old", now.Add(-48*time.Hour))
	old.ContentHash = "same-hash"
	recent := sampleArticle("art-new", "https://example.ng/news/new", now.Add(-time.Hour))
	recent.ContentHash = "same-hash"

	require.NoError(t, store.Insert(ctx, old))
	require.NoError(t, store.Insert(ctx, recent))

	got, err := store.GetByContentHashSince(ctx, "same-hash", now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "art-new", got[0].ID)
}

func TestArticleStore_VeracityAndCounts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArticleStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Insert(ctx, sampleArticle("art-001", "https://example.ng/news/1", now)))

	require.NoError(t, store.UpdateVeracity(ctx, "art-001", 1.0, 2))

	retrieved, err := store.GetByID(ctx, "art-001")
	require.NoError(t, err)
	require.NotNil(t, retrieved.VeracityScore)
	assert.Equal(t, 1.0, *retrieved.VeracityScore)
	assert.Equal(t, 2, retrieved.SourceCount)

	n, err := store.CountSince(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestArticleStore_ListByStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewArticleStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"art-1", "art-2", "art-3"} {
		a := sampleArticle(id, "https://example.ng/news/"+id, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Insert(ctx, a))
	}
	require.NoError(t, store.UpdateStatus(ctx, "art-2", domain.StatusProcessed, nil))

	pending, err := store.ListByStatus(ctx, domain.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "art-1", pending[0].ID)
	assert.Equal(t, "art-3", pending[1].ID)
}
