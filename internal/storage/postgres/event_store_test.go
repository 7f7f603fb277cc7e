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

func sampleEvent(id, articleID string, parsedAt time.Time) *domain.ParsedEvent {
	return &domain.ParsedEvent{
		ID:          id,
		ArticleID:   articleID,
		EventType:   domain.EventAttack,
		State:       "Zamfara",
		LGA:         "Anka",
		Severity:    domain.SeverityHigh,
		Fatalities:  4,
		SourceTitle: "Gunmen attack village",
		SourceURL:   "https://example.ng/news/" + articleID,
		Content:     "Armed men raided the village at dawn.",
		ParsedAt:    parsedAt,
	}
}

func insertArticleFor(t *testing.T, pool *Pool, articleID string) {
	t.Helper()
	store := NewArticleStore(pool)
	a := sampleArticle(articleID, "https://example.ng/news/"+articleID, time.Now().UTC())
	require.NoError(t, store.Insert(context.Background(), a))
}

func TestEventStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(pool)
	ctx := context.Background()

	insertArticleFor(t, pool, "art-001")

	e := sampleEvent("evt-001", "art-001", time.Now().UTC().Truncate(time.Millisecond))
	e.Latitude = ptr(12.11)
	e.Longitude = ptr(5.93)
	e.Confidence = ptr(88.0)

	require.NoError(t, store.Insert(ctx, e))

	retrieved, err := store.GetByID(ctx, "evt-001")
	require.NoError(t, err)
	assert.Equal(t, domain.EventAttack, retrieved.EventType)
	assert.Equal(t, "Zamfara", retrieved.State)
	assert.Equal(t, domain.SeverityHigh, retrieved.Severity)
	assert.Equal(t, 4, retrieved.Fatalities)
	require.NotNil(t, retrieved.Latitude)
	assert.Equal(t, 12.11, *retrieved.Latitude)

	byArticle, err := store.GetByArticleID(ctx, "art-001")
	require.NoError(t, err)
	assert.Equal(t, "evt-001", byArticle.ID)
}

func TestEventStore_DuplicateArticle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(pool)
	ctx := context.Background()

	insertArticleFor(t, pool, "art-001")

	require.NoError(t, store.Insert(ctx, sampleEvent("evt-001", "art-001", time.Now().UTC())))

	// Redelivery of the same article must not create a second event
	err := store.Insert(ctx, sampleEvent("evt-002", "art-001", time.Now().UTC()))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEventStore_GetAllAndCounts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventStore(pool)
	ctx := context.Background()
	now := time.Now().UTC()

	insertArticleFor(t, pool, "art-001")
	insertArticleFor(t, pool, "art-002")

	e1 := sampleEvent("evt-001", "art-001", now.Add(-time.Hour))
	e2 := sampleEvent("evt-002", "art-002", now)
	e2.EventType = domain.EventKidnapping
	require.NoError(t, store.Insert(ctx, e1))
	require.NoError(t, store.Insert(ctx, e2))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "evt-001", all[0].ID)

	recent, err := store.ListRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "evt-002", recent[0].ID)

	counts, err := store.CountByTypeSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.EventAttack])
	assert.Equal(t, int64(1), counts[domain.EventKidnapping])
}
