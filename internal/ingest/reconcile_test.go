package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflict-signal/internal/bus"
	busmemory "conflict-signal/internal/bus/memory"
	"conflict-signal/internal/domain"
	storememory "conflict-signal/internal/storage/memory"
)

func TestReconciler_RepublishesStalePending(t *testing.T) {
	articles := storememory.NewArticleStore()
	b := busmemory.New(busmemory.Options{})
	var c collector
	cancel := c.start(t, b, bus.QueueArticles)
	defer cancel()

	now := time.Now().UTC()
	seed := []*domain.Article{
		{ID: "stale-1", URL: "https://news.ng/1", Title: "t1", ContentHash: "h1", Status: domain.StatusPending, ScrapedAt: now.Add(-time.Hour)},
		{ID: "stale-2", URL: "https://news.ng/2", Title: "t2", ContentHash: "h2", Status: domain.StatusPending, ScrapedAt: now.Add(-30 * time.Minute)},
		{ID: "fresh-1", URL: "https://news.ng/3", Title: "t3", ContentHash: "h3", Status: domain.StatusPending, ScrapedAt: now},
		{ID: "done-1", URL: "https://news.ng/4", Title: "t4", ContentHash: "h4", Status: domain.StatusProcessed, ScrapedAt: now.Add(-time.Hour)},
	}
	for _, a := range seed {
		require.NoError(t, articles.Insert(context.Background(), a))
	}

	r := NewReconciler(ReconcilerOptions{
		Articles:  articles,
		Publisher: b,
		MinAge:    10 * time.Minute,
	})

	n, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	published := c.wait(t, 2)
	require.Len(t, published, 2)
	ids := []string{published[0].ID, published[1].ID}
	assert.ElementsMatch(t, []string{"stale-1", "stale-2"}, ids)
}

func TestReconciler_EmptySweep(t *testing.T) {
	r := NewReconciler(ReconcilerOptions{
		Articles:  storememory.NewArticleStore(),
		Publisher: busmemory.New(busmemory.Options{}),
	})

	n, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
