package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

func testEvent(id, articleID string, parsedAt time.Time) *domain.ParsedEvent {
	return &domain.ParsedEvent{
		ID:          id,
		ArticleID:   articleID,
		EventType:   domain.EventAttack,
		State:       "Zamfara",
		LGA:         "Anka",
		Severity:    domain.SeverityHigh,
		SourceTitle: "Gunmen attack village",
		SourceURL:   "https://example.ng/" + articleID,
		ParsedAt:    parsedAt,
	}
}

func TestEventStore_InsertAndGet(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	e := testEvent("e1", "a1", time.Now())
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "e1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.State != "Zamfara" {
		t.Errorf("State mismatch: got %s, want Zamfara", got.State)
	}

	byArticle, err := store.GetByArticleID(ctx, "a1")
	if err != nil {
		t.Fatalf("GetByArticleID failed: %v", err)
	}
	if byArticle.ID != "e1" {
		t.Errorf("ID mismatch: got %s, want e1", byArticle.ID)
	}
}

func TestEventStore_DuplicateArticle(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testEvent("e1", "a1", time.Now())); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	// Redelivered article produces the same article_id
	err := store.Insert(ctx, testEvent("e2", "a1", time.Now()))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestEventStore_GetAllOrdered(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Insert(ctx, testEvent("e2", "a2", now)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testEvent("e1", "a1", now.Add(-time.Hour))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "e1" || all[1].ID != "e2" {
		t.Errorf("Wrong order: %v", []string{all[0].ID, all[1].ID})
	}

	recent, err := store.ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "e2" {
		t.Errorf("ListRecent should return newest first")
	}
}

func TestEventStore_CountByTypeSince(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()
	now := time.Now()

	e1 := testEvent("e1", "a1", now)
	e2 := testEvent("e2", "a2", now)
	e2.EventType = domain.EventKidnapping
	old := testEvent("e3", "a3", now.Add(-48*time.Hour))

	for _, e := range []*domain.ParsedEvent{e1, e2, old} {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	counts, err := store.CountByTypeSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountByTypeSince failed: %v", err)
	}
	if counts[domain.EventAttack] != 1 || counts[domain.EventKidnapping] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}
