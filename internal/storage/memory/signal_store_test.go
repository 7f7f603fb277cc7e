package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

func testSignal(id, eventID, state, lga string, score float64, version int64) *domain.RiskSignal {
	return &domain.RiskSignal{
		ID:           id,
		EventID:      &eventID,
		State:        state,
		LGA:          lga,
		EventType:    domain.EventClash,
		Severity:     domain.SeverityHigh,
		RiskScore:    score,
		RiskLevel:    domain.LevelForScore(score),
		Status:       domain.StatusForScore(score),
		CalculatedAt: time.Now(),
		Version:      version,
	}
}

func TestSignalStore_InsertAndGet(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sig := testSignal("s1", "e1", "Benue", "Guma", 75, 1)
	if err := store.Insert(ctx, sig); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.RiskScore != 75 {
		t.Errorf("RiskScore mismatch: got %g, want 75", got.RiskScore)
	}
	if got.RiskLevel != domain.LevelHigh {
		t.Errorf("RiskLevel mismatch: got %s, want High", got.RiskLevel)
	}
}

func TestSignalStore_DuplicateEventVersion(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSignal("s1", "e1", "Benue", "Guma", 75, 1)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	// Same (event_id, version) under a different id should fail
	err := store.Insert(ctx, testSignal("s2", "e1", "Benue", "Guma", 75, 1))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Higher version is fine
	if err := store.Insert(ctx, testSignal("s3", "e1", "Benue", "Guma", 80, 2)); err != nil {
		t.Errorf("Higher version insert failed: %v", err)
	}
}

func TestSignalStore_Versioning(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	v, err := store.NextVersion(ctx, "Benue", "Guma")
	if err != nil {
		t.Fatalf("NextVersion failed: %v", err)
	}
	if v != 1 {
		t.Errorf("First version should be 1, got %d", v)
	}

	if err := store.Insert(ctx, testSignal("s1", "e1", "Benue", "Guma", 45, v)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Case-insensitive location match
	v, err = store.NextVersion(ctx, "benue", "GUMA")
	if err != nil {
		t.Fatalf("NextVersion failed: %v", err)
	}
	if v != 2 {
		t.Errorf("Second version should be 2, got %d", v)
	}
}

func TestSignalStore_PreviousScore(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if _, err := store.GetPreviousScore(ctx, "Benue", "Guma"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty history, got %v", err)
	}

	if err := store.Insert(ctx, testSignal("s1", "e1", "Benue", "Guma", 45, 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testSignal("s2", "e2", "Benue", "Guma", 60, 2)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	score, err := store.GetPreviousScore(ctx, "Benue", "Guma")
	if err != nil {
		t.Fatalf("GetPreviousScore failed: %v", err)
	}
	if score != 60 {
		t.Errorf("Expected latest score 60, got %g", score)
	}
}

func TestSignalStore_SimulationExcluded(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sim := testSignal("s1", "e1", "Benue", "Guma", 90, 1)
	sim.IsSimulation = true
	if err := store.Insert(ctx, sim); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Simulation signals never feed surge history or listings
	if _, err := store.GetPreviousScore(ctx, "Benue", "Guma"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Simulation signal leaked into history: %v", err)
	}

	recent, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("Simulation signal leaked into ListRecent: %d rows", len(recent))
	}

	// Duplicate (event_id, version) is allowed for simulations
	sim2 := testSignal("s2", "e1", "Benue", "Guma", 90, 1)
	sim2.IsSimulation = true
	if err := store.Insert(ctx, sim2); err != nil {
		t.Errorf("Simulation duplicate should be allowed: %v", err)
	}
}

func TestSignalStore_CountByLevelSince(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSignal("s1", "e1", "Benue", "Guma", 85, 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testSignal("s2", "e2", "Benue", "Makurdi", 45, 1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	counts, err := store.CountByLevelSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountByLevelSince failed: %v", err)
	}
	if counts[domain.LevelCritical] != 1 || counts[domain.LevelMedium] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}
