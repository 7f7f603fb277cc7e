package ingest

import (
	"context"
	"log"
	"time"

	"conflict-signal/internal/bus"
	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// Reconciler republishes pending articles whose downstream message may
// have been lost. Extraction is idempotent on article id, so a
// redundant republish is harmless.
type Reconciler struct {
	articles  storage.ArticleStore
	publisher bus.Publisher
	logger    *log.Logger

	interval  time.Duration
	minAge    time.Duration
	batchSize int

	now func() time.Time
}

// ReconcilerOptions contains configuration for creating a Reconciler.
type ReconcilerOptions struct {
	Articles  storage.ArticleStore
	Publisher bus.Publisher
	Logger    *log.Logger

	// Interval between sweeps. Default 5m.
	Interval time.Duration

	// MinAge is how long an article must have been pending before the
	// sweep republishes it, leaving freshly published messages alone.
	// Default 10m.
	MinAge time.Duration

	// BatchSize bounds one sweep. Default 100.
	BatchSize int
}

// NewReconciler creates a pending-article reconciler.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	interval := opts.Interval
	if interval == 0 {
		interval = 5 * time.Minute
	}
	minAge := opts.MinAge
	if minAge == 0 {
		minAge = 10 * time.Minute
	}
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = 100
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		articles:  opts.Articles,
		publisher: opts.Publisher,
		logger:    logger,
		interval:  interval,
		minAge:    minAge,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run sweeps periodically until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := r.Sweep(ctx); err != nil {
				r.logger.Printf("reconciliation sweep failed: %v", err)
			} else if n > 0 {
				r.logger.Printf("reconciliation republished %d pending articles", n)
			}
		}
	}
}

// Sweep republishes one batch of stale pending articles and returns
// how many were republished.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	pending, err := r.articles.ListByStatus(ctx, domain.StatusPending, r.batchSize)
	if err != nil {
		return 0, err
	}

	cutoff := r.now().Add(-r.minAge)
	republished := 0
	for _, a := range pending {
		if a.ScrapedAt.After(cutoff) {
			continue
		}
		if err := bus.PublishJSON(ctx, r.publisher, bus.QueueArticles, a); err != nil {
			r.logger.Printf("republish %s failed: %v", a.ID, err)
			continue
		}
		republished++
	}
	return republished, nil
}
