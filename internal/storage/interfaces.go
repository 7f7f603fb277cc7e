package storage

import (
	"context"
	"time"

	"conflict-signal/internal/domain"
)

// ArticleStore provides access to articles storage.
type ArticleStore interface {
	// Insert adds a new article. Returns ErrDuplicateKey if the URL exists.
	Insert(ctx context.Context, a *domain.Article) error

	// GetByID retrieves an article by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Article, error)

	// GetByURL retrieves an article by URL. Returns ErrNotFound if not exists.
	GetByURL(ctx context.Context, url string) (*domain.Article, error)

	// GetByContentHashSince retrieves articles sharing a content fingerprint
	// scraped at or after the cutoff, ordered by scraped_at ASC.
	GetByContentHashSince(ctx context.Context, hash string, since time.Time) ([]*domain.Article, error)

	// UpdateStatus transitions an article's processing status. errorLog is
	// recorded when non-nil. Returns ErrNotFound if the article does not exist.
	UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errorLog *string) error

	// UpdateVeracity sets the multi-source confirmation fields on the
	// surviving article of a duplicate group.
	UpdateVeracity(ctx context.Context, id string, veracity float64, sourceCount int) error

	// ListByStatus retrieves up to limit articles in the given status,
	// ordered by scraped_at ASC. Used for pending-article reconciliation.
	ListByStatus(ctx context.Context, status domain.ProcessingStatus, limit int) ([]*domain.Article, error)

	// ListRecent retrieves up to limit articles scraped at or after
	// since, ordered by scraped_at DESC. A zero since means no cutoff.
	ListRecent(ctx context.Context, since time.Time, limit int) ([]*domain.Article, error)

	// CountSince counts articles scraped at or after the cutoff.
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// EventStore provides access to parsed_events storage.
type EventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id or
	// article_id already exists; redelivered articles insert nothing.
	Insert(ctx context.Context, e *domain.ParsedEvent) error

	// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.ParsedEvent, error)

	// GetByArticleID retrieves the event extracted from an article.
	// Returns ErrNotFound if not exists.
	GetByArticleID(ctx context.Context, articleID string) (*domain.ParsedEvent, error)

	// GetAll retrieves all events, ordered by parsed_at ASC. Simulation
	// scores every persisted event in one pass.
	GetAll(ctx context.Context) ([]*domain.ParsedEvent, error)

	// ListRecent retrieves up to limit events, ordered by parsed_at DESC.
	ListRecent(ctx context.Context, limit int) ([]*domain.ParsedEvent, error)

	// CountByTypeSince aggregates event counts per event_type at or after
	// the cutoff.
	CountByTypeSince(ctx context.Context, since time.Time) (map[domain.EventType]int64, error)
}

// SignalStore provides access to risk_signals storage. Signals are
// append-only; recalculation writes a higher version.
type SignalStore interface {
	// Insert adds a new signal. Returns ErrDuplicateKey if (event_id, version)
	// already exists for a non-simulation signal.
	Insert(ctx context.Context, s *domain.RiskSignal) error

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.RiskSignal, error)

	// GetLatestByEventID retrieves the highest-version signal for an event.
	// Returns ErrNotFound if not exists.
	GetLatestByEventID(ctx context.Context, eventID string) (*domain.RiskSignal, error)

	// NextVersion returns the next monotonic version for a location.
	NextVersion(ctx context.Context, state, lga string) (int64, error)

	// GetPreviousScore retrieves the risk score of the latest prior
	// non-simulation signal for a location, for surge detection.
	// Returns ErrNotFound when the location has no history.
	GetPreviousScore(ctx context.Context, state, lga string) (float64, error)

	// ListRecent retrieves up to limit non-simulation signals,
	// ordered by calculated_at DESC.
	ListRecent(ctx context.Context, limit int) ([]*domain.RiskSignal, error)

	// ListByLocation retrieves non-simulation signals for a location,
	// ordered by version DESC, up to limit.
	ListByLocation(ctx context.Context, state, lga string, limit int) ([]*domain.RiskSignal, error)

	// CountByLevelSince aggregates non-simulation signal counts per risk
	// level at or after the cutoff.
	CountByLevelSince(ctx context.Context, since time.Time) (map[domain.RiskLevel]int64, error)
}

// EconomicStore provides access to economic_data storage.
type EconomicStore interface {
	// Upsert inserts or replaces the record for (state, lga).
	Upsert(ctx context.Context, r *domain.EconomicRecord) error

	// GetByLocation retrieves the record for (state, lga), both matched
	// case-insensitively. Returns ErrNotFound if not exists.
	GetByLocation(ctx context.Context, state, lga string) (*domain.EconomicRecord, error)

	// GetAnyByState retrieves one record for the state when no LGA-level
	// record exists. Returns ErrNotFound if the state has no rows.
	GetAnyByState(ctx context.Context, state string) (*domain.EconomicRecord, error)

	// GetAll retrieves all records, ordered by state then lga.
	GetAll(ctx context.Context) ([]*domain.EconomicRecord, error)
}

// StrategicStore provides access to state-level strategic indicators.
type StrategicStore interface {
	// Upsert inserts or replaces the indicators for a state.
	Upsert(ctx context.Context, s *domain.StrategicIndicators) error

	// GetByState retrieves indicators for a state, matched
	// case-insensitively. Returns ErrNotFound if not exists.
	GetByState(ctx context.Context, state string) (*domain.StrategicIndicators, error)

	// GetAll retrieves all indicators, ordered by state.
	GetAll(ctx context.Context) ([]*domain.StrategicIndicators, error)
}

// RiskTimeseriesStore records scored signals for analytical queries.
// Optional at runtime; a nil-safe no-op implementation is used when no
// analytics backend is configured.
type RiskTimeseriesStore interface {
	// InsertBulk appends signal points. Analytics writes are best-effort
	// and never block the scoring path.
	InsertBulk(ctx context.Context, signals []*domain.RiskSignal) error

	// AverageScoreByState aggregates mean risk score per state at or
	// after the cutoff.
	AverageScoreByState(ctx context.Context, since time.Time) (map[string]float64, error)
}
