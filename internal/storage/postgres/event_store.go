package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `
	id, article_id, event_type, state, lga, severity, fatalities,
	conflict_actor, source_title, source_url, content,
	latitude, longitude, confidence_score, parsed_at
`

// Insert adds a new event. Returns ErrDuplicateKey if event_id or
// article_id already exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.ParsedEvent) error {
	query := `
		INSERT INTO parsed_events (
			id, article_id, event_type, state, lga, severity, fatalities,
			conflict_actor, source_title, source_url, content,
			latitude, longitude, confidence_score, parsed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.pool.Exec(ctx, query,
		e.ID,
		e.ArticleID,
		string(e.EventType),
		e.State,
		e.LGA,
		string(e.Severity),
		e.Fatalities,
		e.ConflictActor,
		e.SourceTitle,
		e.SourceURL,
		e.Content,
		e.Latitude,
		e.Longitude,
		e.Confidence,
		e.ParsedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by its ID. Returns ErrNotFound if not exists.
func (s *EventStore) GetByID(ctx context.Context, id string) (*domain.ParsedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM parsed_events WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	e, err := scanEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get event by id: %w", err)
	}
	return e, nil
}

// GetByArticleID retrieves the event extracted from an article.
func (s *EventStore) GetByArticleID(ctx context.Context, articleID string) (*domain.ParsedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM parsed_events WHERE article_id = $1`

	row := s.pool.QueryRow(ctx, query, articleID)
	e, err := scanEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get event by article id: %w", err)
	}
	return e, nil
}

// GetAll retrieves all events, ordered by parsed_at ASC.
func (s *EventStore) GetAll(ctx context.Context) ([]*domain.ParsedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM parsed_events ORDER BY parsed_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent retrieves up to limit events, ordered by parsed_at DESC.
func (s *EventStore) ListRecent(ctx context.Context, limit int) ([]*domain.ParsedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM parsed_events ORDER BY parsed_at DESC, id DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountByTypeSince aggregates event counts per event_type at or after the cutoff.
func (s *EventStore) CountByTypeSince(ctx context.Context, since time.Time) (map[domain.EventType]int64, error) {
	query := `
		SELECT event_type, COUNT(*)
		FROM parsed_events
		WHERE parsed_at >= $1
		GROUP BY event_type
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("count events by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EventType]int64)
	for rows.Next() {
		var typeStr string
		var n int64
		if err := rows.Scan(&typeStr, &n); err != nil {
			return nil, fmt.Errorf("scan event count row: %w", err)
		}
		counts[domain.EventType(typeStr)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event count rows: %w", err)
	}
	return counts, nil
}

// scanEvent scans a single row into a ParsedEvent.
func scanEvent(row pgx.Row) (*domain.ParsedEvent, error) {
	var e domain.ParsedEvent
	var typeStr, severityStr string

	err := row.Scan(
		&e.ID,
		&e.ArticleID,
		&typeStr,
		&e.State,
		&e.LGA,
		&severityStr,
		&e.Fatalities,
		&e.ConflictActor,
		&e.SourceTitle,
		&e.SourceURL,
		&e.Content,
		&e.Latitude,
		&e.Longitude,
		&e.Confidence,
		&e.ParsedAt,
	)
	if err != nil {
		return nil, err
	}

	e.EventType = domain.EventType(typeStr)
	e.Severity = domain.Severity(severityStr)
	return &e, nil
}

// scanEvents scans multiple rows into a slice of ParsedEvent.
func scanEvents(rows pgx.Rows) ([]*domain.ParsedEvent, error) {
	var events []*domain.ParsedEvent

	for rows.Next() {
		var e domain.ParsedEvent
		var typeStr, severityStr string

		err := rows.Scan(
			&e.ID,
			&e.ArticleID,
			&typeStr,
			&e.State,
			&e.LGA,
			&severityStr,
			&e.Fatalities,
			&e.ConflictActor,
			&e.SourceTitle,
			&e.SourceURL,
			&e.Content,
			&e.Latitude,
			&e.Longitude,
			&e.Confidence,
			&e.ParsedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.EventType = domain.EventType(typeStr)
		e.Severity = domain.Severity(severityStr)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
