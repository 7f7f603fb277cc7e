package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
//
// Queryable fields live in dedicated columns; the full signal, with its
// several dozen optional context fields, is kept alongside as JSONB so
// the row layout does not churn every time the scoring model grows a
// factor.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// Insert adds a new signal. Returns ErrDuplicateKey if (event_id, version)
// already exists for a non-simulation signal.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.RiskSignal) error {
	details, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	query := `
		INSERT INTO risk_signals (
			id, event_id, state, lga, risk_score, risk_level, status,
			calculated_at, is_simulation, simulation_id, version, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.pool.Exec(ctx, query,
		sig.ID,
		sig.EventID,
		sig.State,
		sig.LGA,
		sig.RiskScore,
		string(sig.RiskLevel),
		string(sig.Status),
		sig.CalculatedAt,
		sig.IsSimulation,
		sig.SimulationID,
		sig.Version,
		details,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, id string) (*domain.RiskSignal, error) {
	row := s.pool.QueryRow(ctx, `SELECT details FROM risk_signals WHERE id = $1`, id)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return sig, nil
}

// GetLatestByEventID retrieves the highest-version signal for an event.
func (s *SignalStore) GetLatestByEventID(ctx context.Context, eventID string) (*domain.RiskSignal, error) {
	query := `
		SELECT details FROM risk_signals
		WHERE event_id = $1 AND NOT is_simulation
		ORDER BY version DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, eventID)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by event id: %w", err)
	}
	return sig, nil
}

// NextVersion returns the next monotonic version for a location.
func (s *SignalStore) NextVersion(ctx context.Context, state, lga string) (int64, error) {
	query := `
		SELECT COALESCE(MAX(version), 0) + 1 FROM risk_signals
		WHERE LOWER(state) = LOWER($1) AND LOWER(lga) = LOWER($2) AND NOT is_simulation
	`

	var v int64
	if err := s.pool.QueryRow(ctx, query, state, lga).Scan(&v); err != nil {
		return 0, fmt.Errorf("next signal version: %w", err)
	}
	return v, nil
}

// GetPreviousScore retrieves the risk score of the latest prior
// non-simulation signal for a location.
func (s *SignalStore) GetPreviousScore(ctx context.Context, state, lga string) (float64, error) {
	query := `
		SELECT risk_score FROM risk_signals
		WHERE LOWER(state) = LOWER($1) AND LOWER(lga) = LOWER($2) AND NOT is_simulation
		ORDER BY version DESC
		LIMIT 1
	`

	var score float64
	err := s.pool.QueryRow(ctx, query, state, lga).Scan(&score)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get previous score: %w", err)
	}
	return score, nil
}

// ListRecent retrieves up to limit non-simulation signals,
// ordered by calculated_at DESC.
func (s *SignalStore) ListRecent(ctx context.Context, limit int) ([]*domain.RiskSignal, error) {
	query := `
		SELECT details FROM risk_signals
		WHERE NOT is_simulation
		ORDER BY calculated_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// ListByLocation retrieves non-simulation signals for a location,
// ordered by version DESC, up to limit.
func (s *SignalStore) ListByLocation(ctx context.Context, state, lga string, limit int) ([]*domain.RiskSignal, error) {
	query := `
		SELECT details FROM risk_signals
		WHERE LOWER(state) = LOWER($1) AND LOWER(lga) = LOWER($2) AND NOT is_simulation
		ORDER BY version DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, state, lga, limit)
	if err != nil {
		return nil, fmt.Errorf("list signals by location: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// CountByLevelSince aggregates non-simulation signal counts per risk level.
func (s *SignalStore) CountByLevelSince(ctx context.Context, since time.Time) (map[domain.RiskLevel]int64, error) {
	query := `
		SELECT risk_level, COUNT(*)
		FROM risk_signals
		WHERE calculated_at >= $1 AND NOT is_simulation
		GROUP BY risk_level
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("count signals by level: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RiskLevel]int64)
	for rows.Next() {
		var levelStr string
		var n int64
		if err := rows.Scan(&levelStr, &n); err != nil {
			return nil, fmt.Errorf("scan signal count row: %w", err)
		}
		counts[domain.RiskLevel(levelStr)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal count rows: %w", err)
	}
	return counts, nil
}

// scanSignal unmarshals the details column into a RiskSignal.
func scanSignal(row pgx.Row) (*domain.RiskSignal, error) {
	var details []byte
	if err := row.Scan(&details); err != nil {
		return nil, err
	}

	var sig domain.RiskSignal
	if err := json.Unmarshal(details, &sig); err != nil {
		return nil, fmt.Errorf("unmarshal signal details: %w", err)
	}
	return &sig, nil
}

// scanSignals unmarshals multiple rows into a slice of RiskSignal.
func scanSignals(rows pgx.Rows) ([]*domain.RiskSignal, error) {
	var signals []*domain.RiskSignal

	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
