package clickhouse

import (
	"context"
	"fmt"
	"time"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/observability"
	"conflict-signal/internal/storage"
)

// RiskTimeseriesStore implements storage.RiskTimeseriesStore using ClickHouse.
// MergeTree does not enforce uniqueness; the scoring path already
// deduplicates by (event_id, version) before writing here.
type RiskTimeseriesStore struct {
	conn *Conn
}

// NewRiskTimeseriesStore creates a new RiskTimeseriesStore.
func NewRiskTimeseriesStore(conn *Conn) *RiskTimeseriesStore {
	return &RiskTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RiskTimeseriesStore = (*RiskTimeseriesStore)(nil)

// InsertBulk appends signal points.
func (s *RiskTimeseriesStore) InsertBulk(ctx context.Context, signals []*domain.RiskSignal) error {
	if len(signals) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO risk_timeseries (
			signal_id, event_id, state, lga, event_type, severity,
			risk_score, risk_level, status, is_simulation, version, calculated_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sig := range signals {
		eventID := ""
		if sig.EventID != nil {
			eventID = *sig.EventID
		}
		err = batch.Append(
			sig.ID, eventID, sig.State, sig.LGA,
			string(sig.EventType), string(sig.Severity),
			sig.RiskScore, string(sig.RiskLevel), string(sig.Status),
			sig.IsSimulation, uint64(sig.Version), sig.CalculatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// AverageScoreByState aggregates mean risk score per state at or after the cutoff.
func (s *RiskTimeseriesStore) AverageScoreByState(ctx context.Context, since time.Time) (map[string]float64, error) {
	query := `
		SELECT state, avg(risk_score)
		FROM risk_timeseries
		WHERE calculated_at >= ? AND is_simulation = false
		GROUP BY state
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, since)
	observability.RecordDBQuery("clickhouse", "select", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query average score: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var state string
		var avg float64
		if err := rows.Scan(&state, &avg); err != nil {
			return nil, fmt.Errorf("scan average score row: %w", err)
		}
		out[state] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate average score rows: %w", err)
	}
	return out, nil
}
