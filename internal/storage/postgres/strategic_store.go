package postgres

import (
	"context"
	"fmt"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// StrategicStore implements storage.StrategicStore using PostgreSQL.
type StrategicStore struct {
	pool *Pool
}

// NewStrategicStore creates a new StrategicStore.
func NewStrategicStore(pool *Pool) *StrategicStore {
	return &StrategicStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategicStore = (*StrategicStore)(nil)

const strategicColumns = `
	state, poverty_rate, inflation_rate, unemployment,
	mining_density, climate_vulnerability, migration_pressure
`

// Upsert inserts or replaces the indicators for a state.
func (s *StrategicStore) Upsert(ctx context.Context, ind *domain.StrategicIndicators) error {
	query := `
		INSERT INTO strategic_indicators (
			state, poverty_rate, inflation_rate, unemployment,
			mining_density, climate_vulnerability, migration_pressure
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (state) DO UPDATE SET
			poverty_rate = EXCLUDED.poverty_rate,
			inflation_rate = EXCLUDED.inflation_rate,
			unemployment = EXCLUDED.unemployment,
			mining_density = EXCLUDED.mining_density,
			climate_vulnerability = EXCLUDED.climate_vulnerability,
			migration_pressure = EXCLUDED.migration_pressure
	`

	_, err := s.pool.Exec(ctx, query,
		ind.State,
		ind.PovertyRate,
		ind.InflationRate,
		ind.Unemployment,
		ind.MiningDensity,
		ind.ClimateVulnerability,
		ind.MigrationPressure,
	)
	if err != nil {
		return fmt.Errorf("upsert strategic indicators: %w", err)
	}
	return nil
}

// GetByState retrieves indicators for a state, case-insensitively.
func (s *StrategicStore) GetByState(ctx context.Context, state string) (*domain.StrategicIndicators, error) {
	query := `SELECT ` + strategicColumns + ` FROM strategic_indicators WHERE LOWER(state) = LOWER($1)`

	var ind domain.StrategicIndicators
	err := s.pool.QueryRow(ctx, query, state).Scan(
		&ind.State,
		&ind.PovertyRate,
		&ind.InflationRate,
		&ind.Unemployment,
		&ind.MiningDensity,
		&ind.ClimateVulnerability,
		&ind.MigrationPressure,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategic indicators: %w", err)
	}
	return &ind, nil
}

// GetAll retrieves all indicators, ordered by state.
func (s *StrategicStore) GetAll(ctx context.Context) ([]*domain.StrategicIndicators, error) {
	query := `SELECT ` + strategicColumns + ` FROM strategic_indicators ORDER BY state ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all strategic indicators: %w", err)
	}
	defer rows.Close()

	var out []*domain.StrategicIndicators
	for rows.Next() {
		var ind domain.StrategicIndicators
		err := rows.Scan(
			&ind.State,
			&ind.PovertyRate,
			&ind.InflationRate,
			&ind.Unemployment,
			&ind.MiningDensity,
			&ind.ClimateVulnerability,
			&ind.MigrationPressure,
		)
		if err != nil {
			return nil, fmt.Errorf("scan strategic row: %w", err)
		}
		out = append(out, &ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategic rows: %w", err)
	}
	return out, nil
}
