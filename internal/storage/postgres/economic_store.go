package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/storage"
)

// EconomicStore implements storage.EconomicStore using PostgreSQL.
type EconomicStore struct {
	pool *Pool
}

// NewEconomicStore creates a new EconomicStore.
func NewEconomicStore(pool *Pool) *EconomicStore {
	return &EconomicStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EconomicStore = (*EconomicStore)(nil)

const economicColumns = `
	id, state, lga, fuel_price, inflation_rate,
	food_price_index, unemployment_rate, updated_at
`

// Upsert inserts or replaces the record for (state, lga).
func (s *EconomicStore) Upsert(ctx context.Context, r *domain.EconomicRecord) error {
	query := `
		INSERT INTO economic_data (
			id, state, lga, fuel_price, inflation_rate,
			food_price_index, unemployment_rate, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (state, lga) DO UPDATE SET
			fuel_price = EXCLUDED.fuel_price,
			inflation_rate = EXCLUDED.inflation_rate,
			food_price_index = EXCLUDED.food_price_index,
			unemployment_rate = EXCLUDED.unemployment_rate,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID,
		r.State,
		r.LGA,
		r.FuelPrice,
		r.InflationRate,
		r.FoodPriceIdx,
		r.Unemployment,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert economic record: %w", err)
	}
	return nil
}

// GetByLocation retrieves the record for (state, lga), case-insensitively.
func (s *EconomicStore) GetByLocation(ctx context.Context, state, lga string) (*domain.EconomicRecord, error) {
	query := `
		SELECT ` + economicColumns + `
		FROM economic_data
		WHERE LOWER(state) = LOWER($1) AND LOWER(lga) = LOWER($2)
	`

	row := s.pool.QueryRow(ctx, query, state, lga)
	r, err := scanEconomic(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get economic record by location: %w", err)
	}
	return r, nil
}

// GetAnyByState retrieves one record for the state when no LGA-level
// record exists.
func (s *EconomicStore) GetAnyByState(ctx context.Context, state string) (*domain.EconomicRecord, error) {
	query := `
		SELECT ` + economicColumns + `
		FROM economic_data
		WHERE LOWER(state) = LOWER($1)
		ORDER BY lga ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, state)
	r, err := scanEconomic(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get economic record by state: %w", err)
	}
	return r, nil
}

// GetAll retrieves all records, ordered by state then lga.
func (s *EconomicStore) GetAll(ctx context.Context) ([]*domain.EconomicRecord, error) {
	query := `SELECT ` + economicColumns + ` FROM economic_data ORDER BY state ASC, lga ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all economic records: %w", err)
	}
	defer rows.Close()

	var records []*domain.EconomicRecord
	for rows.Next() {
		r, err := scanEconomic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan economic row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate economic rows: %w", err)
	}
	return records, nil
}

// scanEconomic scans a single row into an EconomicRecord.
func scanEconomic(row pgx.Row) (*domain.EconomicRecord, error) {
	var r domain.EconomicRecord

	err := row.Scan(
		&r.ID,
		&r.State,
		&r.LGA,
		&r.FuelPrice,
		&r.InflationRate,
		&r.FoodPriceIdx,
		&r.Unemployment,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
