package domain

import "time"

// EconomicRecord holds per-LGA economic indicators joined into every
// scoring pass. Corresponds to the economic_data table; upserted by
// state+lga when reference CSVs are loaded.
type EconomicRecord struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	LGA           string    `json:"lga"`
	FuelPrice     float64   `json:"fuel_price"`     // NGN per litre
	InflationRate float64   `json:"inflation_rate"` // percent, year over year
	FoodPriceIdx  *float64  `json:"food_price_index,omitempty"`
	Unemployment  *float64  `json:"unemployment_rate,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StrategicIndicators are state-level structural risk factors, loaded
// from reference data and keyed by state name (case-insensitive).
// All values are normalized to [0,1].
type StrategicIndicators struct {
	State                string  `json:"state"`
	PovertyRate          float64 `json:"poverty_rate"`
	InflationRate        float64 `json:"inflation_rate"`
	Unemployment         float64 `json:"unemployment"`
	MiningDensity        float64 `json:"mining_density"`
	ClimateVulnerability float64 `json:"climate_vulnerability"`
	MigrationPressure    float64 `json:"migration_pressure"`
}
