package domain

import "fmt"

// SimulationParams are the what-if inputs for a simulation pass.
// All three indices are percentages in [0,100].
type SimulationParams struct {
	FuelPriceIndex   float64 `json:"fuel_price_index"`
	InflationRate    float64 `json:"inflation_rate"`
	ChatterIntensity float64 `json:"chatter_intensity"`
}

// Validate checks that every parameter is inside its allowed range.
func (p SimulationParams) Validate() error {
	check := func(name string, v float64) error {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be in [0,100], got %g", name, v)
		}
		return nil
	}
	if err := check("fuel_price_index", p.FuelPriceIndex); err != nil {
		return err
	}
	if err := check("inflation_rate", p.InflationRate); err != nil {
		return err
	}
	return check("chatter_intensity", p.ChatterIntensity)
}

// SimulationSummary is the aggregate metadata attached to a simulation's
// GeoJSON FeatureCollection output.
type SimulationSummary struct {
	SimulationID        string           `json:"simulation_id"`
	Params              SimulationParams `json:"parameters"`
	TotalEvents         int              `json:"total_events"`
	CountsPerLevel      map[string]int   `json:"counts_per_level"`
	SimulatedCategories map[string]int   `json:"simulated_categories"`
	GeneratedAt         string           `json:"generated_at"`
}
