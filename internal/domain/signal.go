package domain

import "time"

// RiskLevel is the qualitative band derived from a risk score.
type RiskLevel string

const (
	LevelMinimal  RiskLevel = "Minimal"
	LevelLow      RiskLevel = "Low"
	LevelMedium   RiskLevel = "Medium"
	LevelHigh     RiskLevel = "High"
	LevelCritical RiskLevel = "Critical"
)

// LevelForScore derives the risk level from a clamped score.
// Thresholds: >=80 Critical, >=60 High, >=40 Medium, >=20 Low.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	case score >= 20:
		return LevelLow
	default:
		return LevelMinimal
	}
}

// SignalStatus is the binary alert state of a signal.
type SignalStatus string

const (
	StatusNormal   SignalStatus = "NORMAL"
	StatusCritical SignalStatus = "CRITICAL"
)

// StatusForScore returns CRITICAL iff the score reaches the critical band.
func StatusForScore(score float64) SignalStatus {
	if score >= 80 {
		return StatusCritical
	}
	return StatusNormal
}

// GeoPoint is a WGS84 coordinate pair, GeoJSON axis order.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// RiskSignal is the scored output of the pipeline for one event (or one
// simulation pass over an event). Corresponds to the risk_signals table.
// Signals are append-only; Version is monotonic per (state, lga) and the
// highest version is authoritative when queried.
type RiskSignal struct {
	ID            string       `json:"id"`
	EventID       *string      `json:"event_id,omitempty"`
	State         string       `json:"state"`
	LGA           string       `json:"lga"`
	Severity      Severity     `json:"severity"`
	EventType     EventType    `json:"event_type"`
	RiskScore     float64      `json:"risk_score"` // clamped to [0,100]
	RiskLevel     RiskLevel    `json:"risk_level"`
	Status        SignalStatus `json:"status"`
	TriggerReason string       `json:"trigger_reason"`
	SourceTitle   string       `json:"source_title,omitempty"`
	SourceURL     string       `json:"source_url,omitempty"`
	CalculatedAt  time.Time    `json:"calculated_at"`
	Geo           *GeoPoint    `json:"geo,omitempty"`

	// Economic snapshot used for the calculation.
	FuelPrice *float64 `json:"fuel_price,omitempty"`
	Inflation *float64 `json:"inflation,omitempty"`

	// Climate indicators.
	FloodInundationIndex  *float64 `json:"flood_inundation_index,omitempty"`
	PrecipitationAnomaly  *float64 `json:"precipitation_anomaly,omitempty"`
	VegetationHealthIndex *float64 `json:"vegetation_health_index,omitempty"`

	// Mining indicators.
	MiningProximityKm    *float64 `json:"mining_proximity_km,omitempty"`
	MiningSiteName       *string  `json:"mining_site_name,omitempty"`
	HighFundingPotential bool     `json:"high_funding_potential"`
	InformalTaxationRate *float64 `json:"informal_taxation_rate,omitempty"`

	// Border indicators.
	BorderActivity          *string  `json:"border_activity,omitempty"`
	LakurawaPresence        bool     `json:"lakurawa_presence"`
	BorderPermeabilityScore *float64 `json:"border_permeability_score,omitempty"`
	GroupAffiliation        *string  `json:"group_affiliation,omitempty"`
	SophisticatedIEDUsage   bool     `json:"sophisticated_ied_usage"`

	// State-level strategic indicators.
	ClimateVulnerability *float64 `json:"climate_vulnerability,omitempty"`
	MiningDensity        *float64 `json:"mining_density,omitempty"`
	MigrationPressure    *float64 `json:"migration_pressure,omitempty"`
	PovertyRate          *float64 `json:"poverty_rate,omitempty"`

	// Derived flags.
	HighEscalationPotential bool     `json:"high_escalation_potential"`
	IsFarmerHerderConflict  bool     `json:"is_farmer_herder_conflict"`
	ConflictDriver          *string  `json:"conflict_driver,omitempty"`
	SurgeDetected           bool     `json:"surge_detected"`
	SurgePercentageIncrease *float64 `json:"surge_percentage_increase,omitempty"`

	// Categorization.
	Category   string `json:"category,omitempty"`
	Confidence int    `json:"confidence,omitempty"`

	// Simulation fields.
	IsSimulation    bool     `json:"is_simulation"`
	SimulationID    *string  `json:"simulation_id,omitempty"`
	HeatmapWeight   *float64 `json:"heatmap_weight,omitempty"`
	HeatmapRadiusKm *float64 `json:"heatmap_radius_km,omitempty"`
	IsUrban         bool     `json:"is_urban"`

	Version int64 `json:"version"`
}
