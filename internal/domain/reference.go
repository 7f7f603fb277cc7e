package domain

// ClimateRecord holds satellite-derived climate indicators for one LGA.
type ClimateRecord struct {
	State                 string  `json:"state"`
	LGA                   string  `json:"lga"`
	FloodInundationIndex  float64 `json:"flood_inundation_index"`  // percent of area inundated
	PrecipitationAnomaly  float64 `json:"precipitation_anomaly"`   // mm vs baseline
	VegetationHealthIndex float64 `json:"vegetation_health_index"` // 0..1
}

// ClimateImpact classifies a climate stress zone polygon.
type ClimateImpact string

const (
	ImpactHigh       ClimateImpact = "High"
	ImpactMediumHigh ClimateImpact = "Medium-High"
	ImpactMedium     ClimateImpact = "Medium"
	ImpactLow        ClimateImpact = "Low"
)

// ClimateZone is a polygonal climate stress zone. Events whose
// coordinates fall inside the polygon pick up the zone's risk
// contribution.
type ClimateZone struct {
	Region              string        `json:"region"`
	Indicator           string        `json:"indicator"`
	RecessionIndex      float64       `json:"recession_index"`
	Impact              ClimateImpact `json:"impact_zone"`
	ConflictCorrelation float64       `json:"conflict_correlation"` // 0..1
	Polygon             [][2]float64  `json:"polygon"`              // [lon, lat] ring, implicitly closed
}

// MiningSite is a known artisanal or industrial mining location.
type MiningSite struct {
	Name                 string  `json:"name"`
	State                string  `json:"state"`
	Lat                  float64 `json:"lat"`
	Lon                  float64 `json:"lon"`
	MineralType          string  `json:"mineral_type,omitempty"`
	InformalTaxationRate float64 `json:"informal_taxation_rate,omitempty"` // 0..1
	ActivityLevel        string  `json:"activity_level,omitempty"`
	SecurityIncidents30d int     `json:"security_incidents_last_30_days,omitempty"`
}

// BorderActivityLevel grades cross-border militant activity in a zone.
type BorderActivityLevel string

const (
	BorderLow      BorderActivityLevel = "Low"
	BorderMedium   BorderActivityLevel = "Medium"
	BorderHigh     BorderActivityLevel = "High"
	BorderCritical BorderActivityLevel = "Critical"
)

// BorderZone describes cross-border activity intelligence for one state.
type BorderZone struct {
	State                     string              `json:"state"`
	Activity                  BorderActivityLevel `json:"border_activity"`
	PermeabilityScore         float64             `json:"border_permeability_score"` // 0..1
	GroupAffiliation          string              `json:"group_affiliation,omitempty"`
	LakurawaPresenceConfirmed bool                `json:"lakurawa_presence_confirmed"`
	SophisticatedIEDUsage     bool                `json:"sophisticated_ied_usage"`
}
