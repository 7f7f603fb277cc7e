package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForScore_Bands(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, LevelMinimal},
		{19.9, LevelMinimal},
		{20, LevelLow},
		{39.9, LevelLow},
		{40, LevelMedium},
		{59.9, LevelMedium},
		{60, LevelHigh},
		{79.9, LevelHigh},
		{80, LevelCritical},
		{100, LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForScore(tt.score), "score %g", tt.score)
	}
}

func TestStatusForScore_CriticalBoundary(t *testing.T) {
	assert.Equal(t, StatusNormal, StatusForScore(79.9))
	assert.Equal(t, StatusCritical, StatusForScore(80))
	assert.Equal(t, StatusCritical, StatusForScore(100))
}

func TestMapEventType_CoercesUnknown(t *testing.T) {
	assert.Equal(t, EventClash, MapEventType("Clash"))
	assert.Equal(t, EventAttack, MapEventType("  ATTACK "))
	assert.Equal(t, EventOther, MapEventType("other"))
	assert.Equal(t, EventUnknown, MapEventType("skirmish"))
	assert.Equal(t, EventUnknown, MapEventType(""))
}

func TestMapSeverity_CoercesUnknown(t *testing.T) {
	assert.Equal(t, SeverityHigh, MapSeverity("HIGH"))
	assert.Equal(t, SeverityUnknown, MapSeverity("extreme"))
	assert.Equal(t, SeverityUnknown, MapSeverity(""))
}

func TestSimulationParams_Validate(t *testing.T) {
	valid := SimulationParams{FuelPriceIndex: 50, InflationRate: 25, ChatterIntensity: 30}
	assert.NoError(t, valid.Validate())

	assert.Error(t, SimulationParams{FuelPriceIndex: 120, InflationRate: 25, ChatterIntensity: 30}.Validate())
	assert.Error(t, SimulationParams{FuelPriceIndex: 50, InflationRate: -1, ChatterIntensity: 30}.Validate())
	assert.Error(t, SimulationParams{FuelPriceIndex: 50, InflationRate: 25, ChatterIntensity: 101}.Validate())

	zero := SimulationParams{}
	assert.NoError(t, zero.Validate())
}
