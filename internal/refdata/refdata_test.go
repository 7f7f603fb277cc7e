package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflict-signal/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_AllFiles(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, ClimateZonesFile, `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"geometry": {"type": "Polygon", "coordinates": [[[13.0, 12.5], [14.5, 12.5], [14.5, 13.5], [13.0, 13.5]]]},
			"properties": {"region": "Lake Chad Basin", "indicator": "water_recession", "recession_index": 0.85, "impact_zone": "High", "conflict_correlation": 0.78}
		}]
	}`)
	writeFile(t, dir, ClimateRecordsFile, `[
		{"state": "Benue", "lga": "Guma", "flood_inundation_index": 34.5, "precipitation_anomaly": -12.0, "vegetation_health_index": 0.41}
	]`)
	writeFile(t, dir, MiningSitesFile, `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [6.25, 12.17]},
			"properties": {"name": "Anka Gold Field", "state": "Zamfara", "mineral_type": "gold", "informal_taxation_rate": 0.35, "activity_level": "High", "security_incidents_last_30_days": 7}
		}]
	}`)
	writeFile(t, dir, BorderZonesFile, `[
		{"state": "Sokoto", "border_activity": "High", "border_permeability_score": 0.8, "group_affiliation": "Lakurawa", "lakurawa_presence_confirmed": true, "sophisticated_ied_usage": false}
	]`)
	writeFile(t, dir, StrategicFile,
		"state,poverty_rate,inflation_rate,unemployment,mining_density,climate_vulnerability,migration_pressure\n"+
			"Zamfara,0.68,0.33,0.41,0.82,0.55,0.47\n")
	writeFile(t, dir, EconomicFile,
		"state,lga,fuel_price,inflation_rate,food_price_index,unemployment_rate\n"+
			"Lagos,Ikeja,720,28.5,165.2,0.31\n"+
			"Sokoto,Wurno,680,30.1,,\n")

	set := Load(dir, Options{})

	assert.Empty(t, set.Missing)
	require.Len(t, set.ClimateZones, 1)
	assert.Equal(t, domain.ImpactHigh, set.ClimateZones[0].Impact)
	assert.Equal(t, 0.85, set.ClimateZones[0].RecessionIndex)

	require.Len(t, set.MiningSites, 1)
	assert.Equal(t, "gold", set.MiningSites[0].MineralType)
	assert.Equal(t, 12.17, set.MiningSites[0].Lat)
	assert.Equal(t, 7, set.MiningSites[0].SecurityIncidents30d)

	require.Len(t, set.BorderZones, 1)
	assert.Equal(t, domain.BorderHigh, set.BorderZones[0].Activity)
	assert.True(t, set.BorderZones[0].LakurawaPresenceConfirmed)

	ind := set.StrategicFor("zamfara")
	require.NotNil(t, ind)
	assert.Equal(t, 0.82, ind.MiningDensity)

	require.Len(t, set.Economic, 2)
	assert.Equal(t, 720.0, set.Economic[0].FuelPrice)
	require.NotNil(t, set.Economic[0].FoodPriceIdx)
	assert.Equal(t, 165.2, *set.Economic[0].FoodPriceIdx)
	assert.Nil(t, set.Economic[1].FoodPriceIdx)
}

func TestLoad_MissingFilesDegrade(t *testing.T) {
	set := Load(t.TempDir(), Options{})

	assert.Len(t, set.Missing, 6)
	assert.Empty(t, set.ClimateZones)
	assert.Nil(t, set.BorderZone("Sokoto"))
	_, _, ok := set.NearestMiningSite(12.0, 6.0)
	assert.False(t, ok)
}

func TestLookups(t *testing.T) {
	set := &Set{
		ClimateZones: []domain.ClimateZone{{
			Region:  "Lake Chad Basin",
			Impact:  domain.ImpactHigh,
			Polygon: [][2]float64{{13.0, 12.5}, {14.5, 12.5}, {14.5, 13.5}, {13.0, 13.5}},
		}},
		ClimateRecords: []domain.ClimateRecord{
			{State: "Benue", LGA: "Guma", FloodInundationIndex: 34.5},
			{State: "Benue", LGA: "Makurdi", FloodInundationIndex: 12.0},
		},
		MiningSites: []domain.MiningSite{
			{Name: "Anka Gold Field", State: "Zamfara", Lat: 12.17, Lon: 6.25},
			{Name: "Jos Tin Field", State: "Plateau", Lat: 9.9, Lon: 8.9},
		},
		BorderZones: []domain.BorderZone{{State: "Sokoto", Activity: domain.BorderHigh}},
	}

	// Zone lookup
	assert.NotNil(t, set.ZoneContaining(13.7, 13.0))
	assert.Nil(t, set.ZoneContaining(3.4, 6.5))

	// Exact LGA, then state fallback
	rec := set.ClimateRecord("benue", "guma")
	require.NotNil(t, rec)
	assert.Equal(t, 34.5, rec.FloodInundationIndex)
	rec = set.ClimateRecord("Benue", "Otukpo")
	require.NotNil(t, rec)
	assert.Equal(t, "Guma", rec.LGA)
	assert.Nil(t, set.ClimateRecord("Lagos", "Ikeja"))

	// Nearest site
	site, km, ok := set.NearestMiningSite(12.2, 6.3)
	require.True(t, ok)
	assert.Equal(t, "Anka Gold Field", site.Name)
	assert.Less(t, km, 10.0)

	// Border, case-insensitive
	assert.NotNil(t, set.BorderZone("SOKOTO"))
	assert.Nil(t, set.BorderZone("Lagos"))
}

func TestStateCentroid(t *testing.T) {
	lat, lon, ok := StateCentroid("Zamfara")
	require.True(t, ok)
	assert.InDelta(t, 12.12, lat, 0.01)
	assert.InDelta(t, 6.22, lon, 0.01)

	_, _, ok = StateCentroid("Abuja")
	assert.True(t, ok)

	_, _, ok = StateCentroid("Atlantis")
	assert.False(t, ok)
}
