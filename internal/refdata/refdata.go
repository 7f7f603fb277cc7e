package refdata

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/geo"
)

// Reference file names resolved relative to the artifact directory.
const (
	ClimateZonesFile   = "climate_zones.geojson"
	ClimateRecordsFile = "climate_records.json"
	MiningSitesFile    = "mining_sites.geojson"
	BorderZonesFile    = "border_zones.json"
	StrategicFile      = "strategic_indicators.csv"
	EconomicFile       = "economic_data.csv"
)

// Set holds all reference tables. Immutable after load; readers need no
// lock. Missing files leave their table empty and are listed in Missing
// so health reporting can surface degraded mode.
type Set struct {
	ClimateZones   []domain.ClimateZone
	ClimateRecords []domain.ClimateRecord
	MiningSites    []domain.MiningSite
	BorderZones    []domain.BorderZone
	Strategic      map[string]domain.StrategicIndicators // keyed by lower(state)
	Economic       []domain.EconomicRecord

	Missing []string
}

// Options configures loading.
type Options struct {
	// Logger for load warnings. Defaults to log.Default().
	Logger *log.Logger
}

// Load reads every reference file under dir. A missing or unreadable
// file is logged and recorded, not fatal: the affected modifiers are
// simply skipped at scoring time.
func Load(dir string, opts Options) *Set {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	set := &Set{Strategic: make(map[string]domain.StrategicIndicators)}

	load := func(name string, fn func(path string) error) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			logger.Printf("[refdata] %s not found, modifiers depending on it are disabled", name)
			set.Missing = append(set.Missing, name)
			return
		}
		if err := fn(path); err != nil {
			logger.Printf("[refdata] load %s: %v", name, err)
			set.Missing = append(set.Missing, name)
		}
	}

	load(ClimateZonesFile, set.loadClimateZones)
	load(ClimateRecordsFile, set.loadClimateRecords)
	load(MiningSitesFile, set.loadMiningSites)
	load(BorderZonesFile, set.loadBorderZones)
	load(StrategicFile, set.loadStrategic)
	load(EconomicFile, set.loadEconomic)

	logger.Printf("[refdata] loaded: %d climate zones, %d climate records, %d mining sites, %d border zones, %d strategic, %d economic",
		len(set.ClimateZones), len(set.ClimateRecords), len(set.MiningSites), len(set.BorderZones), len(set.Strategic), len(set.Economic))

	return set
}

func (s *Set) loadClimateZones(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc geo.PolygonFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse geojson: %w", err)
	}

	for _, f := range fc.Features {
		if len(f.Geometry.Coordinates) == 0 {
			continue
		}
		zone := domain.ClimateZone{
			Region:    propString(f.Properties, "region"),
			Indicator: propString(f.Properties, "indicator"),
			Impact:    domain.ClimateImpact(propString(f.Properties, "impact_zone")),
			Polygon:   f.Geometry.Coordinates[0],
		}
		zone.RecessionIndex = propFloat(f.Properties, "recession_index")
		zone.ConflictCorrelation = propFloat(f.Properties, "conflict_correlation")
		s.ClimateZones = append(s.ClimateZones, zone)
	}
	return nil
}

func (s *Set) loadClimateRecords(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.ClimateRecords)
}

func (s *Set) loadMiningSites(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc struct {
		Features []struct {
			Geometry struct {
				Coordinates [2]float64 `json:"coordinates"` // [lon, lat]
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse geojson: %w", err)
	}

	for _, f := range fc.Features {
		s.MiningSites = append(s.MiningSites, domain.MiningSite{
			Name:                 propString(f.Properties, "name"),
			State:                propString(f.Properties, "state"),
			Lon:                  f.Geometry.Coordinates[0],
			Lat:                  f.Geometry.Coordinates[1],
			MineralType:          propString(f.Properties, "mineral_type"),
			InformalTaxationRate: propFloat(f.Properties, "informal_taxation_rate"),
			ActivityLevel:        propString(f.Properties, "activity_level"),
			SecurityIncidents30d: int(propFloat(f.Properties, "security_incidents_last_30_days")),
		})
	}
	return nil
}

func (s *Set) loadBorderZones(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.BorderZones)
}

func (s *Set) loadStrategic(path string) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}

	// Columns: state, poverty_rate, inflation_rate, unemployment,
	// mining_density, climate_vulnerability, migration_pressure
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		ind := domain.StrategicIndicators{
			State:                strings.TrimSpace(row[0]),
			PovertyRate:          parseFloat(row[1]),
			InflationRate:        parseFloat(row[2]),
			Unemployment:         parseFloat(row[3]),
			MiningDensity:        parseFloat(row[4]),
			ClimateVulnerability: parseFloat(row[5]),
			MigrationPressure:    parseFloat(row[6]),
		}
		if ind.State == "" {
			continue
		}
		s.Strategic[strings.ToLower(ind.State)] = ind
	}
	return nil
}

func (s *Set) loadEconomic(path string) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}

	// Columns: state, lga, fuel_price, inflation_rate[, food_price_index, unemployment_rate]
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		rec := domain.EconomicRecord{
			State:         strings.TrimSpace(row[0]),
			LGA:           strings.TrimSpace(row[1]),
			FuelPrice:     parseFloat(row[2]),
			InflationRate: parseFloat(row[3]),
		}
		if rec.State == "" || rec.LGA == "" {
			continue
		}
		if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
			v := parseFloat(row[4])
			rec.FoodPriceIdx = &v
		}
		if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
			v := parseFloat(row[5])
			rec.Unemployment = &v
		}
		s.Economic = append(s.Economic, rec)
	}
	return nil
}

// readCSV reads all data rows, skipping a header row when the first
// cell is not numeric in any column position that should be.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Drop the header if present
	if looksLikeHeader(records[0]) {
		records = records[1:]
	}
	return records, nil
}

func looksLikeHeader(row []string) bool {
	for _, cell := range row[1:] {
		if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
			return false
		}
	}
	return true
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func propString(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func propFloat(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case string:
		return parseFloat(v)
	}
	return 0
}
