package risk

import (
	"fmt"
	"log"
	"strings"
	"time"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/refdata"
)

// Engine computes risk signals from parsed events joined with economic
// and geospatial context. One engine is shared across consumer workers;
// all reference tables are immutable after load.
type Engine struct {
	ref    *refdata.Set
	surge  *SurgeTracker
	logger *log.Logger

	urbanFuelThreshold float64

	now func() time.Time
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	Reference *refdata.Set
	Surge     *SurgeTracker
	Logger    *log.Logger

	// UrbanFuelThreshold is the simulation fuel index above which the
	// urban multiplier fires. Default 80.
	UrbanFuelThreshold float64
}

// NewEngine creates a scoring engine.
func NewEngine(opts EngineOptions) *Engine {
	ref := opts.Reference
	if ref == nil {
		ref = &refdata.Set{}
	}
	surge := opts.Surge
	if surge == nil {
		surge = NewSurgeTracker(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	threshold := opts.UrbanFuelThreshold
	if threshold == 0 {
		threshold = 80
	}
	return &Engine{
		ref:                ref,
		surge:              surge,
		logger:             logger,
		urbanFuelThreshold: threshold,
		now:                time.Now,
	}
}

// scorer accumulates the running score, the fired-modifier clauses and
// the signal being built.
type scorer struct {
	score   float64
	reasons []string
	sig     *domain.RiskSignal
}

func (s *scorer) add(points float64, reason string) {
	s.score += points
	s.reasons = append(s.reasons, reason)
}

func (s *scorer) multiply(factor float64, reason string) {
	s.score *= factor
	s.reasons = append(s.reasons, reason)
}

// Score computes the live risk signal for an event. econ may be nil
// when no economic record covers the location; economic modifiers are
// then skipped. Surge state is updated as a side effect.
func (e *Engine) Score(event *domain.ParsedEvent, econ *domain.EconomicRecord) *domain.RiskSignal {
	s := e.begin(event)

	e.applyEconomic(s, event, econ)
	e.applyClimateRecord(s, event)
	strat := e.applyStrategic(s, event)
	e.applyMining(s, event)
	e.applyBorder(s, event)
	e.applyFarmerHerder(s, event, strat)
	e.applyClimateZone(s, event)

	s.score = clamp(s.score)

	if detected, increase := e.surge.Observe(event.State, event.LGA, s.score); detected {
		s.sig.SurgeDetected = true
		inc := round1(increase)
		s.sig.SurgePercentageIncrease = &inc
		s.reasons = append(s.reasons, fmt.Sprintf(
			"SURGE ALERT: Risk increased by %.1f%% - rapid escalation detected", increase))
	}

	e.finish(s, event)
	return s.sig
}

// Simulate computes a what-if signal for an event under slider
// parameters. Pure with respect to engine state: surge tracking is not
// touched and nothing is persisted here.
func (e *Engine) Simulate(event *domain.ParsedEvent, params domain.SimulationParams, simulationID string) *domain.RiskSignal {
	s := e.begin(event)
	s.sig.IsSimulation = true
	if simulationID != "" {
		id := simulationID
		s.sig.SimulationID = &id
	}

	if params.InflationRate > InflationThreshold {
		bonus := minf((params.InflationRate-InflationThreshold)*2, 20)
		s.add(bonus, fmt.Sprintf("Elevated inflation (%.1f%%)", params.InflationRate))
	}
	s.sig.Inflation = fptr(params.InflationRate)

	fuelBonus := (params.FuelPriceIndex / 100) * 20
	s.score += fuelBonus
	if params.FuelPriceIndex > 50 {
		s.reasons = append(s.reasons, fmt.Sprintf("Elevated fuel prices (index: %.0f/100)", params.FuelPriceIndex))
	}

	e.applyClimateRecord(s, event)
	e.applyMining(s, event)
	e.applyBorder(s, event)

	isUrban := IsUrbanLGA(event.LGA)
	s.sig.IsUrban = isUrban
	if params.FuelPriceIndex > e.urbanFuelThreshold && isUrban {
		s.multiply(1.5, fmt.Sprintf(
			"Economic Crisis in Urban Center (fuel index: %.0f) - 1.5x multiplier applied", params.FuelPriceIndex))
	}

	s.score = clamp(s.score)

	radius := 5 + (params.ChatterIntensity/100)*45
	weight := minf(1.0, (s.score/100)*(1+params.ChatterIntensity/100))
	s.sig.HeatmapRadiusKm = fptr(round1(radius))
	s.sig.HeatmapWeight = fptr(round3(weight))

	e.finish(s, event)
	return s.sig
}

// begin seeds the signal with event identity and the base score.
func (e *Engine) begin(event *domain.ParsedEvent) *scorer {
	sig := &domain.RiskSignal{
		State:        event.State,
		LGA:          event.LGA,
		Severity:     event.Severity,
		EventType:    event.EventType,
		SourceTitle:  event.SourceTitle,
		SourceURL:    event.SourceURL,
		CalculatedAt: e.now().UTC(),
	}
	if event.ID != "" {
		id := event.ID
		sig.EventID = &id
	}
	if event.HasCoordinates() {
		sig.Geo = &domain.GeoPoint{Lon: *event.Longitude, Lat: *event.Latitude}
	}

	return &scorer{
		score: BaseScore + eventTypeScore(event.EventType) + severityScore(event.Severity),
		sig:   sig,
	}
}

// applyEconomic applies inflation and fuel bonuses from the joined
// economic record, plus the clash-under-inflation floor.
func (e *Engine) applyEconomic(s *scorer, event *domain.ParsedEvent, econ *domain.EconomicRecord) {
	if econ == nil {
		return
	}
	s.sig.FuelPrice = fptr(econ.FuelPrice)
	s.sig.Inflation = fptr(econ.InflationRate)

	if econ.InflationRate > InflationThreshold {
		bonus := minf((econ.InflationRate-InflationThreshold)*2, 20)
		s.add(bonus, fmt.Sprintf("Elevated inflation (%.1f%%)", econ.InflationRate))
	}
	if econ.FuelPrice > FuelPriceBaseline {
		bonus := minf((econ.FuelPrice-FuelPriceBaseline)*0.1, 10)
		s.add(bonus, fmt.Sprintf("Elevated fuel prices (₦%.0f)", econ.FuelPrice))
	}

	// A clash under inflation stress never scores below the floor;
	// downstream multipliers build on the floored value.
	if event.EventType == domain.EventClash && econ.InflationRate > InflationThreshold && s.score < ClashFloor {
		s.score = ClashFloor
	}
}

// applyClimateRecord applies the flooding displacement multiplier.
func (e *Engine) applyClimateRecord(s *scorer, event *domain.ParsedEvent) {
	rec := e.ref.ClimateRecord(event.State, event.LGA)
	if rec == nil {
		return
	}
	s.sig.FloodInundationIndex = fptr(rec.FloodInundationIndex)
	s.sig.PrecipitationAnomaly = fptr(rec.PrecipitationAnomaly)
	s.sig.VegetationHealthIndex = fptr(rec.VegetationHealthIndex)

	if rec.FloodInundationIndex > 20 && resourceCompetitionType(event.EventType) {
		s.multiply(1.5, fmt.Sprintf(
			"Flooding-induced displacement (%.1f%% farmland inundated) - increased resource competition",
			rec.FloodInundationIndex))
		s.sig.ConflictDriver = sptr("Environmental/Climate")
	}
}

// applyStrategic applies state-level deep indicators and returns them
// for the farmer-herder rule.
func (e *Engine) applyStrategic(s *scorer, event *domain.ParsedEvent) *domain.StrategicIndicators {
	strat := e.ref.StrategicFor(event.State)
	if strat == nil {
		return nil
	}
	s.sig.ClimateVulnerability = fptr(strat.ClimateVulnerability)
	s.sig.MiningDensity = fptr(strat.MiningDensity)
	s.sig.MigrationPressure = fptr(strat.MigrationPressure)
	s.sig.PovertyRate = fptr(strat.PovertyRate)

	if strat.ClimateVulnerability > 0.7 {
		s.add(strat.ClimateVulnerability*15, fmt.Sprintf(
			"High Climate Vulnerability (%.0f%%) - environmental stress amplifies conflict risk",
			strat.ClimateVulnerability*100))
	}
	if strat.MiningDensity > 0.6 {
		s.add(strat.MiningDensity*20, fmt.Sprintf(
			"High Escalation Potential due to Illicit Funding - Mining density %.0f%% enables armed group financing",
			strat.MiningDensity*100))
		s.sig.HighEscalationPotential = true
	}
	return strat
}

// applyMining applies the funding-proximity bonus. Skipped without
// coordinates.
func (e *Engine) applyMining(s *scorer, event *domain.ParsedEvent) {
	if !event.HasCoordinates() {
		return
	}
	site, km, ok := e.ref.NearestMiningSite(*event.Latitude, *event.Longitude)
	if !ok {
		return
	}
	s.sig.MiningProximityKm = fptr(km)
	s.sig.MiningSiteName = sptr(site.Name)
	s.sig.InformalTaxationRate = fptr(site.InformalTaxationRate)

	if km < 10 {
		s.sig.HighFundingPotential = true
		s.add(15, fmt.Sprintf(
			"High Funding Potential - Event within %.1fkm of %s (informal taxation: %.0f%%)",
			km, site.Name, site.InformalTaxationRate*100))
	}
}

// applyBorder applies the Sahelian border ladder.
func (e *Engine) applyBorder(s *scorer, event *domain.ParsedEvent) {
	zone := e.ref.BorderZone(event.State)
	if zone == nil {
		return
	}
	s.sig.BorderActivity = sptr(string(zone.Activity))
	s.sig.BorderPermeabilityScore = fptr(zone.PermeabilityScore)
	if zone.GroupAffiliation != "" {
		s.sig.GroupAffiliation = sptr(zone.GroupAffiliation)
	}
	s.sig.SophisticatedIEDUsage = zone.SophisticatedIEDUsage
	s.sig.LakurawaPresence = zone.LakurawaPresenceConfirmed

	elevated := zone.Activity == domain.BorderHigh || zone.Activity == domain.BorderCritical
	state := strings.ToLower(event.State)

	switch {
	case elevated && (state == "sokoto" || state == "kebbi"):
		s.sig.LakurawaPresence = true
		s.add(20, fmt.Sprintf(
			"Lakurawa Presence Detected - Sahelian jihadist expansion from Niger border (border permeability: %.0f%%)",
			zone.PermeabilityScore*100))
	case zone.Activity == domain.BorderCritical:
		s.add(15, fmt.Sprintf("Critical border activity - %s (permeability: %.0f%%)",
			zone.GroupAffiliation, zone.PermeabilityScore*100))
	case zone.Activity == domain.BorderHigh:
		s.add(10, fmt.Sprintf("High border activity - %s", zone.GroupAffiliation))
	}
}

// applyFarmerHerder applies the migration-pressure multiplier.
func (e *Engine) applyFarmerHerder(s *scorer, event *domain.ParsedEvent, strat *domain.StrategicIndicators) {
	if strat == nil || strat.MigrationPressure <= 0.5 {
		return
	}
	if !isFarmerHerderText(event) {
		return
	}
	s.sig.IsFarmerHerderConflict = true
	s.multiply(1+strat.MigrationPressure, fmt.Sprintf(
		"Farmer-Herder Conflict amplified by Migration Pressure (%.0f%%) - pastoralist displacement intensifies land competition",
		strat.MigrationPressure*100))
}

// applyClimateZone applies the climate stress zone bonus for events
// inside a zone polygon.
func (e *Engine) applyClimateZone(s *scorer, event *domain.ParsedEvent) {
	if !event.HasCoordinates() {
		return
	}
	zone := e.ref.ZoneContaining(*event.Longitude, *event.Latitude)
	if zone == nil {
		return
	}
	switch zone.Impact {
	case domain.ImpactHigh:
		s.add(25, fmt.Sprintf("Climate Stress Zone: %s (Recession Index: %.2f)",
			zone.Region, zone.RecessionIndex))
		s.sig.ConflictDriver = sptr("Environmental/Climate")
	case domain.ImpactMediumHigh, domain.ImpactMedium:
		s.add(15, fmt.Sprintf("Climate Stress Zone: %s (%s impact)", zone.Region, zone.Impact))
		s.sig.ConflictDriver = sptr("Environmental/Climate")
	}
}

// finish clamps, derives level and status, assigns the category and
// assembles the trigger reason.
func (e *Engine) finish(s *scorer, event *domain.ParsedEvent) {
	s.sig.RiskScore = round1(clamp(s.score))
	s.sig.RiskLevel = domain.LevelForScore(s.sig.RiskScore)
	s.sig.Status = domain.StatusForScore(s.sig.RiskScore)
	s.sig.Category, s.sig.Confidence = CategoryForEventType(event.EventType)

	var reason string
	if len(s.reasons) > 0 {
		reason = fmt.Sprintf("%s Risk: %s", s.sig.RiskLevel, strings.Join(s.reasons, "; "))
	} else {
		reason = fmt.Sprintf("%s Risk: Standard risk calculation based on %s event", s.sig.RiskLevel, event.EventType)
	}
	if s.sig.HighEscalationPotential {
		reason = "[HIGH ESCALATION POTENTIAL] " + reason
	}
	s.sig.TriggerReason = reason
}

// resourceCompetitionType marks event types amplified by flooding.
func resourceCompetitionType(t domain.EventType) bool {
	return t == domain.EventClash || t == domain.EventConflict || t == domain.EventViolence
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

func fptr(v float64) *float64 { return &v }

func sptr(v string) *string { return &v }
