package predict

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/geo"
	"conflict-signal/internal/observability"
)

// Simulate scores every persisted event under the what-if parameters
// and returns a GeoJSON FeatureCollection for map rendering. Pure with
// respect to pipeline state: nothing is persisted and the surge tracker
// is untouched.
func (p *Processor) Simulate(ctx context.Context, params domain.SimulationParams) (*geo.FeatureCollection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	events, err := p.events.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events for simulation: %w", err)
	}

	observability.RecordSimulationRun()

	simID := uuid.NewString()
	fc := geo.NewFeatureCollection()
	counts := map[string]int{}
	categories := map[string]int{}

	for _, event := range events {
		scored := *event
		p.geocode(&scored)
		if !scored.HasCoordinates() {
			p.logger.Printf("[predict] simulation skipping event %s: no geocodable location (%s)", event.ID, event.State)
			continue
		}

		sig := p.engine.Simulate(&scored, params, simID)
		counts[strings.ToLower(string(sig.RiskLevel))]++
		categories[sig.Category]++
		fc.Features = append(fc.Features, geo.NewFeature(*scored.Longitude, *scored.Latitude, featureProps(sig)))
	}

	summary := domain.SimulationSummary{
		SimulationID:        simID,
		Params:              params,
		TotalEvents:         len(fc.Features),
		CountsPerLevel:      counts,
		SimulatedCategories: categories,
		GeneratedAt:         time.Now().UTC().Format(time.RFC3339),
	}
	fc.Metadata = map[string]any{
		"simulation_id":        summary.SimulationID,
		"simulation_params":    summary.Params,
		"total_events":         summary.TotalEvents,
		"critical_count":       counts["critical"],
		"high_count":           counts["high"],
		"medium_count":         counts["medium"],
		"low_count":            counts["low"],
		"minimal_count":        counts["minimal"],
		"simulated_categories": summary.SimulatedCategories,
		"timestamp":            summary.GeneratedAt,
		"simulation_active":    true,
	}
	return fc, nil
}

// featureProps flattens a simulated signal into GeoJSON properties.
func featureProps(sig *domain.RiskSignal) map[string]any {
	props := map[string]any{
		"state":          sig.State,
		"lga":            sig.LGA,
		"event_type":     string(sig.EventType),
		"severity":       string(sig.Severity),
		"risk_score":     sig.RiskScore,
		"risk_level":     string(sig.RiskLevel),
		"status":         string(sig.Status),
		"trigger_reason": sig.TriggerReason,
		"category":       sig.Category,
		"is_urban":       sig.IsUrban,
		"is_simulation":  true,
	}
	if sig.HeatmapWeight != nil {
		props["heatmap_weight"] = *sig.HeatmapWeight
	}
	if sig.HeatmapRadiusKm != nil {
		props["heatmap_radius_km"] = *sig.HeatmapRadiusKm
	}
	if sig.ConflictDriver != nil {
		props["conflict_driver"] = *sig.ConflictDriver
	}
	if sig.HighFundingPotential {
		props["high_funding_potential"] = true
	}
	if sig.LakurawaPresence {
		props["lakurawa_presence"] = true
	}
	return props
}
