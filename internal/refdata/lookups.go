package refdata

import (
	"strings"

	"conflict-signal/internal/domain"
	"conflict-signal/internal/geo"
)

// ClimateRecord finds the per-LGA climate record, falling back to the
// first state-level match. Returns nil when nothing is known.
func (s *Set) ClimateRecord(state, lga string) *domain.ClimateRecord {
	var stateMatch *domain.ClimateRecord
	for i := range s.ClimateRecords {
		r := &s.ClimateRecords[i]
		if !strings.EqualFold(r.State, state) {
			continue
		}
		if strings.EqualFold(r.LGA, lga) {
			return r
		}
		if stateMatch == nil {
			stateMatch = r
		}
	}
	return stateMatch
}

// ZoneContaining returns the first climate zone whose polygon contains
// the point, or nil. Linear scan; the zone table is small.
func (s *Set) ZoneContaining(lon, lat float64) *domain.ClimateZone {
	for i := range s.ClimateZones {
		if geo.PointInPolygon(lon, lat, s.ClimateZones[i].Polygon) {
			return &s.ClimateZones[i]
		}
	}
	return nil
}

// NearestMiningSite returns the closest site and its haversine distance
// in kilometres. ok is false when no sites are loaded.
func (s *Set) NearestMiningSite(lat, lon float64) (site *domain.MiningSite, distanceKm float64, ok bool) {
	best := -1.0
	for i := range s.MiningSites {
		d := geo.HaversineKm(lat, lon, s.MiningSites[i].Lat, s.MiningSites[i].Lon)
		if best < 0 || d < best {
			best = d
			site = &s.MiningSites[i]
		}
	}
	if site == nil {
		return nil, 0, false
	}
	return site, best, true
}

// BorderZone returns the border intelligence for a state, or nil.
func (s *Set) BorderZone(state string) *domain.BorderZone {
	for i := range s.BorderZones {
		if strings.EqualFold(s.BorderZones[i].State, state) {
			return &s.BorderZones[i]
		}
	}
	return nil
}

// StrategicFor returns state-level strategic indicators, or nil.
func (s *Set) StrategicFor(state string) *domain.StrategicIndicators {
	if ind, ok := s.Strategic[strings.ToLower(state)]; ok {
		return &ind
	}
	return nil
}
