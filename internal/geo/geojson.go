package geo

// GeoJSON feature types for simulation output and reference data.

// Point is a GeoJSON Point geometry, [lon, lat].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPoint builds a Point geometry.
func NewPoint(lon, lat float64) Point {
	return Point{Type: "Point", Coordinates: [2]float64{lon, lat}}
}

// Feature is a GeoJSON Feature with a Point geometry.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Point          `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// NewFeature builds a Feature around a point.
func NewFeature(lon, lat float64, props map[string]any) Feature {
	return Feature{
		Type:       "Feature",
		Geometry:   NewPoint(lon, lat),
		Properties: props,
	}
}

// FeatureCollection is a GeoJSON FeatureCollection with free-form
// metadata, as consumed by map frontends.
type FeatureCollection struct {
	Type     string         `json:"type"`
	Features []Feature      `json:"features"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewFeatureCollection builds an empty collection.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: []Feature{},
	}
}

// PolygonFeature is a GeoJSON Feature carrying a single-ring Polygon,
// used for climate stress zone reference files.
type PolygonFeature struct {
	Type     string `json:"type"`
	Geometry struct {
		Type        string         `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// PolygonFeatureCollection is the container for polygon reference files.
type PolygonFeatureCollection struct {
	Type     string           `json:"type"`
	Features []PolygonFeature `json:"features"`
}
