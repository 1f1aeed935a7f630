package domain

import (
	"encoding/json"
	"time"
)

// Route is an uploaded track. Routes are immutable once created; a new
// upload always produces a new Route.
type Route struct {
	ID        string
	Name      string
	Geometry  LineString
	CreatedAt time.Time
}

// Validate checks the route's geometry and name.
func (r *Route) Validate() error {
	if r.Name == "" {
		return &ValidationError{
			Field:      "name",
			Value:      r.Name,
			Constraint: "non-empty",
			Message:    "route name is required",
		}
	}
	return r.Geometry.Validate()
}

// GeoJSON returns the route geometry as a GeoJSON LineString object.
func (r *Route) GeoJSON() map[string]any {
	coords := make([][2]float64, len(r.Geometry))
	for i, p := range r.Geometry {
		coords[i] = [2]float64{p.Lon, p.Lat}
	}
	return map[string]any{
		"type":        "LineString",
		"coordinates": coords,
	}
}

// LineStringFromCoordinates builds a LineString from GeoJSON-style
// [lon, lat] coordinate pairs.
func LineStringFromCoordinates(coords [][]float64) (LineString, error) {
	line := make(LineString, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return nil, &ValidationError{
				Field:      "coordinates",
				Value:      c,
				Constraint: "[lon, lat]",
				Message:    "each coordinate needs longitude and latitude",
			}
		}
		line = append(line, Point{Lon: c[0], Lat: c[1]})
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	return line, nil
}

// MarshalJSON encodes the line as GeoJSON-style coordinate pairs.
func (l LineString) MarshalJSON() ([]byte, error) {
	coords := make([][2]float64, len(l))
	for i, p := range l {
		coords[i] = [2]float64{p.Lon, p.Lat}
	}
	return json.Marshal(coords)
}

// UnmarshalJSON decodes GeoJSON-style coordinate pairs.
func (l *LineString) UnmarshalJSON(data []byte) error {
	var coords [][]float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	line := make(LineString, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return &ValidationError{
				Field:      "coordinates",
				Value:      c,
				Constraint: "[lon, lat]",
				Message:    "each coordinate needs longitude and latitude",
			}
		}
		line = append(line, Point{Lon: c[0], Lat: c[1]})
	}
	*l = line
	return nil
}
