package domain

import "encoding/json"

// Properties carries amenity attributes. The display name is a recognized
// field; everything else rides along in Extra for forward compatibility.
type Properties struct {
	Name  string
	Extra map[string]any
}

// DisplayName returns the name property, or the given fallback.
func (p Properties) DisplayName(fallback string) string {
	if p.Name != "" {
		return p.Name
	}
	return fallback
}

// MarshalJSON flattens the properties into a single JSON object.
func (p Properties) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+1)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.Name != "" {
		out["name"] = p.Name
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the name property out of a flat JSON object.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if name, ok := raw["name"].(string); ok {
		p.Name = name
		delete(raw, "name")
	}
	if len(raw) > 0 {
		p.Extra = raw
	} else {
		p.Extra = nil
	}
	return nil
}

// Amenity is a point of interest. Amenities are immutable and sourced from
// seed data; the query path never writes them.
type Amenity struct {
	ID       string     `json:"id"`
	Category string     `json:"category"`
	Props    Properties `json:"props"`
	Location Point      `json:"-"`
}

// GeoJSON returns the amenity location as a GeoJSON Point object.
func (a *Amenity) GeoJSON() map[string]any {
	return map[string]any{
		"type":        "Point",
		"coordinates": [2]float64{a.Location.Lon, a.Location.Lat},
	}
}

// SearchResult is an amenity paired with its distance from a queried route.
// It is a transient projection and is never persisted outside a cache entry.
type SearchResult struct {
	Amenity        Amenity
	DistanceMeters float64
}

// MarshalJSON emits the wire shape used by search responses and cache
// entries: the amenity fields plus distance and point geometry.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(searchResultJSON{
		ID:             r.Amenity.ID,
		Category:       r.Amenity.Category,
		Props:          r.Amenity.Props,
		DistanceMeters: r.DistanceMeters,
		Geometry:       r.Amenity.GeoJSON(),
	})
}

// UnmarshalJSON restores a search result from its wire shape.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             string     `json:"id"`
		Category       string     `json:"category"`
		Props          Properties `json:"props"`
		DistanceMeters float64    `json:"distance_m"`
		Geometry       struct {
			Coordinates [2]float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Amenity = Amenity{
		ID:       raw.ID,
		Category: raw.Category,
		Props:    raw.Props,
		Location: Point{Lon: raw.Geometry.Coordinates[0], Lat: raw.Geometry.Coordinates[1]},
	}
	r.DistanceMeters = raw.DistanceMeters
	return nil
}

type searchResultJSON struct {
	ID             string         `json:"id"`
	Category       string         `json:"category"`
	Props          Properties     `json:"props"`
	DistanceMeters float64        `json:"distance_m"`
	Geometry       map[string]any `json:"geometry"`
}

// SearchResponse is the full result of an amenity search: the resolved
// route plus the matched amenities ordered by distance.
type SearchResponse struct {
	Route RouteInfo      `json:"route"`
	Items []SearchResult `json:"items"`
}

// RouteInfo is the route projection embedded in search responses.
type RouteInfo struct {
	RouteID  string         `json:"route_id"`
	Name     string         `json:"name"`
	Geometry map[string]any `json:"geometry"`
}
