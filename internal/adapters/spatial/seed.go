package spatial

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/jobrunner/waypost/internal/domain"
)

type geoJSONFeature struct {
	ID         interface{}            `json:"id"`
	Geometry   geoJSONGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type featureCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// SeedFromFile loads point features from a GeoJSON FeatureCollection file
// and inserts them as amenities. Returns the number of amenities inserted.
func (s *Store) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- operator-supplied seed file
	if err != nil {
		return 0, fmt.Errorf("reading seed file: %w", err)
	}

	amenities, err := ParseAmenities(data)
	if err != nil {
		return 0, err
	}

	if err := s.InsertAmenities(ctx, amenities); err != nil {
		return 0, err
	}
	return len(amenities), nil
}

// ParseAmenities converts a GeoJSON FeatureCollection into amenities.
// Non-point features are skipped. The category comes from the "category"
// property, falling back to "amenity"; features with neither get "unknown".
func ParseAmenities(data []byte) ([]domain.Amenity, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decoding feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: expected FeatureCollection, got %q", domain.ErrInvalidInput, fc.Type)
	}

	var amenities []domain.Amenity
	for _, f := range fc.Features {
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
			continue
		}

		loc := domain.Point{Lon: f.Geometry.Coordinates[0], Lat: f.Geometry.Coordinates[1]}
		if err := loc.Validate(); err != nil {
			continue
		}

		a := domain.Amenity{
			ID:       featureID(f.ID),
			Category: "unknown",
			Location: loc,
			Props:    domain.Properties{Extra: map[string]interface{}{}},
		}

		for k, v := range f.Properties {
			switch k {
			case "category":
				if s, ok := v.(string); ok && s != "" {
					a.Category = s
				}
			case "amenity":
				if s, ok := v.(string); ok && s != "" && a.Category == "unknown" {
					a.Category = s
				}
			case "name":
				if s, ok := v.(string); ok {
					a.Props.Name = s
				}
			default:
				a.Props.Extra[k] = v
			}
		}

		amenities = append(amenities, a)
	}
	return amenities, nil
}

func featureID(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return uuid.New().String()
}
