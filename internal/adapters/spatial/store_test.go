package spatial

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobrunner/waypost/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewStore(context.Background(), path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRoute(t *testing.T) *domain.Route {
	t.Helper()

	// Roughly 1km west-to-east at the equator.
	line, err := domain.LineStringFromCoordinates([][]float64{
		{13.0000, 52.5000},
		{13.0147, 52.5000},
	})
	if err != nil {
		t.Fatalf("LineStringFromCoordinates() error = %v", err)
	}
	return &domain.Route{
		ID:        "route-1",
		Name:      "Test Route",
		Geometry:  line,
		CreatedAt: time.Now().UTC(),
	}
}

func TestRouteRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	route := testRoute(t)
	if err := store.CreateRoute(ctx, route); err != nil {
		t.Fatalf("CreateRoute() error = %v", err)
	}

	got, err := store.GetRoute(ctx, route.ID)
	if err != nil {
		t.Fatalf("GetRoute() error = %v", err)
	}
	if got.Name != route.Name {
		t.Errorf("Name = %q, want %q", got.Name, route.Name)
	}
	if len(got.Geometry) != len(route.Geometry) {
		t.Errorf("geometry length = %d, want %d", len(got.Geometry), len(route.Geometry))
	}
}

func TestGetRouteNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRoute(context.Background(), "missing")
	if !errors.Is(err, domain.ErrRouteNotFound) {
		t.Errorf("GetRoute() error = %v, want ErrRouteNotFound", err)
	}
}

func TestRouteOperationsAfterClose(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := store.CreateRoute(ctx, testRoute(t)); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("CreateRoute() error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := store.GetRoute(ctx, "route-1"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("GetRoute() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestAmenitiesNearRoute(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	route := testRoute(t)
	if err := store.CreateRoute(ctx, route); err != nil {
		t.Fatalf("CreateRoute() error = %v", err)
	}

	amenities := []domain.Amenity{
		{
			ID:       "near",
			Category: "cafe",
			Props:    domain.Properties{Name: "Close Cafe"},
			// ~50m north of the route midpoint.
			Location: domain.Point{Lon: 13.0073, Lat: 52.50045},
		},
		{
			ID:       "far",
			Category: "cafe",
			Props:    domain.Properties{Name: "Distant Cafe"},
			// ~5km north, outside a 1km radius.
			Location: domain.Point{Lon: 13.0073, Lat: 52.545},
		},
		{
			ID:       "fuel",
			Category: "fuel",
			Props:    domain.Properties{Name: "Station"},
			Location: domain.Point{Lon: 13.0050, Lat: 52.5002},
		},
	}
	if err := store.InsertAmenities(ctx, amenities); err != nil {
		t.Fatalf("InsertAmenities() error = %v", err)
	}

	results, err := store.AmenitiesNearRoute(ctx, route, 1000, nil)
	if err != nil {
		t.Fatalf("AmenitiesNearRoute() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	// Ordered by ascending line distance.
	if results[0].DistanceMeters > results[1].DistanceMeters {
		t.Errorf("results out of order: %.1f before %.1f",
			results[0].DistanceMeters, results[1].DistanceMeters)
	}
	for _, r := range results {
		if r.Amenity.ID == "far" {
			t.Error("amenity outside radius included in results")
		}
		if r.DistanceMeters > 1000 {
			t.Errorf("distance %.1f exceeds radius", r.DistanceMeters)
		}
	}
}

func TestAmenitiesNearRouteCategoryFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	route := testRoute(t)
	amenities := []domain.Amenity{
		{ID: "a", Category: "cafe", Location: domain.Point{Lon: 13.0073, Lat: 52.50045}},
		{ID: "b", Category: "fuel", Location: domain.Point{Lon: 13.0050, Lat: 52.5002}},
	}
	if err := store.InsertAmenities(ctx, amenities); err != nil {
		t.Fatalf("InsertAmenities() error = %v", err)
	}

	results, err := store.AmenitiesNearRoute(ctx, route, 1000, []string{"fuel"})
	if err != nil {
		t.Fatalf("AmenitiesNearRoute() error = %v", err)
	}
	if len(results) != 1 || results[0].Amenity.ID != "b" {
		t.Errorf("category filter returned %v", results)
	}
}

func TestAmenitiesNearRouteRadiusBounds(t *testing.T) {
	store := newTestStore(t)
	route := testRoute(t)

	for _, radius := range []float64{0, -5, 50001} {
		_, err := store.AmenitiesNearRoute(context.Background(), route, radius, nil)
		if !errors.Is(err, domain.ErrRadiusOutOfRange) {
			t.Errorf("radius %.0f: error = %v, want ErrRadiusOutOfRange", radius, err)
		}
	}
}

func TestAmenitiesInTile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	amenities := []domain.Amenity{
		{ID: "z", Category: "cafe", Location: domain.Point{Lon: 13.0073, Lat: 52.50045}},
		{ID: "a", Category: "fuel", Location: domain.Point{Lon: 13.0050, Lat: 52.5002}},
		{ID: "elsewhere", Category: "cafe", Location: domain.Point{Lon: -70, Lat: -30}},
	}
	if err := store.InsertAmenities(ctx, amenities); err != nil {
		t.Fatalf("InsertAmenities() error = %v", err)
	}

	// Zoom 0: single tile covering the world.
	all, err := store.AmenitiesInTile(ctx, 0, 0, 0, nil)
	if err != nil {
		t.Fatalf("AmenitiesInTile() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("zoom 0 tile: got %d amenities, want 3", len(all))
	}
	// Ordered by ID.
	if all[0].ID != "a" || all[1].ID != "elsewhere" || all[2].ID != "z" {
		t.Errorf("tile results not ID-ordered: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	// A Berlin tile at zoom 10 excludes the southern-hemisphere point.
	berlin, err := store.AmenitiesInTile(ctx, 10, 549, 335, nil)
	if err != nil {
		t.Fatalf("AmenitiesInTile() error = %v", err)
	}
	for _, a := range berlin {
		if a.ID == "elsewhere" {
			t.Error("tile query returned amenity outside tile bounds")
		}
	}
}

func TestReopen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Reopen(ctx); err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() after Reopen() error = %v", err)
	}
}

func TestParseAmenities(t *testing.T) {
	data := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"id": "poi-1",
				"geometry": {"type": "Point", "coordinates": [13.4, 52.5]},
				"properties": {"name": "Kiosk", "amenity": "kiosk", "opening_hours": "24/7"}
			},
			{
				"geometry": {"type": "Point", "coordinates": [13.5, 52.6]},
				"properties": {"category": "fuel"}
			},
			{
				"geometry": {"type": "LineString", "coordinates": [13.0, 52.0]},
				"properties": {}
			}
		]
	}`)

	amenities, err := ParseAmenities(data)
	if err != nil {
		t.Fatalf("ParseAmenities() error = %v", err)
	}
	if len(amenities) != 2 {
		t.Fatalf("got %d amenities, want 2 (non-point skipped)", len(amenities))
	}

	first := amenities[0]
	if first.ID != "poi-1" {
		t.Errorf("ID = %q, want poi-1", first.ID)
	}
	if first.Category != "kiosk" {
		t.Errorf("Category = %q, want kiosk (from amenity property)", first.Category)
	}
	if first.Props.Name != "Kiosk" {
		t.Errorf("Name = %q, want Kiosk", first.Props.Name)
	}
	if _, ok := first.Props.Extra["opening_hours"]; !ok {
		t.Error("extra property opening_hours not preserved")
	}

	second := amenities[1]
	if second.Category != "fuel" {
		t.Errorf("Category = %q, want fuel", second.Category)
	}
	if second.ID == "" {
		t.Error("missing feature ID was not generated")
	}
}

func TestParseAmenitiesRejectsNonCollection(t *testing.T) {
	if _, err := ParseAmenities([]byte(`{"type": "Feature"}`)); err == nil {
		t.Error("ParseAmenities() accepted a non-FeatureCollection document")
	}
}
