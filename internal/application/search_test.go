package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jobrunner/waypost/internal/domain"
	"github.com/jobrunner/waypost/internal/ports/output"
)

func storedRoute(t *testing.T, store *mockSpatialStore) *domain.Route {
	t.Helper()

	route := &domain.Route{
		ID:        "route-1",
		Name:      "Test Route",
		Geometry:  testLine(t),
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateRoute(context.Background(), route); err != nil {
		t.Fatalf("CreateRoute() error = %v", err)
	}
	return route
}

func TestSearchReturnsStoreResults(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)
	store.results = []domain.SearchResult{
		{
			Amenity: domain.Amenity{
				ID: "a1", Category: "cafe",
				Location: domain.Point{Lon: 13.05, Lat: 52.5004},
			},
			DistanceMeters: 44.5,
		},
	}

	svc := NewSearchService(store, newMockCache(), &output.NoOpMetrics{}, testLogger(), 0)

	resp, err := svc.Search(context.Background(), "route-1", 1000, []string{"cafe"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Route.RouteID != "route-1" {
		t.Errorf("route ID = %q, want route-1", resp.Route.RouteID)
	}
	if len(resp.Items) != 1 || resp.Items[0].Amenity.ID != "a1" {
		t.Errorf("items = %+v, want the single store result", resp.Items)
	}
}

func TestSearchCacheHitSkipsStore(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)
	store.results = []domain.SearchResult{
		{Amenity: domain.Amenity{ID: "a1", Category: "cafe"}, DistanceMeters: 10},
	}

	cache := newMockCache()
	svc := NewSearchService(store, cache, &output.NoOpMetrics{}, testLogger(), 90*time.Second)

	first, err := svc.Search(context.Background(), "route-1", 1000, []string{"cafe"})
	if err != nil {
		t.Fatalf("first Search() error = %v", err)
	}
	_, searchesAfterFirst, _ := store.calls()
	if searchesAfterFirst != 1 {
		t.Fatalf("store searched %d times after first call, want 1", searchesAfterFirst)
	}

	// Equivalent filter spelling must hit the same entry.
	second, err := svc.Search(context.Background(), "route-1", 1000, []string{" CAFE "})
	if err != nil {
		t.Fatalf("second Search() error = %v", err)
	}
	_, searchesAfterSecond, _ := store.calls()
	if searchesAfterSecond != 1 {
		t.Errorf("cache hit still queried the store (%d searches)", searchesAfterSecond)
	}
	if len(second.Items) != len(first.Items) {
		t.Errorf("cached response has %d items, want %d", len(second.Items), len(first.Items))
	}
}

func TestSearchDistinctRequestsGetDistinctEntries(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)

	cache := newMockCache()
	svc := NewSearchService(store, cache, &output.NoOpMetrics{}, testLogger(), 0)

	ctx := context.Background()
	if _, err := svc.Search(ctx, "route-1", 1000, nil); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, err := svc.Search(ctx, "route-1", 2000, nil); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	_, searches, _ := store.calls()
	if searches != 2 {
		t.Errorf("store searched %d times, want 2 (different radius, different key)", searches)
	}
	if cache.puts != 2 {
		t.Errorf("cache received %d puts, want 2", cache.puts)
	}
}

func TestSearchRadiusValidation(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)
	svc := NewSearchService(store, newMockCache(), &output.NoOpMetrics{}, testLogger(), 0)

	for _, radius := range []float64{0, -1, 50000.01} {
		_, err := svc.Search(context.Background(), "route-1", radius, nil)
		if !errors.Is(err, domain.ErrRadiusOutOfRange) {
			t.Errorf("radius %v: error = %v, want ErrRadiusOutOfRange", radius, err)
		}
	}

	// Exactly the maximum is allowed.
	if _, err := svc.Search(context.Background(), "route-1", 50000, nil); err != nil {
		t.Errorf("radius 50000: error = %v, want nil", err)
	}
}

func TestSearchUnknownRoute(t *testing.T) {
	svc := NewSearchService(newMockStore(), newMockCache(), &output.NoOpMetrics{}, testLogger(), 0)

	_, err := svc.Search(context.Background(), "missing", 1000, nil)
	if !errors.Is(err, domain.ErrRouteNotFound) {
		t.Errorf("Search() error = %v, want ErrRouteNotFound", err)
	}
}

func TestSearchStoreError(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)
	store.searchErr = domain.ErrStoreUnavailable

	svc := NewSearchService(store, newMockCache(), &output.NoOpMetrics{}, testLogger(), 0)

	_, err := svc.Search(context.Background(), "route-1", 1000, nil)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("Search() error = %v, want ErrStoreUnavailable", err)
	}
}
