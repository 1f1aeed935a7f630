// Package output defines the secondary/driven ports of the application.
package output

import (
	"context"

	"github.com/jobrunner/waypost/internal/domain"
)

// SpatialStore defines the secondary port for route and amenity persistence.
// The query path treats the store as read-only; only route creation and seed
// import write to it.
type SpatialStore interface {
	// GetRoute returns a route by ID, or domain.ErrRouteNotFound.
	GetRoute(ctx context.Context, routeID string) (*domain.Route, error)

	// CreateRoute persists a new immutable route.
	CreateRoute(ctx context.Context, route *domain.Route) error

	// AmenitiesNearRoute returns amenities within the buffered route,
	// ordered ascending by line distance with ties broken by amenity ID.
	// An empty category set means no filtering.
	AmenitiesNearRoute(ctx context.Context, route *domain.Route, radiusMeters float64, categories []string) ([]domain.SearchResult, error)

	// AmenitiesInTile returns amenities whose point falls inside the web
	// tile's bounding box, ordered by amenity ID.
	AmenitiesInTile(ctx context.Context, z, x, y int, categories []string) ([]domain.Amenity, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
