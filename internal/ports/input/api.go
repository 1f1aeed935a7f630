// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/jobrunner/waypost/internal/domain"
)

// AmenitySearcher defines the primary port for buffered route searches.
type AmenitySearcher interface {
	// Search returns amenities within radiusMeters of the route, ordered
	// ascending by line distance. Results are cache-backed.
	Search(ctx context.Context, routeID string, radiusMeters float64, filters []string) (*domain.SearchResponse, error)
}

// TileRenderer defines the primary port for vector tile rendering.
type TileRenderer interface {
	// RenderTile returns the encoded vector tile for z/x/y. Zoom levels
	// outside the configured range yield a well-formed empty tile.
	RenderTile(ctx context.Context, z, x, y int, filters []string) ([]byte, error)
}

// ExportManager defines the primary port for asynchronous track exports.
type ExportManager interface {
	// Submit validates the request, enqueues a new job and returns its ID.
	// Identical requests always create independent jobs.
	Submit(ctx context.Context, req domain.ExportRequest) (string, error)

	// Status returns a snapshot of the job, or domain.ErrJobNotFound.
	Status(ctx context.Context, jobID string) (*domain.ExportJob, error)
}

// RouteRegistrar defines the primary port for route creation.
type RouteRegistrar interface {
	// Create persists a new route from an ordered coordinate sequence.
	Create(ctx context.Context, name string, line domain.LineString) (*domain.Route, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// Check reports reachability of the store and cache.
	Check(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy    bool              // Overall health status
	Components map[string]string // Component statuses
}
