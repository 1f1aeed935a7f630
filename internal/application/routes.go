package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jobrunner/waypost/internal/domain"
	"github.com/jobrunner/waypost/internal/ports/output"
)

// RouteService registers routes for later searches and exports.
type RouteService struct {
	store  output.SpatialStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRouteService creates a new route service.
func NewRouteService(store output.SpatialStore, logger *slog.Logger) *RouteService {
	return &RouteService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Create persists a new route. An empty name falls back to "Uploaded route".
func (s *RouteService) Create(ctx context.Context, name string, line domain.LineString) (*domain.Route, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}

	route := &domain.Route{
		ID:        uuid.New().String(),
		Name:      name,
		Geometry:  line,
		CreatedAt: s.now().UTC(),
	}
	if route.Name == "" {
		route.Name = "Uploaded route"
	}

	if err := s.store.CreateRoute(ctx, route); err != nil {
		return nil, err
	}

	s.logger.Info("route created", "route_id", route.ID, "points", len(line))
	return route, nil
}
