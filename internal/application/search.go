// Package application contains the core services behind the HTTP API.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobrunner/waypost/internal/domain"
	"github.com/jobrunner/waypost/internal/ports/output"
)

// SearchService answers buffered amenity searches near registered routes.
// Responses are cached under a fingerprint of route geometry, radius and
// canonical filters; a hit never touches the store.
type SearchService struct {
	store   output.SpatialStore
	cache   output.Cache
	metrics output.MetricsCollector
	logger  *slog.Logger
	ttl     time.Duration
}

// NewSearchService creates a new search service.
func NewSearchService(
	store output.SpatialStore,
	cache output.Cache,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	ttl time.Duration,
) *SearchService {
	if ttl == 0 {
		ttl = 90 * time.Second
	}

	return &SearchService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		ttl:     ttl,
	}
}

// Search returns amenities within radiusMeters of the route, ordered
// ascending by distance to the route line.
func (s *SearchService) Search(ctx context.Context, routeID string, radiusMeters float64, filters []string) (*domain.SearchResponse, error) {
	start := time.Now()

	if radiusMeters <= 0 || radiusMeters > domain.MaxSearchRadiusMeters {
		s.metrics.IncSearch(false, false)
		return nil, domain.ErrRadiusOutOfRange
	}

	route, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		s.metrics.IncSearch(false, false)
		return nil, err
	}

	filters = CanonicalFilters(filters)
	key := SearchKey(route.Geometry, radiusMeters, filters)

	if payload, ok := s.cache.Get(key); ok {
		var cached domain.SearchResponse
		decodeErr := json.Unmarshal(payload, &cached)
		if decodeErr == nil {
			s.metrics.IncSearch(true, true)
			s.metrics.ObserveSearchDuration(time.Since(start))
			return &cached, nil
		}
		s.logger.Warn("dropping undecodable cache entry", "key", key, "error", decodeErr)
	}

	items, err := s.store.AmenitiesNearRoute(ctx, route, radiusMeters, filters)
	if err != nil {
		s.metrics.IncSearch(false, false)
		return nil, err
	}

	response := &domain.SearchResponse{
		Route: domain.RouteInfo{
			RouteID:  route.ID,
			Name:     route.Name,
			Geometry: route.GeoJSON(),
		},
		Items: items,
	}

	payload, err := json.Marshal(response)
	if err != nil {
		s.metrics.IncSearch(false, false)
		return nil, fmt.Errorf("encoding search response: %w", err)
	}
	s.cache.Put(key, payload, s.ttl)

	s.metrics.IncSearch(false, true)
	s.metrics.ObserveSearchDuration(time.Since(start))
	s.logger.Debug("search completed",
		"route_id", routeID,
		"radius_m", radiusMeters,
		"filters", filters,
		"results", len(items),
	)
	return response, nil
}
