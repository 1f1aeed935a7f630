package application

import (
	"context"
	"time"

	"github.com/jobrunner/waypost/internal/ports/input"
	"github.com/jobrunner/waypost/internal/ports/output"
)

// HealthService provides health check functionality.
type HealthService struct {
	store output.SpatialStore
	cache output.Cache
}

// NewHealthService creates a new health service.
func NewHealthService(store output.SpatialStore, cache output.Cache) *HealthService {
	return &HealthService{
		store: store,
		cache: cache,
	}
}

// Check reports reachability of the store and a read-after-write probe of
// the cache.
func (s *HealthService) Check(ctx context.Context) input.HealthDetails {
	components := map[string]string{
		"database": "ok",
		"cache":    "ok",
	}
	healthy := true

	if err := s.store.Ping(ctx); err != nil {
		components["database"] = err.Error()
		healthy = false
	}

	s.cache.Put("health:probe", []byte("ok"), time.Second)
	if _, ok := s.cache.Get("health:probe"); !ok {
		components["cache"] = "probe failed"
		healthy = false
	}

	return input.HealthDetails{
		Healthy:    healthy,
		Components: components,
	}
}
