package application

import (
	"context"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/jobrunner/waypost/internal/adapters/mvt"
	"github.com/jobrunner/waypost/internal/domain"
	"github.com/jobrunner/waypost/internal/ports/output"
)

// TileService renders amenity vector tiles. Encoding is deterministic, so a
// tile can be cached and re-served byte for byte.
type TileService struct {
	store   output.SpatialStore
	cache   output.Cache
	metrics output.MetricsCollector
	logger  *slog.Logger

	layerName string
	extent    uint32
	minZoom   int
	maxZoom   int
	ttl       time.Duration
}

// TileServiceConfig holds configuration for the tile service.
type TileServiceConfig struct {
	LayerName string
	Extent    uint32
	MinZoom   int
	MaxZoom   int
	TTL       time.Duration
}

// NewTileService creates a new tile service.
func NewTileService(
	store output.SpatialStore,
	cache output.Cache,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg TileServiceConfig,
) *TileService {
	if cfg.LayerName == "" {
		cfg.LayerName = "amenities"
	}
	if cfg.Extent == 0 {
		cfg.Extent = 4096
	}
	if cfg.MaxZoom == 0 {
		cfg.MaxZoom = 22
	}
	if cfg.TTL == 0 {
		cfg.TTL = 600 * time.Second
	}

	return &TileService{
		store:     store,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		layerName: cfg.LayerName,
		extent:    cfg.Extent,
		minZoom:   cfg.MinZoom,
		maxZoom:   cfg.MaxZoom,
		ttl:       cfg.TTL,
	}
}

// RenderTile returns the encoded vector tile for z/x/y. Tiles outside the
// configured zoom range are returned as well-formed empty tiles rather than
// errors, so map clients degrade gracefully.
func (s *TileService) RenderTile(ctx context.Context, z, x, y int, filters []string) ([]byte, error) {
	start := time.Now()

	if !domain.ValidTileAddress(z, x, y) {
		s.metrics.IncTileRender(false, false)
		return nil, domain.ErrInvalidInput
	}

	if z < s.minZoom || z > s.maxZoom {
		data, err := mvt.EncodeTile(mvt.Layer{Name: s.layerName, Extent: s.extent})
		if err != nil {
			s.metrics.IncTileRender(false, false)
			return nil, err
		}
		s.metrics.IncTileRender(false, true)
		return data, nil
	}

	filters = CanonicalFilters(filters)
	key := TileKey(z, x, y, filters)

	if data, ok := s.cache.Get(key); ok {
		s.metrics.IncTileRender(true, true)
		s.metrics.ObserveTileDuration(time.Since(start))
		return data, nil
	}

	amenities, err := s.store.AmenitiesInTile(ctx, z, x, y, filters)
	if err != nil {
		s.metrics.IncTileRender(false, false)
		return nil, err
	}

	layer := mvt.Layer{Name: s.layerName, Extent: s.extent}
	for _, a := range amenities {
		tx, ty := domain.TileCoordinate(z, x, y, a.Location, s.extent)
		layer.Features = append(layer.Features, mvt.PointFeature{
			ID: featureNumericID(a.ID),
			X:  tx,
			Y:  ty,
			Props: []mvt.KV{
				{Key: "id", Value: a.ID},
				{Key: "category", Value: a.Category},
				{Key: "name", Value: a.Props.DisplayName(a.Category)},
			},
		})
	}

	data, err := mvt.EncodeTile(layer)
	if err != nil {
		s.metrics.IncTileRender(false, false)
		return nil, err
	}
	s.cache.Put(key, data, s.ttl)

	s.metrics.IncTileRender(false, true)
	s.metrics.ObserveTileDuration(time.Since(start))
	s.logger.Debug("tile rendered",
		"z", z, "x", x, "y", y,
		"filters", filters,
		"features", len(layer.Features),
	)
	return data, nil
}

// featureNumericID derives a stable numeric feature ID from the amenity ID.
// The MVT feature ID is advisory; the authoritative ID lives in the "id"
// property.
func featureNumericID(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}
