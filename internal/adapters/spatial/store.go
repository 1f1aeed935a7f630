// Package spatial provides the SQLite-backed route and amenity store.
package spatial

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jobrunner/waypost/internal/domain"
)

// maxResults caps the number of amenities a single search returns.
const maxResults = 500

const schema = `
CREATE TABLE IF NOT EXISTS routes (
	route_id   TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	geometry   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS amenities (
	id       TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	props    TEXT NOT NULL,
	lon      REAL NOT NULL,
	lat      REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_amenities_lon_lat ON amenities (lon, lat);
CREATE INDEX IF NOT EXISTS idx_amenities_category ON amenities (category);
`

// Store implements the SpatialStore port on a local SQLite database. The
// database holds point amenities and registered routes; distance ranking
// runs in process after a bounding-box prefilter.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path and ensures the schema.
func NewStore(ctx context.Context, path string) (*Store, error) {
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Reopen replaces the underlying connection. Used when the database file is
// swapped out on disk.
func (s *Store) Reopen(ctx context.Context) error {
	db, err := openDB(ctx, s.path)
	if err != nil {
		return &domain.StorageError{Operation: "reopen", Key: s.path, Err: err}
	}

	s.mu.Lock()
	old := s.db
	s.db = db
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db == nil {
		return domain.ErrStoreUnavailable
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// CreateRoute persists a route.
func (s *Store) CreateRoute(ctx context.Context, route *domain.Route) error {
	if err := route.Validate(); err != nil {
		return err
	}

	geom, err := json.Marshal(route.Geometry)
	if err != nil {
		return fmt.Errorf("encoding geometry: %w", err)
	}

	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db == nil {
		return domain.ErrStoreUnavailable
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO routes (route_id, name, geometry, created_at) VALUES (?, ?, ?, ?)`,
		route.ID, route.Name, string(geom), route.CreatedAt.UTC(),
	)
	if err != nil {
		return &domain.QueryError{Op: "create_route", Key: route.ID, Err: err}
	}
	return nil
}

// GetRoute loads a route by ID.
func (s *Store) GetRoute(ctx context.Context, routeID string) (*domain.Route, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db == nil {
		return nil, domain.ErrStoreUnavailable
	}

	var (
		route   domain.Route
		geom    string
		created time.Time
	)
	err := db.QueryRowContext(ctx,
		`SELECT route_id, name, geometry, created_at FROM routes WHERE route_id = ?`,
		routeID,
	).Scan(&route.ID, &route.Name, &geom, &created)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRouteNotFound
	}
	if err != nil {
		return nil, &domain.QueryError{Op: "get_route", Key: routeID, Err: err}
	}

	if err := json.Unmarshal([]byte(geom), &route.Geometry); err != nil {
		return nil, fmt.Errorf("decoding geometry for %s: %w", routeID, err)
	}
	route.CreatedAt = created.UTC()
	return &route, nil
}

// AmenitiesNearRoute returns amenities within radiusMeters of the route,
// ordered ascending by distance to the route line, capped at 500 results.
// Ties break on amenity ID so identical inputs always produce identical
// output.
func (s *Store) AmenitiesNearRoute(ctx context.Context, route *domain.Route, radiusMeters float64, categories []string) ([]domain.SearchResult, error) {
	if radiusMeters <= 0 || radiusMeters > domain.MaxSearchRadiusMeters {
		return nil, domain.ErrRadiusOutOfRange
	}

	bbox := route.Geometry.BBox().ExpandMeters(radiusMeters)

	rows, err := s.queryCandidates(ctx, bbox, categories)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.SearchResult
	for rows.Next() {
		amenity, err := scanAmenity(rows)
		if err != nil {
			return nil, err
		}

		dist := route.Geometry.DistanceTo(amenity.Location)
		if dist > radiusMeters {
			continue
		}
		results = append(results, domain.SearchResult{
			Amenity:        amenity,
			DistanceMeters: dist,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.QueryError{Op: "search", Key: route.ID, Err: err}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceMeters != results[j].DistanceMeters {
			return results[i].DistanceMeters < results[j].DistanceMeters
		}
		return results[i].Amenity.ID < results[j].Amenity.ID
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// AmenitiesInTile returns all amenities whose location falls inside the
// tile's geographic bounds, ordered by ID.
func (s *Store) AmenitiesInTile(ctx context.Context, z, x, y int, categories []string) ([]domain.Amenity, error) {
	bbox := domain.TileBounds(z, x, y)

	rows, err := s.queryCandidates(ctx, bbox, categories)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var amenities []domain.Amenity
	for rows.Next() {
		amenity, err := scanAmenity(rows)
		if err != nil {
			return nil, err
		}
		amenities = append(amenities, amenity)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.QueryError{Op: "tile", Key: fmt.Sprintf("%d/%d/%d", z, x, y), Err: err}
	}

	sort.Slice(amenities, func(i, j int) bool { return amenities[i].ID < amenities[j].ID })
	return amenities, nil
}

// queryCandidates runs the bounding-box prefilter with an optional category
// filter.
func (s *Store) queryCandidates(ctx context.Context, bbox domain.BBox, categories []string) (*sql.Rows, error) {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	if db == nil {
		return nil, domain.ErrStoreUnavailable
	}

	query := `SELECT id, category, props, lon, lat FROM amenities
		WHERE lon BETWEEN ? AND ? AND lat BETWEEN ? AND ?`
	args := []interface{}{bbox.MinLon, bbox.MaxLon, bbox.MinLat, bbox.MaxLat}

	if len(categories) > 0 {
		query += ` AND category IN (?` + repeatPlaceholder(len(categories)-1) + `)`
		for _, c := range categories {
			args = append(args, c)
		}
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.QueryError{Op: "candidates", Err: err}
	}
	return rows, nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}

func scanAmenity(rows *sql.Rows) (domain.Amenity, error) {
	var (
		a     domain.Amenity
		props string
	)
	if err := rows.Scan(&a.ID, &a.Category, &props, &a.Location.Lon, &a.Location.Lat); err != nil {
		return domain.Amenity{}, fmt.Errorf("scanning amenity: %w", err)
	}
	if err := json.Unmarshal([]byte(props), &a.Props); err != nil {
		return domain.Amenity{}, fmt.Errorf("decoding props for %s: %w", a.ID, err)
	}
	return a, nil
}

// InsertAmenities bulk-inserts amenities inside a single transaction,
// replacing rows with matching IDs.
func (s *Store) InsertAmenities(ctx context.Context, amenities []domain.Amenity) error {
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO amenities (id, category, props, lon, lat) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range amenities {
		props, err := json.Marshal(a.Props)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encoding props for %s: %w", a.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, a.ID, a.Category, string(props), a.Location.Lon, a.Location.Lat); err != nil {
			_ = tx.Rollback()
			return &domain.QueryError{Op: "insert_amenity", Key: a.ID, Err: err}
		}
	}

	return tx.Commit()
}
