package application

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jobrunner/waypost/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockSpatialStore is a hand-rolled SpatialStore with call counters.
type mockSpatialStore struct {
	mu sync.Mutex

	routes    map[string]*domain.Route
	results   []domain.SearchResult
	amenities []domain.Amenity

	getRouteCalls int
	searchCalls   int
	tileCalls     int

	searchErr error
	pingErr   error
}

func newMockStore() *mockSpatialStore {
	return &mockSpatialStore{routes: make(map[string]*domain.Route)}
}

func (m *mockSpatialStore) GetRoute(_ context.Context, routeID string) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getRouteCalls++
	route, ok := m.routes[routeID]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	copied := *route
	return &copied, nil
}

func (m *mockSpatialStore) CreateRoute(_ context.Context, route *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.routes[route.ID] = route
	return nil
}

func (m *mockSpatialStore) AmenitiesNearRoute(_ context.Context, _ *domain.Route, _ float64, _ []string) ([]domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockSpatialStore) AmenitiesInTile(_ context.Context, _, _, _ int, _ []string) ([]domain.Amenity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tileCalls++
	return m.amenities, nil
}

func (m *mockSpatialStore) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockSpatialStore) calls() (getRoute, search, tile int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getRouteCalls, m.searchCalls, m.tileCalls
}

// mockCache is an unbounded map cache that honors TTL only via explicit
// expiry in tests.
type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	puts    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (c *mockCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	return v, ok
}

func (c *mockCache) Put(key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.puts++
	c.entries[key] = value
}

func (c *mockCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string][]byte)
}

// mockFileStore keeps objects in memory.
type mockFileStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{objects: make(map[string][]byte)}
}

func (f *mockFileStore) Put(_ context.Context, key string, r io.Reader) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *mockFileStore) GetReader(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *mockFileStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.objects[key]
	return ok, nil
}

func (f *mockFileStore) get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}

// mockCodec records encoded inputs and can be made to fail or panic.
type mockCodec struct {
	mu        sync.Mutex
	encoded   []int // item counts per Encode call
	encodeErr error
	panicMsg  string
}

func (c *mockCodec) Encode(_ *domain.Route, items []domain.SearchResult) ([]byte, error) {
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	if c.encodeErr != nil {
		return nil, c.encodeErr
	}

	c.mu.Lock()
	c.encoded = append(c.encoded, len(items))
	c.mu.Unlock()
	return []byte("<gpx/>"), nil
}

func (c *mockCodec) Decode(_ []byte) (string, domain.LineString, error) {
	return "", nil, domain.ErrInvalidInput
}
