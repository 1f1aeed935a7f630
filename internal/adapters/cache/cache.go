// Package cache provides a bounded in-memory TTL cache backed by an LRU.
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a concurrency-safe LRU cache with per-entry expiry. Expired
// entries are treated as absent on read; capacity pressure evicts the least
// recently used entry regardless of freshness.
type Memory struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry]
	now func() time.Time
}

// New creates a Memory cache bounded to capacity entries.
func New(capacity int) (*Memory, error) {
	l, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}
	return &Memory{lru: l, now: time.Now}, nil
}

// Get returns the value for key, or false on a miss. An entry past its TTL
// counts as a miss and is dropped.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	if m.now().After(e.expiresAt) {
		m.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Put stores value under key with the given TTL, overwriting any existing
// entry.
func (m *Memory) Put(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lru.Add(key, entry{value: value, expiresAt: m.now().Add(ttl)})
}

// Purge drops all entries.
func (m *Memory) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lru.Purge()
}

// Len returns the number of resident entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lru.Len()
}
