package output

import "time"

// Cache defines the secondary port for the fingerprint cache. Keys are
// opaque strings derived by the caller; values are serialized payloads.
// Implementations must be safe for concurrent use and must never return
// an entry past its TTL.
type Cache interface {
	// Get returns the value for key, or false on a miss (absent or expired).
	Get(key string) ([]byte, bool)

	// Put stores value under key, overwriting any existing entry.
	Put(key string, value []byte, ttl time.Duration)

	// Purge drops all entries.
	Purge()
}
