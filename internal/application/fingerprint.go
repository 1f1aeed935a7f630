package application

import (
	"crypto/sha1" //#nosec G505 -- fingerprinting cache keys, not security
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/jobrunner/waypost/internal/domain"
)

// CanonicalFilters normalizes a filter set: trimmed, lowercased, deduplicated
// and sorted. Two requests with the same categories in any order or casing
// share one canonical form, and therefore one cache key.
func CanonicalFilters(filters []string) []string {
	seen := make(map[string]bool, len(filters))
	var out []string
	for _, f := range filters {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// searchFingerprint is the hashed identity of a search request.
type searchFingerprint struct {
	Route   domain.LineString `json:"route"`
	Radius  float64           `json:"radius"`
	Filters []string          `json:"filters"`
}

// SearchKey derives the cache key for a search over the given geometry,
// radius and canonical filter set.
func SearchKey(route domain.LineString, radiusMeters float64, filters []string) string {
	payload, _ := json.Marshal(searchFingerprint{
		Route:   route,
		Radius:  radiusMeters,
		Filters: filters,
	})
	return "q:" + digest(payload)
}

// tileFingerprint is the hashed identity of a tile request.
type tileFingerprint struct {
	Z       int      `json:"z"`
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Filters []string `json:"filters"`
}

// TileKey derives the cache key for an amenity tile.
func TileKey(z, x, y int, filters []string) string {
	payload, _ := json.Marshal(tileFingerprint{Z: z, X: x, Y: y, Filters: filters})
	return "mvt:amenities:" + digest(payload)
}

func digest(payload []byte) string {
	sum := sha1.Sum(payload) //#nosec G401 -- fingerprinting cache keys, not security
	return hex.EncodeToString(sum[:])
}
