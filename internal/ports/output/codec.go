package output

import "github.com/jobrunner/waypost/internal/domain"

// TrackCodec defines the secondary port for the track-file format. Only the
// byte-level contract matters to the core: a track for the route plus one
// waypoint per amenity.
type TrackCodec interface {
	// Encode serializes the route and its matched amenities.
	Encode(route *domain.Route, items []domain.SearchResult) ([]byte, error)

	// Decode extracts the track name and coordinate sequence from an
	// uploaded file.
	Decode(data []byte) (name string, line domain.LineString, err error)
}
