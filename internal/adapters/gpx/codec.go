// Package gpx implements the track codec on top of the gpxgo library.
package gpx

import (
	"fmt"

	gpxgo "github.com/tkrajina/gpxgo/gpx"

	"github.com/jobrunner/waypost/internal/domain"
)

const creator = "waypost"

// Codec encodes search results as GPX 1.1 documents and decodes uploaded
// tracks back into route geometry.
type Codec struct{}

// NewCodec creates a Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Encode serializes the route as a single track and each amenity as a
// waypoint. Waypoints carry the display name and a description with the
// category and rounded distance.
func (c *Codec) Encode(route *domain.Route, items []domain.SearchResult) ([]byte, error) {
	if err := route.Validate(); err != nil {
		return nil, err
	}

	doc := &gpxgo.GPX{
		Creator: creator,
		Name:    route.Name,
	}

	segment := gpxgo.GPXTrackSegment{}
	for _, p := range route.Geometry {
		segment.Points = append(segment.Points, gpxgo.GPXPoint{
			Point: gpxgo.Point{Latitude: p.Lat, Longitude: p.Lon},
		})
	}
	doc.Tracks = append(doc.Tracks, gpxgo.GPXTrack{
		Name:     route.Name,
		Segments: []gpxgo.GPXTrackSegment{segment},
	})

	for _, item := range items {
		doc.Waypoints = append(doc.Waypoints, gpxgo.GPXPoint{
			Point: gpxgo.Point{
				Latitude:  item.Amenity.Location.Lat,
				Longitude: item.Amenity.Location.Lon,
			},
			Name: item.Amenity.Props.DisplayName(item.Amenity.Category),
			Description: fmt.Sprintf("Category: %s | Distance: %.0f m",
				item.Amenity.Category, item.DistanceMeters),
		})
	}

	data, err := doc.ToXml(gpxgo.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("serializing gpx: %w", err)
	}
	return data, nil
}

// Decode parses an uploaded GPX file and flattens all track segments into a
// single line. Returns the track name (document name as fallback) and the
// coordinate sequence.
func (c *Codec) Decode(data []byte) (string, domain.LineString, error) {
	doc, err := gpxgo.ParseBytes(data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: parsing gpx: %v", domain.ErrInvalidInput, err)
	}

	name := doc.Name
	var line domain.LineString
	for _, track := range doc.Tracks {
		if name == "" && track.Name != "" {
			name = track.Name
		}
		for _, seg := range track.Segments {
			for _, p := range seg.Points {
				line = append(line, domain.Point{Lon: p.Longitude, Lat: p.Latitude})
			}
		}
	}

	if err := line.Validate(); err != nil {
		return "", nil, fmt.Errorf("%w: track geometry: %v", domain.ErrInvalidInput, err)
	}
	return name, line, nil
}
