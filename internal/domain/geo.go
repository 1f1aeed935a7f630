// Package domain contains the core business entities and value objects.
package domain

import (
	"fmt"
	"math"
)

// Point is a WGS84 geographic coordinate.
type Point struct {
	Lon float64
	Lat float64
}

// Validate checks that the point is a valid WGS84 coordinate.
func (p Point) Validate() error {
	if p.Lon < -180 || p.Lon > 180 {
		return &ValidationError{
			Field:      "longitude",
			Value:      p.Lon,
			Constraint: "[-180, 180]",
			Message:    "longitude must be between -180 and 180",
		}
	}
	if p.Lat < -90 || p.Lat > 90 {
		return &ValidationError{
			Field:      "latitude",
			Value:      p.Lat,
			Constraint: "[-90, 90]",
			Message:    "latitude must be between -90 and 90",
		}
	}
	return nil
}

// String returns a string representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lon, p.Lat)
}

// LineString is an ordered sequence of points forming a polyline.
type LineString []Point

// Validate checks that the line has at least two valid vertices.
func (l LineString) Validate() error {
	if len(l) < 2 {
		return &ValidationError{
			Field:      "geometry",
			Value:      len(l),
			Constraint: ">= 2 vertices",
			Message:    "a route needs at least two points",
		}
	}
	for _, p := range l {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BBox returns the bounding box of the line.
func (l LineString) BBox() BBox {
	b := BBox{MinLon: 180, MinLat: 90, MaxLon: -180, MaxLat: -90}
	for _, p := range l {
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
	}
	return b
}

// DistanceTo returns the minimum distance in meters from p to the line.
func (l LineString) DistanceTo(p Point) float64 {
	min := math.Inf(1)
	for i := 0; i+1 < len(l); i++ {
		if d := distanceToSegment(p, l[i], l[i+1]); d < min {
			min = d
		}
	}
	return min
}

// BBox is a geographic bounding box in WGS84.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Contains checks if a point is within the box.
func (b BBox) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon && p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// ExpandMeters grows the box outward by the given distance on all sides.
// Longitude padding is scaled by the cosine of the box's widest latitude so
// the padding covers at least the requested distance everywhere in the box.
func (b BBox) ExpandMeters(meters float64) BBox {
	dLat := meters / metersPerDegreeLat

	maxAbsLat := math.Max(math.Abs(b.MinLat), math.Abs(b.MaxLat))
	cosLat := math.Cos(maxAbsLat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := meters / (metersPerDegreeLat * cosLat)

	return BBox{
		MinLon: math.Max(b.MinLon-dLon, -180),
		MinLat: math.Max(b.MinLat-dLat, -90),
		MaxLon: math.Min(b.MaxLon+dLon, 180),
		MaxLat: math.Min(b.MaxLat+dLat, 90),
	}
}

const (
	earthRadiusMeters  = 6371000.0
	metersPerDegreeLat = 111320.0

	// MaxSearchRadiusMeters bounds search radii to keep query cost sane.
	MaxSearchRadiusMeters = 50000.0
)

// Haversine returns the great-circle distance in meters between two points.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// distanceToSegment returns the distance in meters from p to the segment ab.
// The segment is projected onto a local equirectangular plane centered on p,
// which is accurate to well under a meter at the radii this service allows.
func distanceToSegment(p, a, b Point) float64 {
	cosLat := math.Cos(p.Lat * math.Pi / 180)

	ax := (a.Lon - p.Lon) * cosLat
	ay := a.Lat - p.Lat
	bx := (b.Lon - p.Lon) * cosLat
	by := b.Lat - p.Lat

	dx := bx - ax
	dy := by - ay

	t := 0.0
	if segLen := dx*dx + dy*dy; segLen > 0 {
		// Project the origin (p) onto the segment and clamp to its ends.
		t = -(ax*dx + ay*dy) / segLen
		t = math.Max(0, math.Min(1, t))
	}

	nearest := Point{
		Lon: a.Lon + (b.Lon-a.Lon)*t,
		Lat: a.Lat + (b.Lat-a.Lat)*t,
	}
	return Haversine(p, nearest)
}

// TileBounds returns the WGS84 bounding box of a web tile in the standard
// z/x/y addressing scheme.
func TileBounds(z, x, y int) BBox {
	n := math.Exp2(float64(z))
	return BBox{
		MinLon: float64(x)/n*360 - 180,
		MaxLon: float64(x+1)/n*360 - 180,
		MinLat: tileLat(float64(y+1), n),
		MaxLat: tileLat(float64(y), n),
	}
}

// TileCoordinate quantizes a point into tile-local integer space for a tile
// with the given extent. X is linear in longitude; Y follows the Web Mercator
// projection so point placement matches what map clients render.
func TileCoordinate(z, x, y int, p Point, extent uint32) (int32, int32) {
	n := math.Exp2(float64(z))
	e := float64(extent)

	worldX := (p.Lon + 180) / 360 * n
	latRad := p.Lat * math.Pi / 180
	worldY := (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n

	px := (worldX - float64(x)) * e
	py := (worldY - float64(y)) * e
	return int32(math.Round(px)), int32(math.Round(py))
}

// ValidTileAddress checks z/x/y against the addressing scheme bounds.
func ValidTileAddress(z, x, y int) bool {
	if z < 0 || z > 30 {
		return false
	}
	n := 1 << z
	return x >= 0 && x < n && y >= 0 && y < n
}

func tileLat(y, n float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y/n))) * 180 / math.Pi
}
