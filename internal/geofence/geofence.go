// Package geofence defines the South Florida service area (Miami-Dade,
// Broward, Palm Beach) and answers whether a coordinate is serviceable.
package geofence

import (
	"math"

	"github.com/umuve/dispatch-engine/internal/geo"
)

// Bounds is the axis-aligned bounding box used for fast rejection before the
// polygon test.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// serviceAreaBounds covers the tri-county area: northern Palm Beach down to
// Homestead, Atlantic coastline to the western Everglades boundary.
var serviceAreaBounds = Bounds{
	North: 26.97,
	South: 25.30,
	East:  -79.85,
	West:  -80.85,
}

var serviceAreaCenter = geo.Point{Lat: 26.12, Lng: -80.35}

// serviceAreaPolygon traces the approximate tri-county boundary, coastline on
// the east and the Everglades / western county borders on the west. Vertices
// are listed counter-clockwise; the polygon closes back to the first vertex.
var serviceAreaPolygon = []geo.Point{
	{Lat: 25.30, Lng: -80.40}, // SW corner: south of Homestead
	{Lat: 25.30, Lng: -80.15}, // SE corner: south Miami-Dade coast
	{Lat: 25.50, Lng: -80.10}, // Biscayne Bay / Key Biscayne
	{Lat: 25.80, Lng: -80.12}, // Miami Beach area
	{Lat: 26.05, Lng: -80.08}, // Fort Lauderdale coast
	{Lat: 26.35, Lng: -80.06}, // Pompano / Deerfield Beach coast
	{Lat: 26.55, Lng: -80.03}, // Boca Raton coast
	{Lat: 26.72, Lng: -80.03}, // Boynton / Lake Worth coast
	{Lat: 26.90, Lng: -80.04}, // West Palm Beach coast
	{Lat: 26.97, Lng: -80.10}, // NE corner: northern Palm Beach coast
	{Lat: 26.97, Lng: -80.55}, // NW corner: western Palm Beach County
	{Lat: 26.50, Lng: -80.65}, // western Broward County (Everglades edge)
	{Lat: 25.80, Lng: -80.70}, // western Miami-Dade (Everglades edge)
	{Lat: 25.30, Lng: -80.60}, // SW: western Homestead / Florida City
}

// Checker answers service-area membership. The zero value is not usable;
// construct with New.
type Checker struct {
	polygon []geo.Point
	bounds  Bounds
}

func New() *Checker {
	return &Checker{
		polygon: serviceAreaPolygon,
		bounds:  serviceAreaBounds,
	}
}

// InServiceArea reports whether the coordinate lies inside the service area.
// The bounding box rejects far-away points before the polygon test runs.
func (c *Checker) InServiceArea(lat, lng float64) bool {
	if lat < c.bounds.South || lat > c.bounds.North ||
		lng < c.bounds.West || lng > c.bounds.East {
		return false
	}
	return geo.PointInPolygon(lat, lng, c.polygon)
}

// DistanceToBoundary returns the shortest distance in km from the point to
// the polygon boundary, rounded to two decimals. Returns 0 for points on or
// outside the boundary.
func (c *Checker) DistanceToBoundary(lat, lng float64) float64 {
	if !c.InServiceArea(lat, lng) {
		return 0
	}

	minDist := math.Inf(1)
	n := len(c.polygon)
	for i := 0; i < n; i++ {
		a := c.polygon[i]
		b := c.polygon[(i+1)%n]
		d := geo.PointToSegmentKM(lat, lng, a.Lat, a.Lng, b.Lat, b.Lng)
		if d < minDist {
			minDist = d
		}
	}
	return math.Round(minDist*100) / 100
}

// Info is the public service-area payload for map rendering.
type Info struct {
	Polygon     []geo.Point `json:"polygon"`
	Bounds      Bounds      `json:"bounds"`
	Center      geo.Point   `json:"center"`
	Counties    []string    `json:"counties"`
	Description string      `json:"description"`
}

func (c *Checker) Info() Info {
	return Info{
		Polygon:     c.polygon,
		Bounds:      c.bounds,
		Center:      serviceAreaCenter,
		Counties:    []string{"Miami-Dade", "Broward", "Palm Beach"},
		Description: "South Florida tri-county area",
	}
}
