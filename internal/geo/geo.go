// Package geo holds the coordinate math shared by the geofence checker,
// surge zones, and the matching selector.
package geo

import "math"

const EarthRadiusKM = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Haversine returns the great-circle distance in kilometres between two
// points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := radians(lat1)
	rlat2 := radians(lat2)
	dlat := radians(lat2 - lat1)
	dlng := radians(lng2 - lng1)

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(a))
}

// PointInPolygon runs the even-odd ray-casting test. The polygon is
// implicitly closed (last vertex connects back to the first).
func PointInPolygon(lat, lng float64, polygon []Point) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := polygon[i].Lat, polygon[i].Lng
		xj, yj := polygon[j].Lat, polygon[j].Lng

		if (yi > lng) != (yj > lng) &&
			lat < (xj-xi)*(lng-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// PointToSegmentKM returns the distance in kilometres from the point to the
// segment A-B: planar projection onto the segment clamped to [0,1], then
// haversine to the projected point.
func PointToSegmentKM(lat, lng, aLat, aLng, bLat, bLng float64) float64 {
	abLat := bLat - aLat
	abLng := bLng - aLng
	apLat := lat - aLat
	apLng := lng - aLng

	abSq := abLat*abLat + abLng*abLng
	if abSq == 0 {
		// Degenerate segment.
		return Haversine(lat, lng, aLat, aLng)
	}

	t := (apLat*abLat + apLng*abLng) / abSq
	t = math.Max(0, math.Min(1, t))

	return Haversine(lat, lng, aLat+t*abLat, aLng+t*abLng)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
