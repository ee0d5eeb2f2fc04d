package geo

import "math"

const earthRadiusMeters = 6_371_000.0

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance is Haversine over LatLng values.
func Distance(a, b LatLng) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// PolylineLength sums the great-circle length of consecutive vertex pairs.
func PolylineLength(pts []LatLng) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += Distance(pts[i-1], pts[i])
	}
	return total
}

// PlanarDistSq is the squared Euclidean distance in raw degree space.
// It is only meaningful for comparisons within a small area.
func PlanarDistSq(a, b LatLng) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return dLat*dLat + dLng*dLng
}

// ProjectOnSegment projects p onto segment AB in raw lat/lng degree space
// and returns the closest point, its parameter t in [0,1] and the squared
// planar distance from p to it. A zero-length segment projects to A.
func ProjectOnSegment(p, a, b LatLng) (proj LatLng, t float64, distSq float64) {
	dLat := b.Lat - a.Lat
	dLng := b.Lng - a.Lng
	lenSq := dLat*dLat + dLng*dLng

	if lenSq > 0 {
		t = ((p.Lat-a.Lat)*dLat + (p.Lng-a.Lng)*dLng) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	proj = PointAt(a, b, t)
	return proj, t, PlanarDistSq(p, proj)
}

// PointAt interpolates linearly between a and b.
func PointAt(a, b LatLng, t float64) LatLng {
	return LatLng{
		Lat: a.Lat + t*(b.Lat-a.Lat),
		Lng: a.Lng + t*(b.Lng-a.Lng),
	}
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
