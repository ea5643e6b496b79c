// Package geo provides the great-circle distance used by geo-gated
// admission and the lookup collaborator interface the join flow consumes.
package geo

import "math"

// earthRadiusKm is the mean Earth radius.
const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Location is a best-effort geolocation result for a requester.
type Location struct {
	Point
	City    string
	Country string
}

// Locator resolves a network address to an approximate location. Lookups are
// best effort: a nil result with a nil error means the address could not be
// located, which admission treats as "requires host review".
type Locator interface {
	Locate(ip string) (*Location, error)
}

// NoopLocator never resolves a location. It is the default when no
// geolocation provider is configured.
type NoopLocator struct{}

func (NoopLocator) Locate(string) (*Location, error) { return nil, nil }

// DistanceKm computes the haversine great-circle distance between two points
// in kilometers.
func DistanceKm(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func radians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
