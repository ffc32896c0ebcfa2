package space

import (
	"math"

	"github.com/askme-chat/askme-server/internal/bus"
)

// DistanceFunc maps two coordinate pairs to a distance in meters.
type DistanceFunc func(lat1, lon1, lat2, lon2 float64) float64

const earthRadiusMeters = 6371e3

// Haversine is the default DistanceFunc, the great-circle distance
// between two points on a spherical earth.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// WithinRadius builds a bus filter passing only space events whose
// location is within radiusMeters of the given origin. Sentinel
// records never pass. Compose with ExcludeUser for the usual
// proximity-bounded space subscription.
func WithinRadius(lat, lon, radiusMeters float64, distance DistanceFunc) bus.FilterFunc {
	if distance == nil {
		distance = Haversine
	}

	return func(ev bus.Event) bool {
		if ev.Location == nil || !ev.Location.InSpace() {
			return false
		}

		return distance(lat, lon, ev.Location.Lat, ev.Location.Lon) <= radiusMeters
	}
}

// And combines filters, passing events accepted by all of them.
func And(filters ...bus.FilterFunc) bus.FilterFunc {
	return func(ev bus.Event) bool {
		for _, f := range filters {
			if f != nil && !f(ev) {
				return false
			}
		}
		return true
	}
}
