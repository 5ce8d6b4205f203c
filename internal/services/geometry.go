package services

import (
	"math"

	"stop-sequencing-service/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between a and b in kilometers.
// Road networks are not modeled; this is only meant to rank short urban legs.
func HaversineKm(a, b domain.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PathDistanceKm sums the legs start -> points[order[0]] -> ... -> points[order[n-1]].
func PathDistanceKm(start domain.GeoPoint, points []domain.GeoPoint, order []int) float64 {
	total := 0.0
	current := start
	for _, idx := range order {
		total += HaversineKm(current, points[idx])
		current = points[idx]
	}
	return total
}
