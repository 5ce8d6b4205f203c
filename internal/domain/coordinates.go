package domain

import "math"

// Immutable geographic point in degrees.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// Valid reports whether the point is finite and inside the lat/lng ranges.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
