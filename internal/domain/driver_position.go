package domain

import "time"

// Last position reported by a driver's device.
type DriverPosition struct {
	DriverID   int64
	Position   GeoPoint
	RecordedAt time.Time
}
