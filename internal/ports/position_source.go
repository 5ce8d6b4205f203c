package ports

import (
	"context"
	"stop-sequencing-service/internal/domain"
)

// Port: last known driver positions.
type PositionSource interface {
	// Return the most recent position of the driver, or nil when none was recorded.
	LastPosition(ctx context.Context, driverID int64) (*domain.DriverPosition, error)
}

// Port: sink for position reports sent by drivers' devices.
type PositionRecorder interface {
	RecordPosition(ctx context.Context, pos domain.DriverPosition) error
}
