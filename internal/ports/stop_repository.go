package ports

import (
	"context"
	"stop-sequencing-service/internal/domain"
	"time"
)

// Port: a boundary for retrieving a driver's stops from a data source.
type StopRepository interface {
	// Return the driver's stops for the calendar day of day, in planned order.
	ListStops(ctx context.Context, driverID int64, day time.Time) ([]domain.Stop, error)
}
