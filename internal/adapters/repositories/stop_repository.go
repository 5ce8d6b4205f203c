package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/db"
	"stop-sequencing-service/internal/platform/obs"
)

// DateLayout is the storage format of route_stops.route_date.
const DateLayout = "2006-01-02"

// SQL-backed implementation of the StopRepository port.
type SQLStopRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLStopRepository(conn *sql.DB, dialect db.Dialect) *SQLStopRepository {
	return &SQLStopRepository{DB: conn, Dialect: dialect}
}

// Return the driver's stops for the day, in planned sequence.
func (s *SQLStopRepository) ListStops(
	ctx context.Context,
	driverID int64,
	day time.Time,
) (_ []domain.Stop, err error) {
	defer obs.Time(ctx, "stops.ListStops")(&err)

	if s.DB == nil {
		return nil, errors.New("stop repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		stop_id,
		label,
		customer_id,
		destination,
		postal_code,
		lat,
		lng
	FROM route_stops
	WHERE driver_id = ?
		AND route_date = ?
	ORDER BY seq, stop_id;
	`)

	rows, err := s.DB.QueryContext(ctx, query, driverID, day.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list stops: query route_stops table: %w", err)
	}
	defer rows.Close()

	stops := make([]domain.Stop, 0, 32)
	for rows.Next() {
		var st domain.Stop
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&st.ID, &st.Label, &st.CustomerID, &st.Address, &st.PostalCode, &lat, &lng); err != nil {
			return nil, fmt.Errorf("list stops: scan row: %w", err)
		}
		if lat.Valid && lng.Valid {
			st.Position = &domain.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
		}
		stops = append(stops, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stops: row iteration: %w", err)
	}

	return stops, nil
}
