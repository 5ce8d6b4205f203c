package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/db"
)

// SQL-backed implementation of the PositionSource port.
type SQLPositionRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLPositionRepository(conn *sql.DB, dialect db.Dialect) *SQLPositionRepository {
	return &SQLPositionRepository{DB: conn, Dialect: dialect}
}

// Return the driver's latest recorded position, or nil if there is none.
func (s *SQLPositionRepository) LastPosition(ctx context.Context, driverID int64) (*domain.DriverPosition, error) {
	if s.DB == nil {
		return nil, errors.New("position repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT lat, lng, recorded_at
	FROM driver_positions
	WHERE driver_id = ?
	ORDER BY recorded_at DESC
	LIMIT 1;
	`)

	var (
		pos        domain.DriverPosition
		recordedAt string
	)
	err := s.DB.QueryRowContext(ctx, query, driverID).Scan(&pos.Position.Lat, &pos.Position.Lng, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last position driver_id=%d: %w", driverID, err)
	}

	ts, err := time.Parse(time.RFC3339, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("last position driver_id=%d: parse recorded_at %q: %w", driverID, recordedAt, err)
	}
	pos.DriverID = driverID
	pos.RecordedAt = ts

	return &pos, nil
}

// Record a position report.
func (s *SQLPositionRepository) RecordPosition(ctx context.Context, pos domain.DriverPosition) error {
	if s.DB == nil {
		return errors.New("position repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	INSERT INTO driver_positions (driver_id, recorded_at, lat, lng)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (driver_id, recorded_at) DO UPDATE
	SET lat = EXCLUDED.lat,
		lng = EXCLUDED.lng;
	`)

	_, err := s.DB.ExecContext(ctx, query,
		pos.DriverID, pos.RecordedAt.UTC().Format(time.RFC3339), pos.Position.Lat, pos.Position.Lng)
	if err != nil {
		return fmt.Errorf("record position driver_id=%d: %w", pos.DriverID, err)
	}

	return nil
}
