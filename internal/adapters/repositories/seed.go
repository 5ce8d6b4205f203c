package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"stop-sequencing-service/internal/platform/db"
)

type StopSeed struct {
	StopID      int64    `json:"stop_id"`
	DriverID    int64    `json:"driver_id"`
	RouteDate   string   `json:"route_date"`
	Seq         int      `json:"seq"`
	Label       string   `json:"label"`
	CustomerID  int64    `json:"customer_id"`
	Destination string   `json:"destination"`
	PostalCode  string   `json:"postal_code"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

type AddressSeed struct {
	AddressID  int64    `json:"address_id"`
	CustomerID int64    `json:"customer_id"`
	Street     string   `json:"street"`
	Locality   string   `json:"locality"`
	Region     string   `json:"region"`
	PostalCode string   `json:"postal_code"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
	UpdatedAt  string   `json:"updated_at"`
}

type PositionSeed struct {
	DriverID   int64   `json:"driver_id"`
	RecordedAt string  `json:"recorded_at"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// Seed is the on-disk layout of a seed file.
type Seed struct {
	Stops     []StopSeed     `json:"stops"`
	Addresses []AddressSeed  `json:"customer_addresses"`
	Positions []PositionSeed `json:"driver_positions"`
}

// Populate the database with stops, customer addresses and driver positions
// from a JSON file. Existing rows with the same keys are replaced.
func SeedFromJSON(ctx context.Context, conn *sql.DB, dialect db.Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	return ApplySeed(ctx, conn, dialect, data)
}

// ApplySeed validates data and writes it in a single transaction.
func ApplySeed(ctx context.Context, conn *sql.DB, dialect db.Dialect, data Seed) error {
	if conn == nil {
		return errors.New("seed: DB is nil")
	}
	if err := data.validate(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stopStmt, err := tx.PrepareContext(ctx, dialect.Rebind(`
	INSERT INTO route_stops (
		stop_id, driver_id, route_date, seq, label, customer_id, destination, postal_code, lat, lng
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (stop_id) DO UPDATE
	SET driver_id = EXCLUDED.driver_id,
		route_date = EXCLUDED.route_date,
		seq = EXCLUDED.seq,
		label = EXCLUDED.label,
		customer_id = EXCLUDED.customer_id,
		destination = EXCLUDED.destination,
		postal_code = EXCLUDED.postal_code,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare stop insert: %w", err)
	}
	defer stopStmt.Close()

	for _, st := range data.Stops {
		if _, err := stopStmt.ExecContext(ctx,
			st.StopID, st.DriverID, st.RouteDate, st.Seq, strings.TrimSpace(st.Label), st.CustomerID,
			strings.TrimSpace(st.Destination), strings.TrimSpace(st.PostalCode), nullFloat(st.Lat), nullFloat(st.Lng),
		); err != nil {
			return fmt.Errorf("seed: insert stop_id=%d: %w", st.StopID, err)
		}
	}

	addrStmt, err := tx.PrepareContext(ctx, dialect.Rebind(`
	INSERT INTO customer_addresses (
		address_id, customer_id, street, locality, region, postal_code, lat, lng, updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (address_id) DO UPDATE
	SET customer_id = EXCLUDED.customer_id,
		street = EXCLUDED.street,
		locality = EXCLUDED.locality,
		region = EXCLUDED.region,
		postal_code = EXCLUDED.postal_code,
		lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		updated_at = EXCLUDED.updated_at;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare address insert: %w", err)
	}
	defer addrStmt.Close()

	for _, a := range data.Addresses {
		updated, _ := time.Parse(time.RFC3339, a.UpdatedAt)
		if _, err := addrStmt.ExecContext(ctx,
			a.AddressID, a.CustomerID, strings.TrimSpace(a.Street), strings.TrimSpace(a.Locality),
			strings.TrimSpace(a.Region), strings.TrimSpace(a.PostalCode), nullFloat(a.Lat), nullFloat(a.Lng),
			updated.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("seed: insert address_id=%d: %w", a.AddressID, err)
		}
	}

	posStmt, err := tx.PrepareContext(ctx, dialect.Rebind(`
	INSERT INTO driver_positions (driver_id, recorded_at, lat, lng)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (driver_id, recorded_at) DO UPDATE
	SET lat = EXCLUDED.lat,
		lng = EXCLUDED.lng;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare position insert: %w", err)
	}
	defer posStmt.Close()

	for _, p := range data.Positions {
		recorded, _ := time.Parse(time.RFC3339, p.RecordedAt)
		if _, err := posStmt.ExecContext(ctx, p.DriverID, recorded.UTC().Format(time.RFC3339), p.Lat, p.Lng); err != nil {
			return fmt.Errorf("seed: insert position driver_id=%d: %w", p.DriverID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

func (s Seed) validate() error {
	for i, st := range s.Stops {
		if st.StopID <= 0 {
			return fmt.Errorf("invalid stop_id at index %d: %d", i+1, st.StopID)
		}
		if st.DriverID <= 0 {
			return fmt.Errorf("stop_id=%d: invalid driver_id %d", st.StopID, st.DriverID)
		}
		if _, err := time.Parse(DateLayout, st.RouteDate); err != nil {
			return fmt.Errorf("stop_id=%d: route_date must be YYYY-MM-DD: %w", st.StopID, err)
		}
		if strings.TrimSpace(st.Label) == "" {
			return fmt.Errorf("stop_id=%d: label cannot be empty", st.StopID)
		}
		if (st.Lat == nil) != (st.Lng == nil) {
			return fmt.Errorf("stop_id=%d: lat and lng must be set together", st.StopID)
		}
	}

	for i, a := range s.Addresses {
		if a.AddressID <= 0 {
			return fmt.Errorf("invalid address_id at index %d: %d", i+1, a.AddressID)
		}
		if (a.Lat == nil) != (a.Lng == nil) {
			return fmt.Errorf("address_id=%d: lat and lng must be set together", a.AddressID)
		}
		if _, err := time.Parse(time.RFC3339, a.UpdatedAt); err != nil {
			return fmt.Errorf("address_id=%d: updated_at must be RFC3339: %w", a.AddressID, err)
		}
	}

	for i, p := range s.Positions {
		if p.DriverID <= 0 {
			return fmt.Errorf("invalid driver_id in positions at index %d: %d", i+1, p.DriverID)
		}
		if _, err := time.Parse(time.RFC3339, p.RecordedAt); err != nil {
			return fmt.Errorf("position driver_id=%d: recorded_at must be RFC3339: %w", p.DriverID, err)
		}
	}

	return nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
