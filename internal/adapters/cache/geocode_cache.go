package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/db"
	"stop-sequencing-service/internal/platform/obs"
)

// lookupChunk keeps IN lists below SQLite's bind variable limit.
const lookupChunk = 500

// SQLGeocodeCache persists address -> coordinate lookups so backfill runs
// never pay the geocoder twice for the same text. Keys are normalized
// address strings chosen by the caller.
type SQLGeocodeCache struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLGeocodeCache(conn *sql.DB, dialect db.Dialect) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: conn, Dialect: dialect}
}

// GetMany returns the cached points for keys; misses are simply absent.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	keys []string,
) (_ map[string]domain.GeoPoint, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: DB is nil")
	}

	uniq := uniqueKeys(keys)
	out := make(map[string]domain.GeoPoint, len(uniq))

	for start := 0; start < len(uniq); start += lookupChunk {
		end := min(start+lookupChunk, len(uniq))
		if err := s.lookup(ctx, uniq[start:end], out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (s *SQLGeocodeCache) lookup(ctx context.Context, keys []string, out map[string]domain.GeoPoint) error {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	// Only bind markers are interpolated.
	q := s.Dialect.Rebind(fmt.Sprintf(
		`SELECT address, lat, lon FROM geocode_cache WHERE address IN (%s);`,
		db.Placeholders(len(keys)),
	))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("geocode cache lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var p domain.GeoPoint
		if err := rows.Scan(&key, &p.Lat, &p.Lng); err != nil {
			return fmt.Errorf("geocode cache lookup: scan: %w", err)
		}
		out[key] = p
	}
	return rows.Err()
}

// PutMany upserts every entry in one transaction.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, entries map[string]domain.GeoPoint) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: DB is nil")
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("geocode cache store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO geocode_cache (address, lat, lon)
	VALUES (?, ?, ?)
	ON CONFLICT (address) DO UPDATE
	SET lat = EXCLUDED.lat, lon = EXCLUDED.lon;
	`))
	if err != nil {
		return fmt.Errorf("geocode cache store: prepare: %w", err)
	}
	defer stmt.Close()

	for key, p := range entries {
		if strings.TrimSpace(key) == "" {
			return errors.New("geocode cache store: empty key")
		}
		if _, err := stmt.ExecContext(ctx, key, p.Lat, p.Lng); err != nil {
			return fmt.Errorf("geocode cache store key=%q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("geocode cache store: commit: %w", err)
	}
	return nil
}

func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
