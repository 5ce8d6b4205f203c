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

// SQL-backed customer address store. It serves candidate pools to the
// planner and ungeocoded rows to the backfill job.
type SQLCandidateRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
	Now     func() time.Time
}

func NewSQLCandidateRepository(conn *sql.DB, dialect db.Dialect) *SQLCandidateRepository {
	return &SQLCandidateRepository{DB: conn, Dialect: dialect, Now: time.Now}
}

// Return at most limit geocoded addresses per customer, most recent first.
func (s *SQLCandidateRepository) CandidatesByCustomer(
	ctx context.Context,
	customerIDs []int64,
	limit int,
) (_ map[int64][]domain.CandidateAddress, err error) {
	defer obs.Time(ctx, "candidates.ByCustomer")(&err)

	if s.DB == nil {
		return nil, errors.New("candidate repository: DB is nil")
	}

	if len(customerIDs) == 0 || limit <= 0 {
		return map[int64][]domain.CandidateAddress{}, nil
	}

	seen := make(map[int64]struct{}, len(customerIDs))
	args := make([]any, 0, len(customerIDs)+1)
	for _, id := range customerIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
	}
	n := len(args)
	args = append(args, limit)

	query := s.Dialect.Rebind(fmt.Sprintf(`
	SELECT address_id, customer_id, street, locality, region, postal_code, lat, lng
	FROM (
		SELECT
			address_id, customer_id, street, locality, region, postal_code, lat, lng,
			ROW_NUMBER() OVER (
				PARTITION BY customer_id
				ORDER BY updated_at DESC, address_id DESC
			) AS rn
		FROM customer_addresses
		WHERE customer_id IN (%s)
			AND lat IS NOT NULL
			AND lng IS NOT NULL
	) ranked
	WHERE rn <= ?
	ORDER BY customer_id, rn;
	`, db.Placeholders(n)))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: query customer_addresses table: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.CandidateAddress, n)
	for rows.Next() {
		var c domain.CandidateAddress
		if err := rows.Scan(
			&c.ID, &c.CustomerID, &c.Street, &c.Locality, &c.Region, &c.PostalCode,
			&c.Position.Lat, &c.Position.Lng,
		); err != nil {
			return nil, fmt.Errorf("list candidates: scan row: %w", err)
		}
		out[c.CustomerID] = append(out[c.CustomerID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates: row iteration: %w", err)
	}

	return out, nil
}

// Return addresses without coordinates, oldest first.
func (s *SQLCandidateRepository) ListUngeocoded(ctx context.Context, limit int) ([]domain.CandidateAddress, error) {
	if s.DB == nil {
		return nil, errors.New("candidate repository: DB is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	query := s.Dialect.Rebind(`
	SELECT address_id, customer_id, street, locality, region, postal_code
	FROM customer_addresses
	WHERE lat IS NULL OR lng IS NULL
	ORDER BY updated_at, address_id
	LIMIT ?;
	`)

	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list ungeocoded: query customer_addresses table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CandidateAddress, 0, limit)
	for rows.Next() {
		var c domain.CandidateAddress
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.Street, &c.Locality, &c.Region, &c.PostalCode); err != nil {
			return nil, fmt.Errorf("list ungeocoded: scan row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ungeocoded: row iteration: %w", err)
	}

	return out, nil
}

// Store a resolved coordinate. The address becomes the customer's most
// recently updated one.
func (s *SQLCandidateRepository) SetPosition(ctx context.Context, addressID int64, p domain.GeoPoint) error {
	if s.DB == nil {
		return errors.New("candidate repository: DB is nil")
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	query := s.Dialect.Rebind(`
	UPDATE customer_addresses
	SET lat = ?, lng = ?, updated_at = ?
	WHERE address_id = ?;
	`)

	res, err := s.DB.ExecContext(ctx, query, p.Lat, p.Lng, now().UTC().Format(time.RFC3339), addressID)
	if err != nil {
		return fmt.Errorf("set position address_id=%d: %w", addressID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set position: address_id=%d not found", addressID)
	}

	return nil
}
