package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stop-sequencing-service/internal/config"
	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/obs"
	"stop-sequencing-service/internal/ports"
)

// RoutePlanner gathers a driver's stops, origin and candidate addresses
// through ports and hands them to SequenceStops.
type RoutePlanner struct {
	Stops      ports.StopRepository
	Candidates ports.CandidateSource
	// Positions is optional; without it the depot (or nothing) is the origin.
	Positions ports.PositionSource

	Depot          *domain.GeoPoint
	PositionMaxAge time.Duration
	CandidateLimit int
	Sequencing     config.Sequencing

	Now func() time.Time
}

func (p *RoutePlanner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// PlanDriver sequences the driver's stops for the day of day.
// A driver without stops gets an empty plan.
func (p *RoutePlanner) PlanDriver(
	ctx context.Context,
	driverID int64,
	day time.Time,
) (_ *domain.RoutePlan, err error) {
	defer obs.Time(ctx, "planner.PlanDriver")(&err)

	if p.Stops == nil || p.Candidates == nil {
		return nil, errors.New("plan driver: stop repository and candidate source are required")
	}

	stops, err := p.Stops.ListStops(ctx, driverID, day)
	if err != nil {
		return nil, fmt.Errorf("plan driver %d: list stops: %w", driverID, err)
	}

	origin, source, err := p.ResolveOrigin(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("plan driver %d: %w", driverID, err)
	}

	candidates := map[int64][]domain.CandidateAddress{}
	if ids := customersNeedingMatch(stops); len(ids) > 0 {
		limit := p.CandidateLimit
		if limit <= 0 {
			limit = 25
		}
		candidates, err = p.Candidates.CandidatesByCustomer(ctx, ids, limit)
		if err != nil {
			return nil, fmt.Errorf("plan driver %d: load candidate addresses: %w", driverID, err)
		}
	}

	plan := SequenceStops(SequenceInput{
		Origin:               origin,
		Stops:                stops,
		CandidatesByCustomer: candidates,
	}, p.Sequencing)
	plan.DriverID = driverID
	plan.OriginSource = source

	return plan, nil
}

// ResolveOrigin picks the driver's last recorded position when it is recent
// enough, falling back to the configured depot and then to no origin.
func (p *RoutePlanner) ResolveOrigin(ctx context.Context, driverID int64) (*domain.GeoPoint, domain.OriginSource, error) {
	if p.Positions != nil {
		pos, err := p.Positions.LastPosition(ctx, driverID)
		if err != nil {
			return nil, "", fmt.Errorf("resolve origin: last position: %w", err)
		}

		fresh := pos != nil && pos.Position.Valid() &&
			(p.PositionMaxAge <= 0 || p.now().Sub(pos.RecordedAt) <= p.PositionMaxAge)
		if fresh {
			origin := pos.Position
			return &origin, domain.OriginSourceDriverPosition, nil
		}
	}

	if p.Depot != nil && p.Depot.Valid() {
		origin := *p.Depot
		return &origin, domain.OriginSourceDepot, nil
	}

	return nil, domain.OriginSourceNone, nil
}

// customersNeedingMatch returns distinct customer ids, in first-seen order,
// of stops that will go through the address matcher.
func customersNeedingMatch(stops []domain.Stop) []int64 {
	seen := make(map[int64]struct{}, len(stops))
	ids := make([]int64, 0, len(stops))
	for _, s := range stops {
		if s.Position != nil && s.Position.Valid() {
			continue
		}
		if _, ok := seen[s.CustomerID]; ok {
			continue
		}
		seen[s.CustomerID] = struct{}{}
		ids = append(ids, s.CustomerID)
	}
	return ids
}
