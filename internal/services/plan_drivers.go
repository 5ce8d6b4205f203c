package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"stop-sequencing-service/internal/domain"
)

// maxConcurrentPlans bounds how many drivers are planned at once so a large
// request does not exhaust the database pool.
const maxConcurrentPlans = 5

// PlanDrivers plans every driver in driverIDs concurrently and returns the
// plans in request order. The first failure cancels the remaining work.
func PlanDrivers(
	ctx context.Context,
	planner *RoutePlanner,
	driverIDs []int64,
	day time.Time,
) ([]*domain.RoutePlan, error) {
	plans := make([]*domain.RoutePlan, len(driverIDs))
	if len(driverIDs) == 0 {
		return plans, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPlans)

	for i, id := range driverIDs {
		g.Go(func() error {
			plan, err := planner.PlanDriver(gctx, id, day)
			if err != nil {
				return fmt.Errorf("plan drivers: %w", err)
			}
			// Each goroutine owns a distinct index.
			plans[i] = plan
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return plans, nil
}
