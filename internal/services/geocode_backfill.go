package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"stop-sequencing-service/internal/domain"
	"stop-sequencing-service/internal/platform/obs"
	"stop-sequencing-service/internal/ports"
)

// BackfillResult summarizes one backfill run.
type BackfillResult struct {
	Scanned   int
	FromCache int
	Geocoded  int
	Failed    int

	// Customers whose addresses gained a coordinate, in first-seen order.
	// Cached candidate pools of these customers are stale.
	Customers []int64
}

// BackfillCandidateCoordinates resolves coordinates for customer addresses
// that have none, so later runs of the matcher have candidates to work with.
//
// Lookups go to the cache first and to the geocoder for misses. A failure on
// a single address is logged and counted; the run continues. Errors from the
// repository or a cancelled context abort the run.
func BackfillCandidateCoordinates(
	ctx context.Context,
	repo ports.AddressBackfillRepository,
	cache ports.GeocodeCache,
	geocoder ports.Geocoder,
	limit int,
) (_ BackfillResult, err error) {
	defer obs.Time(ctx, "backfill.candidates")(&err)

	var res BackfillResult
	if repo == nil || geocoder == nil {
		return res, errors.New("backfill: repository and geocoder are required")
	}

	pending, err := repo.ListUngeocoded(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("backfill: list ungeocoded addresses: %w", err)
	}
	res.Scanned = len(pending)
	if len(pending) == 0 {
		return res, nil
	}

	keys := make([]string, 0, len(pending))
	for _, a := range pending {
		keys = append(keys, NormalizeAddress(CandidateText(a)))
	}

	hits := map[string]domain.GeoPoint{}
	if cache != nil {
		hits, err = cache.GetMany(ctx, keys)
		if err != nil {
			return res, fmt.Errorf("backfill: read geocode cache: %w", err)
		}
	}

	fresh := make(map[string]domain.GeoPoint)
	touched := make(map[int64]struct{})
	for i, a := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		key := keys[i]
		if key == "" {
			res.Failed++
			continue
		}

		p, ok := hits[key]
		if !ok {
			p, ok = fresh[key]
		}
		if ok {
			res.FromCache++
		} else {
			p, err = geocoder.Geocode(ctx, CandidateText(a))
			if err != nil {
				log.Printf("backfill: geocode address_id=%d failed: %v", a.ID, err)
				res.Failed++
				continue
			}
			fresh[key] = p
			res.Geocoded++
		}

		if err := repo.SetPosition(ctx, a.ID, p); err != nil {
			return res, fmt.Errorf("backfill: store coordinate for address_id=%d: %w", a.ID, err)
		}
		if _, ok := touched[a.CustomerID]; !ok {
			touched[a.CustomerID] = struct{}{}
			res.Customers = append(res.Customers, a.CustomerID)
		}
	}

	if cache != nil && len(fresh) > 0 {
		if err := cache.PutMany(ctx, fresh); err != nil {
			log.Printf("geocode cache write failed: %v", err)
		}
	}

	return res, nil
}
