package services

import (
	"fmt"
	"strings"

	"stop-sequencing-service/internal/config"
	"stop-sequencing-service/internal/domain"
)

// SequenceInput is everything one sequencing call needs, already in memory.
type SequenceInput struct {
	Origin               *domain.GeoPoint
	Stops                []domain.Stop
	CandidatesByCustomer map[int64][]domain.CandidateAddress
}

type resolvedStop struct {
	stop  domain.Stop
	match domain.MatchResult
}

// SequenceStops matches every stop to a coordinate where the evidence allows
// it, sequences the coordinate-backed stops and appends the rest in their
// original order.
//
// The plan always holds exactly the input stops. Missing data never produces
// an error: unmatched stops carry a reason and TotalMinutes is nil when
// nothing could be sequenced.
func SequenceStops(in SequenceInput, cfg config.Sequencing) *domain.RoutePlan {
	cfg = cfg.WithDefaults()

	matched := make([]resolvedStop, 0, len(in.Stops))
	unmatched := make([]resolvedStop, 0)
	for _, s := range in.Stops {
		r := resolvedStop{stop: s, match: resolveStop(s, in.CandidatesByCustomer[s.CustomerID], cfg)}
		if r.match.Unmatched {
			unmatched = append(unmatched, r)
			continue
		}
		matched = append(matched, r)
	}

	plan := &domain.RoutePlan{
		Origin:            copyPoint(in.Origin),
		Stops:             make([]domain.PlannedStop, 0, len(in.Stops)),
		LegMinutes:        []int{},
		MatchedCount:      len(matched),
		UnmatchedByReason: make(map[domain.UnmatchedReason]int),
	}

	if len(matched) > 0 {
		points := make([]domain.GeoPoint, len(matched))
		for i, r := range matched {
			points[i] = r.match.Position
		}

		tour := SequenceTour(in.Origin, points, cfg)
		for _, idx := range tour.Order {
			plan.Stops = append(plan.Stops, plannedStop(matched[idx]))
		}

		total := tour.TotalMinutes
		plan.LegMinutes = tour.LegMinutes
		plan.TotalMinutes = &total
		plan.DistanceKm = tour.DistanceKm
	}

	for _, r := range unmatched {
		plan.Stops = append(plan.Stops, plannedStop(r))
		plan.UnmatchedByReason[r.match.Reason]++
	}

	plan.Note = planNote(len(in.Stops), len(matched), plan.UnmatchedByReason)
	return plan
}

// resolveStop trusts a valid pre-resolved position and otherwise defers to
// the address matcher.
func resolveStop(s domain.Stop, candidates []domain.CandidateAddress, cfg config.Sequencing) domain.MatchResult {
	if s.Position != nil && s.Position.Valid() {
		return domain.MatchResult{Position: *s.Position, Origin: domain.MatchOriginPreset, Score: 1}
	}
	return MatchStop(s, candidates, cfg)
}

func plannedStop(r resolvedStop) domain.PlannedStop {
	ps := domain.PlannedStop{
		ID:      r.stop.ID,
		Label:   r.stop.Label,
		Address: r.stop.Address,
	}
	if r.match.Unmatched {
		ps.Reason = r.match.Reason
		return ps
	}

	pos := r.match.Position
	ps.Position = &pos
	ps.MatchOrigin = r.match.Origin
	ps.Score = r.match.Score
	ps.PostalCodeEqual = r.match.PostalCodeEqual
	return ps
}

func planNote(total, matched int, byReason map[domain.UnmatchedReason]int) string {
	unmatched := total - matched
	switch {
	case total == 0:
		return "no stops to sequence"
	case unmatched == 0:
		return fmt.Sprintf("all %d stops optimized", total)
	case matched == 0:
		return fmt.Sprintf("route not optimized: %d unmatched (%s)", unmatched, reasonSummary(byReason))
	default:
		return fmt.Sprintf(
			"%d of %d stops optimized; %d unmatched excluded (%s)",
			matched, total, unmatched, reasonSummary(byReason),
		)
	}
}

func reasonSummary(byReason map[domain.UnmatchedReason]int) string {
	parts := make([]string, 0, len(byReason))
	for _, reason := range domain.UnmatchedReasons {
		if n := byReason[reason]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", reason, n))
		}
	}
	return strings.Join(parts, ", ")
}

func copyPoint(p *domain.GeoPoint) *domain.GeoPoint {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
