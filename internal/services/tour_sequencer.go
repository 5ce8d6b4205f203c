package services

import (
	"math"

	"stop-sequencing-service/internal/config"
	"stop-sequencing-service/internal/domain"
)

// SequenceTour orders points to approximately minimize travel from origin and
// derives time estimates.
//
// A single point is a service-only tour: one zero-minute leg whatever the
// origin.
//
// When origin is nil the first point anchors the tour: it stays at position 0
// and its leg is zero minutes. Otherwise every point is free and the first
// leg runs from origin. Travel legs are rounded to whole minutes and the
// total adds ServiceMinutesPerStop for every point.
//
// Points must be valid coordinates; NaN or infinite values are the caller's
// responsibility.
func SequenceTour(origin *domain.GeoPoint, points []domain.GeoPoint, cfg config.Sequencing) domain.Tour {
	cfg = cfg.WithDefaults()

	if len(points) == 0 {
		return domain.Tour{Order: []int{}, LegMinutes: []int{}}
	}
	if len(points) == 1 {
		return domain.Tour{
			Order:        []int{0},
			LegMinutes:   []int{0},
			TotalMinutes: cfg.ServiceMinutesPerStop,
		}
	}

	var (
		start domain.GeoPoint
		fixed []int
		free  []int
	)
	if origin != nil {
		start = *origin
		free = make([]int, 0, len(points))
		for i := range points {
			free = append(free, i)
		}
	} else {
		start = points[0]
		fixed = []int{0}
		free = make([]int, 0, len(points)-1)
		for i := 1; i < len(points); i++ {
			free = append(free, i)
		}
	}

	// The anchor is already at start, so refining the free part from start
	// measures the same path as refining the full order.
	constructed := NearestNeighborOrder(start, points, free)
	refined := TwoOpt(start, points, constructed, cfg.TwoOptToleranceKm)

	order := make([]int, 0, len(points))
	order = append(order, fixed...)
	order = append(order, refined...)

	return timeTour(start, points, order, cfg)
}

func timeTour(start domain.GeoPoint, points []domain.GeoPoint, order []int, cfg config.Sequencing) domain.Tour {
	legs := make([]int, 0, len(order))
	travel := 0
	totalKm := 0.0

	current := start
	for _, idx := range order {
		km := HaversineKm(current, points[idx])
		minutes := int(math.Round(km / cfg.SpeedKmh * 60))

		legs = append(legs, minutes)
		travel += minutes
		totalKm += km
		current = points[idx]
	}

	return domain.Tour{
		Order:        order,
		LegMinutes:   legs,
		TotalMinutes: travel + len(order)*cfg.ServiceMinutesPerStop,
		DistanceKm:   totalKm,
	}
}
