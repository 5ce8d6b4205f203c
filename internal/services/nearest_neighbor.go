package services

import (
	"math"

	"stop-sequencing-service/internal/domain"
)

// NearestNeighborOrder builds a visiting order over the given candidate
// indices of points using a greedy nearest-neighbor walk from start.
//
// At each step the closest unvisited point is appended. Ties go to the
// candidate that appears first in candidates, so the result is deterministic
// for a fixed input order (duplicate points keep their input order).
// The returned slice is newly allocated; candidates is not modified.
func NearestNeighborOrder(start domain.GeoPoint, points []domain.GeoPoint, candidates []int) []int {
	order := make([]int, 0, len(candidates))
	if len(candidates) == 0 {
		return order
	}

	visited := make([]bool, len(candidates))
	current := start

	for len(order) < len(candidates) {
		best := -1
		bestKm := math.Inf(1)

		// Select next stop by minimum great-circle distance (greedy step).
		for ci, idx := range candidates {
			if visited[ci] {
				continue
			}
			if d := HaversineKm(current, points[idx]); best == -1 || d < bestKm {
				best = ci
				bestKm = d
			}
		}

		visited[best] = true
		order = append(order, candidates[best])
		current = points[candidates[best]]
	}

	return order
}
