package services

import "stop-sequencing-service/internal/domain"

// TwoOpt refines order with 2-opt segment reversals measured as an open path
// from start. A reversal is adopted only when it shortens the path by more
// than toleranceKm; passes repeat until one yields no improvement.
//
// The input slice is never modified. Each adopted candidate replaces the
// current best wholesale.
func TwoOpt(start domain.GeoPoint, points []domain.GeoPoint, order []int, toleranceKm float64) []int {
	best := append([]int(nil), order...)
	if len(best) < 2 {
		return best
	}
	if toleranceKm < 0 {
		toleranceKm = 0
	}

	bestKm := PathDistanceKm(start, points, best)
	n := len(best)

	for improved := true; improved; {
		improved = false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				candidate := reverseSegment(best, i, k)
				if d := PathDistanceKm(start, points, candidate); d+toleranceKm < bestKm {
					best = candidate
					bestKm = d
					improved = true
				}
			}
		}
	}

	return best
}

// reverseSegment returns a copy of ord with positions i..k (inclusive) reversed.
func reverseSegment(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}
