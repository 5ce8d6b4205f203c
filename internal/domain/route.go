package domain

// Ordering over coordinate-backed stops produced by the sequencer.
// Order holds indices into the sequenced point list; LegMinutes is aligned
// with Order, leg i being the travel into Order[i].
type Tour struct {
	Order        []int
	LegMinutes   []int
	TotalMinutes int
	DistanceKm   float64
}

// OriginSource names where a plan's starting point came from.
type OriginSource string

const (
	OriginSourceRequest        OriginSource = "request"
	OriginSourceDriverPosition OriginSource = "driver_position"
	OriginSourceDepot          OriginSource = "depot"
	OriginSourceNone           OriginSource = "none"
)

// Represents a single stop in a sequenced route.
// Position is nil for unmatched stops, which then carry a Reason.
type PlannedStop struct {
	ID              int64
	Label           string
	Address         string
	Position        *GeoPoint
	MatchOrigin     MatchOrigin
	Score           float64
	PostalCodeEqual bool
	Reason          UnmatchedReason
}

// Represents the sequenced route for a single driver.
// Matched stops come first in tour order, unmatched stops follow in their
// original order. TotalMinutes is nil when no stop had a coordinate.
type RoutePlan struct {
	DriverID          int64
	Origin            *GeoPoint
	OriginSource      OriginSource
	Stops             []PlannedStop
	LegMinutes        []int
	TotalMinutes      *int
	DistanceKm        float64
	MatchedCount      int
	UnmatchedByReason map[UnmatchedReason]int
	Note              string
}
