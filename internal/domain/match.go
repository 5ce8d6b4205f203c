package domain

// MatchOrigin records how a stop obtained its coordinate.
type MatchOrigin string

const (
	MatchOriginMatched MatchOrigin = "matched"
	MatchOriginPreset  MatchOrigin = "preset"
)

// UnmatchedReason explains why no coordinate was assigned to a stop.
type UnmatchedReason string

const (
	ReasonNoAddress       UnmatchedReason = "no address text"
	ReasonNoCandidates    UnmatchedReason = "customer has no candidate coordinates"
	ReasonNoReliableMatch UnmatchedReason = "no reliable coordinates"
)

// UnmatchedReasons lists every reason in reporting order.
var UnmatchedReasons = []UnmatchedReason{
	ReasonNoReliableMatch,
	ReasonNoCandidates,
	ReasonNoAddress,
}

// Outcome of matching one stop against its customer's candidate pool.
// Exactly one of Position or Reason is meaningful, selected by Unmatched.
type MatchResult struct {
	Position        GeoPoint
	Origin          MatchOrigin
	Score           float64
	PostalCodeEqual bool

	Unmatched bool
	Reason    UnmatchedReason
}
