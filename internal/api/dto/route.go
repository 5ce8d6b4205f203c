package dto

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type SequenceStopRequest struct {
	ID                    int64    `json:"id"`
	Label                 string   `json:"label"`
	CustomerID            int64    `json:"customer_id"`
	DestinationAddress    string   `json:"destination_address"`
	DestinationPostalCode string   `json:"destination_postal_code"`
	Lat                   *float64 `json:"lat"`
	Lng                   *float64 `json:"lng"`
}

// CandidateAddressRequest is one known address of a customer. Candidates
// without both lat and lng are ignored.
type CandidateAddressRequest struct {
	ID         int64    `json:"id"`
	Street     string   `json:"street"`
	Locality   string   `json:"locality"`
	Region     string   `json:"region"`
	PostalCode string   `json:"postal_code"`
	Lat        *float64 `json:"lat"`
	Lng        *float64 `json:"lng"`
}

// SequenceRequest carries everything needed to sequence one route inline.
// Candidate addresses are keyed by customer id and listed most recent first.
type SequenceRequest struct {
	Origin                       *Point                              `json:"origin"`
	Stops                        []SequenceStopRequest               `json:"stops"`
	CandidateAddressesByCustomer map[int64][]CandidateAddressRequest `json:"candidate_addresses_by_customer"`
	SpeedKmh                     *float64                            `json:"speed_kmh"`
	ServiceMinutesPerStop        *int                                `json:"service_minutes_per_stop"`
}

type OrderedStopResponse struct {
	ID              int64    `json:"id"`
	Label           string   `json:"label"`
	Address         string   `json:"address"`
	Lat             *float64 `json:"lat"`
	Lng             *float64 `json:"lng"`
	MatchOrigin     string   `json:"match_origin,omitempty"`
	Score           *float64 `json:"score,omitempty"`
	PostalCodeEqual bool     `json:"postal_code_equal,omitempty"`
	UnmatchedReason string   `json:"unmatched_reason,omitempty"`
}

type RouteResponse struct {
	DriverID          *int64                `json:"driver_id,omitempty"`
	Origin            *Point                `json:"origin"`
	OriginSource      string                `json:"origin_source"`
	OrderedStops      []OrderedStopResponse `json:"ordered_stops"`
	LegMinutes        []int                 `json:"leg_minutes"`
	TotalMinutes      *int                  `json:"total_minutes"`
	TotalDistanceKm   float64               `json:"total_distance_km"`
	MatchedCount      int                   `json:"matched_count"`
	UnmatchedByReason map[string]int        `json:"unmatched_by_reason"`
	Note              string                `json:"note"`
}

type OptimizeRequest struct {
	DriverIDs []int64 `json:"driver_ids"`
	Date      string  `json:"date"`
}

type OptimizeResponse struct {
	Date   string          `json:"date"`
	Routes []RouteResponse `json:"routes"`
}
