package domain

// Represents one delivery/pickup location a driver visits on a given day.
// Position is set only when an upstream system already resolved the stop.
type Stop struct {
	ID         int64
	Label      string
	CustomerID int64
	Address    string
	PostalCode string
	Position   *GeoPoint
}

// A previously geocoded address of a customer, used as a positional proxy
// for stops lacking a trusted coordinate.
type CandidateAddress struct {
	ID         int64
	CustomerID int64
	Street     string
	Locality   string
	Region     string
	PostalCode string
	Position   GeoPoint
}
