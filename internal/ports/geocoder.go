package ports

import (
	"context"
	"stop-sequencing-service/internal/domain"
)

// Contract for resolving a free-text address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.GeoPoint, error)
}

// Persistent address -> coordinate cache consulted before a Geocoder.
// Keys are expected to be normalized by the caller.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.GeoPoint, error)
	PutMany(ctx context.Context, results map[string]domain.GeoPoint) error
}

// Customer addresses still waiting for a coordinate.
type AddressBackfillRepository interface {
	ListUngeocoded(ctx context.Context, limit int) ([]domain.CandidateAddress, error)
	SetPosition(ctx context.Context, addressID int64, p domain.GeoPoint) error
}
