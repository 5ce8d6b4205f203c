package ports

import (
	"context"
	"stop-sequencing-service/internal/domain"
)

// Port: previously geocoded customer addresses used by the address matcher.
type CandidateSource interface {
	// Return at most limit geocoded addresses per customer, most recent first.
	// Customers without addresses are absent from the map.
	CandidatesByCustomer(ctx context.Context, customerIDs []int64, limit int) (map[int64][]domain.CandidateAddress, error)
}
