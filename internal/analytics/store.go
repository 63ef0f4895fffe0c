package analytics

import (
	"context"
	"time"
)

// Visit is one resolution of a link by a visitor.
type Visit struct {
	ID             int64
	LinkIdentifier string
	CreatedAt      time.Time
	IP             string
	// Country is a two-letter ISO 3166-1 code, or empty while unknown.
	Country string
}

// Store persists visits.
type Store interface {
	// CreateVisit persists visit and assigns its ID.
	CreateVisit(ctx context.Context, visit *Visit) error
	SetVisitCountry(ctx context.Context, visitID int64, country string) error
}
