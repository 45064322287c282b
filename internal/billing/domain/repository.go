package billing

import "context"

// Repository persists billing aggregates. Lookups return (nil, nil) when the
// aggregate is absent.
type Repository interface {
	FindByID(ctx context.Context, billingID string) (*Billing, error)
	FindByCaregivingRoundID(ctx context.Context, roundID string) (*Billing, error)
	ListByReceptionID(ctx context.Context, receptionID string) ([]*Billing, error)
	Save(ctx context.Context, aggregate *Billing) error
}
