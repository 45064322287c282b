package settlement

import (
	"context"
	"time"
)

// Repository persists settlement aggregates. Lookups return (nil, nil) when
// the aggregate is absent.
type Repository interface {
	FindByID(ctx context.Context, settlementID string) (*Settlement, error)
	FindByCaregivingRoundID(ctx context.Context, roundID string) (*Settlement, error)
	ListByReceptionID(ctx context.Context, receptionID string) ([]*Settlement, error)
	ListByExpectedSettlementMonth(ctx context.Context, monthStart time.Time) ([]*Settlement, error)
	Save(ctx context.Context, aggregate *Settlement) error
}
