package memory

import (
	"context"
	"sync"

	billing "caregiving-cloud/internal/billing/domain"
)

// BillingRepository is an in-memory repository for billings.
type BillingRepository struct {
	mu      sync.RWMutex
	data    map[string]*billing.Billing
	byRound map[string]string
}

// NewBillingRepository constructs a repository.
func NewBillingRepository() *BillingRepository {
	return &BillingRepository{
		data:    make(map[string]*billing.Billing),
		byRound: make(map[string]string),
	}
}

// FindByID loads a billing aggregate.
func (r *BillingRepository) FindByID(ctx context.Context, billingID string) (*billing.Billing, error) {
	_ = ctx
	r.mu.RLock()
	agg := r.data[billingID]
	r.mu.RUnlock()
	if agg == nil {
		return nil, nil
	}
	return agg.Clone(), nil
}

// FindByCaregivingRoundID loads the billing owning a round.
func (r *BillingRepository) FindByCaregivingRoundID(ctx context.Context, roundID string) (*billing.Billing, error) {
	_ = ctx
	r.mu.RLock()
	agg := r.data[r.byRound[roundID]]
	r.mu.RUnlock()
	if agg == nil {
		return nil, nil
	}
	return agg.Clone(), nil
}

// ListByReceptionID returns all billings of a reception.
func (r *BillingRepository) ListByReceptionID(ctx context.Context, receptionID string) ([]*billing.Billing, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*billing.Billing
	for _, agg := range r.data {
		if agg.ReceptionID() == receptionID {
			result = append(result, agg.Clone())
		}
	}
	return result, nil
}

// Save persists an aggregate (overwrites existing).
func (r *BillingRepository) Save(ctx context.Context, aggregate *billing.Billing) error {
	_ = ctx
	if aggregate == nil {
		return billing.ErrNilAggregate
	}
	if aggregate.ID() == "" {
		return billing.ErrEmptyBillingID
	}

	copied := aggregate.Clone()
	r.mu.Lock()
	r.data[copied.ID()] = copied
	r.byRound[copied.CaregivingRoundID()] = copied.ID()
	r.mu.Unlock()

	aggregate.MarkPersisted()
	return nil
}
