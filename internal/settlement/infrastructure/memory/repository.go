package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	settlement "caregiving-cloud/internal/settlement/domain"
)

// SettlementRepository is an in-memory repository for settlements.
type SettlementRepository struct {
	mu      sync.RWMutex
	data    map[string]*settlement.Settlement
	byRound map[string]string
}

// NewSettlementRepository constructs a repository.
func NewSettlementRepository() *SettlementRepository {
	return &SettlementRepository{
		data:    make(map[string]*settlement.Settlement),
		byRound: make(map[string]string),
	}
}

// FindByID loads a settlement aggregate.
func (r *SettlementRepository) FindByID(ctx context.Context, settlementID string) (*settlement.Settlement, error) {
	_ = ctx
	r.mu.RLock()
	agg := r.data[settlementID]
	r.mu.RUnlock()
	if agg == nil {
		return nil, nil
	}
	return agg.Clone(), nil
}

// FindByCaregivingRoundID loads the settlement owning a round.
func (r *SettlementRepository) FindByCaregivingRoundID(ctx context.Context, roundID string) (*settlement.Settlement, error) {
	_ = ctx
	r.mu.RLock()
	agg := r.data[r.byRound[roundID]]
	r.mu.RUnlock()
	if agg == nil {
		return nil, nil
	}
	return agg.Clone(), nil
}

// ListByReceptionID returns all settlements of a reception.
func (r *SettlementRepository) ListByReceptionID(ctx context.Context, receptionID string) ([]*settlement.Settlement, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*settlement.Settlement
	for _, agg := range r.data {
		if agg.ReceptionID() == receptionID {
			result = append(result, agg.Clone())
		}
	}
	return result, nil
}

// ListByExpectedSettlementMonth returns settlements expected in a month,
// ordered by round number for stable output.
func (r *SettlementRepository) ListByExpectedSettlementMonth(ctx context.Context, monthStart time.Time) ([]*settlement.Settlement, error) {
	_ = ctx
	monthEnd := monthStart.AddDate(0, 1, 0)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*settlement.Settlement
	for _, agg := range r.data {
		at := agg.ExpectedSettlementAt()
		if !at.Before(monthStart) && at.Before(monthEnd) {
			result = append(result, agg.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CaregivingRoundNumber() < result[j].CaregivingRoundNumber()
	})
	return result, nil
}

// Save persists an aggregate (overwrites existing).
func (r *SettlementRepository) Save(ctx context.Context, aggregate *settlement.Settlement) error {
	_ = ctx
	if aggregate == nil {
		return settlement.ErrNilAggregate
	}
	if aggregate.ID() == "" {
		return settlement.ErrEmptySettlementID
	}

	copied := aggregate.Clone()
	r.mu.Lock()
	r.data[copied.ID()] = copied
	r.byRound[copied.CaregivingRoundID()] = copied.ID()
	r.mu.Unlock()

	aggregate.MarkPersisted()
	return nil
}
