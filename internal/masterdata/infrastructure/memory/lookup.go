package memory

import (
	"context"
	"sync"

	masterdata "caregiving-cloud/internal/masterdata/domain"
)

// Lookup is an in-memory reception and caregiving round lookup.
type Lookup struct {
	mu         sync.RWMutex
	receptions map[string]*masterdata.Reception
	rounds     map[string]*masterdata.CaregivingRound
}

// NewLookup constructs a lookup.
func NewLookup() *Lookup {
	return &Lookup{
		receptions: make(map[string]*masterdata.Reception),
		rounds:     make(map[string]*masterdata.CaregivingRound),
	}
}

// PutReception stores a reception.
func (l *Lookup) PutReception(reception *masterdata.Reception) {
	if reception == nil || reception.ID == "" {
		return
	}
	l.mu.Lock()
	l.receptions[reception.ID] = reception
	l.mu.Unlock()
}

// PutCaregivingRound stores a caregiving round.
func (l *Lookup) PutCaregivingRound(round *masterdata.CaregivingRound) {
	if round == nil || round.ID == "" {
		return
	}
	l.mu.Lock()
	l.rounds[round.ID] = round
	l.mu.Unlock()
}

// GetReception loads a reception by id.
func (l *Lookup) GetReception(ctx context.Context, receptionID string) (*masterdata.Reception, error) {
	_ = ctx
	l.mu.RLock()
	reception := l.receptions[receptionID]
	l.mu.RUnlock()
	if reception == nil {
		return nil, masterdata.ErrReceptionNotFound
	}
	copied := *reception
	return &copied, nil
}

// GetCaregivingRound loads a round by id.
func (l *Lookup) GetCaregivingRound(ctx context.Context, roundID string) (*masterdata.CaregivingRound, error) {
	_ = ctx
	l.mu.RLock()
	round := l.rounds[roundID]
	l.mu.RUnlock()
	if round == nil {
		return nil, masterdata.ErrCaregivingRoundNotFound
	}
	copied := *round
	return &copied, nil
}
