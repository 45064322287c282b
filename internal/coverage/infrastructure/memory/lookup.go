package memory

import (
	"context"
	"sync"

	coverage "caregiving-cloud/internal/coverage/domain"
)

// CoverageLookup is an in-memory coverage lookup.
type CoverageLookup struct {
	mu   sync.RWMutex
	data map[string]*coverage.Coverage
}

// NewCoverageLookup constructs a lookup.
func NewCoverageLookup() *CoverageLookup {
	return &CoverageLookup{data: make(map[string]*coverage.Coverage)}
}

// Put stores a coverage.
func (l *CoverageLookup) Put(cov *coverage.Coverage) {
	if cov == nil || cov.ID == "" {
		return
	}
	l.mu.Lock()
	l.data[cov.ID] = cov
	l.mu.Unlock()
}

// GetCoverage loads a coverage by id.
func (l *CoverageLookup) GetCoverage(ctx context.Context, coverageID string) (*coverage.Coverage, error) {
	_ = ctx
	l.mu.RLock()
	cov := l.data[coverageID]
	l.mu.RUnlock()
	if cov == nil {
		return nil, coverage.ErrCoverageNotFound
	}
	copied := *cov
	copied.AnnualCharges = append([]coverage.AnnualCharge(nil), cov.AnnualCharges...)
	return &copied, nil
}
