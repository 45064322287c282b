package coverage

import "context"

// Lookup resolves coverages by id. Implementations are treated as a blocking
// external call; callers fetch fresh data on every recompute and never cache a
// rate table across calls.
type Lookup interface {
	GetCoverage(ctx context.Context, coverageID string) (*Coverage, error)
}
