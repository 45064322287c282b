package settlement

import (
	"errors"
	"fmt"
)

var (
	// ErrSettlementNotFound is returned when a settlement is not found.
	ErrSettlementNotFound = errors.New("settlement: not found")
	// ErrNilAggregate is returned when saving a nil aggregate.
	ErrNilAggregate = errors.New("settlement: nil aggregate")
	// ErrEmptySettlementID is returned when an id is empty.
	ErrEmptySettlementID = errors.New("settlement: empty settlement id")
	// ErrNilReception is returned when a settlement is created without reception info.
	ErrNilReception = errors.New("settlement: nil reception")
	// ErrNilCaregivingRound is returned when a settlement is created without round info.
	ErrNilCaregivingRound = errors.New("settlement: nil caregiving round")
)

// InvalidTransitionError reports an illegal progressing-status transition.
// It is a business-rule violation and is never silently corrected.
type InvalidTransitionError struct {
	Current   ProgressingStatus
	Attempted ProgressingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("settlement: invalid transition from %s to %s", e.Current, e.Attempted)
}
