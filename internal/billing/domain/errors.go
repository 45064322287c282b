package billing

import "errors"

var (
	// ErrBillingNotFound is returned when a billing is not found.
	ErrBillingNotFound = errors.New("billing: not found")
	// ErrNilAggregate is returned when saving a nil aggregate.
	ErrNilAggregate = errors.New("billing: nil aggregate")
	// ErrEmptyBillingID is returned when an id is empty.
	ErrEmptyBillingID = errors.New("billing: empty billing id")
	// ErrNilReception is returned when a billing is created without reception info.
	ErrNilReception = errors.New("billing: nil reception")
	// ErrNilCaregivingRound is returned when a billing is created without round info.
	ErrNilCaregivingRound = errors.New("billing: nil caregiving round")
)
