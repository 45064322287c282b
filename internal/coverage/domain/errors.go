package coverage

import "errors"

var (
	// ErrCoverageNotFound is returned when a coverage id is unknown.
	ErrCoverageNotFound = errors.New("coverage: not found")
	// ErrNilCoverage is returned when a rate table is built from nil.
	ErrNilCoverage = errors.New("coverage: nil coverage")
	// ErrInvalidSubscriptionDate is returned when the subscription date is zero.
	ErrInvalidSubscriptionDate = errors.New("coverage: invalid subscription date")
	// ErrEmptyAnnualCharges is returned when a coverage has no charge entries.
	ErrEmptyAnnualCharges = errors.New("coverage: empty annual charges")
	// ErrNonPositiveCharge is returned when a daily charge is zero or negative.
	ErrNonPositiveCharge = errors.New("coverage: non-positive daily charge")
	// ErrYearNotCovered is returned when a date maps to no charge entry.
	ErrYearNotCovered = errors.New("coverage: accident year not covered")
)
