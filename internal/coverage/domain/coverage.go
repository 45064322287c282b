package coverage

import (
	"sort"
	"time"
)

// RenewalType is the cadence after which a policy's coverage term resets.
type RenewalType string

const (
	RenewalThreeYear RenewalType = "THREE_YEAR"
	RenewalTenYear   RenewalType = "TEN_YEAR"
)

// NormalizeRenewalType validates a renewal type string.
func NormalizeRenewalType(value string) (RenewalType, bool) {
	switch RenewalType(value) {
	case RenewalThreeYear, RenewalTenYear:
		return RenewalType(value), true
	default:
		return "", false
	}
}

// TermYears returns the number of accident years in one coverage term.
func (t RenewalType) TermYears() int {
	switch t {
	case RenewalThreeYear:
		return 3
	case RenewalTenYear:
		return 10
	default:
		return 0
	}
}

// AnnualCharge is the daily caregiving charge for one accident year.
type AnnualCharge struct {
	AccidentYear int
	DailyCharge  int64
}

// Coverage describes an insurance coverage and its per-year daily charges.
type Coverage struct {
	ID                     string
	Name                   string
	TargetSubscriptionYear int
	RenewalType            RenewalType
	AnnualCharges          []AnnualCharge
}

// RateTable resolves daily caregiving charges by calendar date for one
// reception, anchored on the reception's subscription date.
type RateTable struct {
	subscriptionDate time.Time
	renewalType      RenewalType
	charges          map[int]int64
}

// NewRateTable builds a rate table from a coverage and a subscription date.
// Accident years are derived from the subscription anniversary, never taken
// from callers directly.
func NewRateTable(cov *Coverage, subscriptionDate time.Time) (RateTable, error) {
	if cov == nil {
		return RateTable{}, ErrNilCoverage
	}
	if subscriptionDate.IsZero() {
		return RateTable{}, ErrInvalidSubscriptionDate
	}
	if len(cov.AnnualCharges) == 0 {
		return RateTable{}, ErrEmptyAnnualCharges
	}

	charges := make(map[int]int64, len(cov.AnnualCharges))
	for _, entry := range cov.AnnualCharges {
		if entry.DailyCharge <= 0 {
			return RateTable{}, ErrNonPositiveCharge
		}
		charges[entry.AccidentYear] = entry.DailyCharge
	}

	return RateTable{
		subscriptionDate: subscriptionDate,
		renewalType:      cov.RenewalType,
		charges:          charges,
	}, nil
}

// AccidentYearAt returns the accident year bucket containing the date.
// The bucket rolls over on the subscription anniversary; the anniversary day
// itself already belongs to the new accident year.
func (t RateTable) AccidentYearAt(at time.Time) int {
	subYear := t.subscriptionDate.Year()
	year := at.Year()
	elapsed := year - subYear
	if beforeAnniversary(at, t.subscriptionDate) {
		elapsed--
	}
	return subYear + elapsed
}

// DailyChargeAt returns the daily charge applicable on the date.
func (t RateTable) DailyChargeAt(at time.Time) (int64, error) {
	year := t.AccidentYearAt(at)
	charge, ok := t.charges[year]
	if !ok {
		return 0, ErrYearNotCovered
	}
	return charge, nil
}

// AccidentYears lists the covered accident years in ascending order.
func (t RateTable) AccidentYears() []int {
	years := make([]int, 0, len(t.charges))
	for year := range t.charges {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// beforeAnniversary reports whether the month/day of at falls before the
// subscription month/day within its calendar year.
func beforeAnniversary(at, subscription time.Time) bool {
	if at.Month() != subscription.Month() {
		return at.Month() < subscription.Month()
	}
	return at.Day() < subscription.Day()
}
