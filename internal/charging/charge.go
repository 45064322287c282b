package charging

import (
	"time"

	coverage "caregiving-cloud/internal/coverage/domain"
)

// Additional-hour billing: overage below this many whole hours is billed at
// the hourly pro-rate, overage at or above it as one full extra day.
const extraDayThresholdHours = 4

// Period is the caregiving interval of one round. End may be zero while the
// round is still open.
type Period struct {
	Start time.Time
	End   time.Time
}

// IsOpen reports whether the round has not ended yet.
func (p Period) IsOpen() bool { return p.End.IsZero() }

// Validate checks interval ordering.
func (p Period) Validate() error {
	if p.Start.IsZero() {
		return ErrInvalidPeriod
	}
	if !p.End.IsZero() && p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Duration returns the elapsed time of a closed period.
func (p Period) Duration() time.Duration {
	if p.IsOpen() {
		return 0
	}
	return p.End.Sub(p.Start)
}

// BasicAmountLine is the whole-day charge for one accident year.
type BasicAmountLine struct {
	AccidentYear   int
	DailyCharge    int64
	CaregivingDays int
	TotalAmount    int64
}

// Result is the outcome of one charge computation.
type Result struct {
	BasicAmountLines []BasicAmountLine
	AdditionalHours  int
	AdditionalAmount int64
	TotalAmount      int64
}

// Calculate converts a caregiving period into charge amounts against a rate
// table. It is pure and safe for concurrent use.
//
// A round canceled after the caregiver arrived is billed as exactly one
// caregiving day at the start date's rate, with no overage. Otherwise the
// period is split into whole 24h blocks, each attributed to the accident year
// of the calendar date it starts on, and the remainder is billed per the
// additional-hour rules.
func Calculate(period Period, table coverage.RateTable, cancelAfterArrived bool) (Result, error) {
	if err := period.Validate(); err != nil {
		return Result{}, err
	}

	if cancelAfterArrived {
		charge, err := table.DailyChargeAt(period.Start)
		if err != nil {
			return Result{}, err
		}
		line := BasicAmountLine{
			AccidentYear:   table.AccidentYearAt(period.Start),
			DailyCharge:    charge,
			CaregivingDays: 1,
			TotalAmount:    charge,
		}
		return Result{
			BasicAmountLines: []BasicAmountLine{line},
			TotalAmount:      line.TotalAmount,
		}, nil
	}

	elapsed := period.Duration()
	wholeDays := int(elapsed / (24 * time.Hour))
	remainder := elapsed - time.Duration(wholeDays)*24*time.Hour
	additionalHours := int(remainder / time.Hour)

	lines, err := basicAmountLines(period.Start, wholeDays, table)
	if err != nil {
		return Result{}, err
	}

	// The overage rate follows the last whole day's accident year; with no
	// whole days it follows the start date.
	lastDayStart := period.Start
	if wholeDays > 0 {
		lastDayStart = period.Start.Add(time.Duration(wholeDays-1) * 24 * time.Hour)
	}
	overageCharge, err := table.DailyChargeAt(lastDayStart)
	if err != nil {
		return Result{}, err
	}

	var additionalAmount int64
	switch {
	case additionalHours == 0:
	case additionalHours < extraDayThresholdHours:
		additionalAmount = overageCharge * int64(additionalHours) / 24
	default:
		additionalAmount = overageCharge
	}

	var total int64
	for _, line := range lines {
		total += line.TotalAmount
	}
	total += additionalAmount

	return Result{
		BasicAmountLines: lines,
		AdditionalHours:  additionalHours,
		AdditionalAmount: additionalAmount,
		TotalAmount:      total,
	}, nil
}

// basicAmountLines groups whole 24h blocks by the accident year of their
// start dates. A caregiving round spans at most one renewal boundary, so the
// result holds one or two lines.
func basicAmountLines(start time.Time, wholeDays int, table coverage.RateTable) ([]BasicAmountLine, error) {
	if wholeDays == 0 {
		charge, err := table.DailyChargeAt(start)
		if err != nil {
			return nil, err
		}
		return []BasicAmountLine{{
			AccidentYear: table.AccidentYearAt(start),
			DailyCharge:  charge,
		}}, nil
	}

	var lines []BasicAmountLine
	for day := 0; day < wholeDays; day++ {
		dayStart := start.Add(time.Duration(day) * 24 * time.Hour)
		year := table.AccidentYearAt(dayStart)

		if len(lines) > 0 && lines[len(lines)-1].AccidentYear == year {
			last := &lines[len(lines)-1]
			last.CaregivingDays++
			last.TotalAmount += last.DailyCharge
			continue
		}

		charge, err := table.DailyChargeAt(dayStart)
		if err != nil {
			return nil, err
		}
		lines = append(lines, BasicAmountLine{
			AccidentYear:   year,
			DailyCharge:    charge,
			CaregivingDays: 1,
			TotalAmount:    charge,
		})
	}
	return lines, nil
}
