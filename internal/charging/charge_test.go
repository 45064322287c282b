package charging

import (
	"errors"
	"testing"
	"time"

	coverage "caregiving-cloud/internal/coverage/domain"
)

func testRateTable(t *testing.T) coverage.RateTable {
	t.Helper()
	cov := &coverage.Coverage{
		ID:                     "coverage-1",
		Name:                   "ten-year caregiving",
		TargetSubscriptionYear: 2022,
		RenewalType:            coverage.RenewalTenYear,
		AnnualCharges: []coverage.AnnualCharge{
			{AccidentYear: 2022, DailyCharge: 100000},
			{AccidentYear: 2023, DailyCharge: 200000},
		},
	}
	subscription := time.Date(2022, 3, 24, 0, 0, 0, 0, time.UTC)
	table, err := coverage.NewRateTable(cov, subscription)
	if err != nil {
		t.Fatalf("NewRateTable error: %v", err)
	}
	return table
}

func TestCalculateSplitsWholeDaysAcrossRenewal(t *testing.T) {
	table := testRateTable(t)
	period := Period{
		Start: time.Date(2023, 3, 23, 9, 30, 0, 0, time.UTC),
		End:   time.Date(2023, 3, 25, 9, 30, 0, 0, time.UTC),
	}

	result, err := Calculate(period, table, false)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if len(result.BasicAmountLines) != 2 {
		t.Fatalf("line count mismatch: got=%d want=2", len(result.BasicAmountLines))
	}
	first := result.BasicAmountLines[0]
	if first.AccidentYear != 2022 || first.CaregivingDays != 1 || first.TotalAmount != 100000 {
		t.Fatalf("first line mismatch: got=%+v", first)
	}
	second := result.BasicAmountLines[1]
	if second.AccidentYear != 2023 || second.CaregivingDays != 1 || second.TotalAmount != 200000 {
		t.Fatalf("second line mismatch: got=%+v", second)
	}
	if result.AdditionalHours != 0 || result.AdditionalAmount != 0 {
		t.Fatalf("overage mismatch: hours=%d amount=%d", result.AdditionalHours, result.AdditionalAmount)
	}
	if result.TotalAmount != 300000 {
		t.Fatalf("total mismatch: got=%d want=300000", result.TotalAmount)
	}
}

func TestCalculateOverageAtThresholdBillsFullDay(t *testing.T) {
	table := testRateTable(t)
	period := Period{
		Start: time.Date(2023, 3, 23, 9, 30, 0, 0, time.UTC),
		End:   time.Date(2023, 3, 25, 13, 30, 15, 0, time.UTC),
	}

	result, err := Calculate(period, table, false)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if result.AdditionalHours != 4 {
		t.Fatalf("additional hours mismatch: got=%d want=4", result.AdditionalHours)
	}
	// Overage follows the last whole day, which already fell in 2023.
	if result.AdditionalAmount != 200000 {
		t.Fatalf("additional amount mismatch: got=%d want=200000", result.AdditionalAmount)
	}
	if result.TotalAmount != 500000 {
		t.Fatalf("total mismatch: got=%d want=500000", result.TotalAmount)
	}
}

func TestCalculateOverageBelowThresholdProRates(t *testing.T) {
	table := testRateTable(t)
	period := Period{
		Start: time.Date(2023, 3, 23, 9, 30, 0, 0, time.UTC),
		End:   time.Date(2023, 3, 25, 13, 29, 30, 0, time.UTC),
	}

	result, err := Calculate(period, table, false)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if result.AdditionalHours != 3 {
		t.Fatalf("additional hours mismatch: got=%d want=3", result.AdditionalHours)
	}
	if want := int64(200000) * 3 / 24; result.AdditionalAmount != want {
		t.Fatalf("additional amount mismatch: got=%d want=%d", result.AdditionalAmount, want)
	}
	if result.TotalAmount != 325000 {
		t.Fatalf("total mismatch: got=%d want=325000", result.TotalAmount)
	}
}

func TestCalculateCancelAfterArrivedBillsOneDay(t *testing.T) {
	table := testRateTable(t)
	period := Period{
		Start: time.Date(2023, 3, 23, 9, 30, 0, 0, time.UTC),
		End:   time.Date(2023, 3, 23, 10, 0, 0, 0, time.UTC),
	}

	result, err := Calculate(period, table, true)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if len(result.BasicAmountLines) != 1 {
		t.Fatalf("line count mismatch: got=%d want=1", len(result.BasicAmountLines))
	}
	line := result.BasicAmountLines[0]
	if line.AccidentYear != 2022 || line.CaregivingDays != 1 || line.TotalAmount != 100000 {
		t.Fatalf("line mismatch: got=%+v", line)
	}
	if result.AdditionalHours != 0 || result.AdditionalAmount != 0 {
		t.Fatalf("overage mismatch: hours=%d amount=%d", result.AdditionalHours, result.AdditionalAmount)
	}
	if result.TotalAmount != 100000 {
		t.Fatalf("total mismatch: got=%d want=100000", result.TotalAmount)
	}
}

func TestCalculateShortPeriodBillsOverageOnly(t *testing.T) {
	table := testRateTable(t)
	period := Period{
		Start: time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 5, 1, 11, 0, 0, 0, time.UTC),
	}

	result, err := Calculate(period, table, false)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	if len(result.BasicAmountLines) != 1 {
		t.Fatalf("line count mismatch: got=%d want=1", len(result.BasicAmountLines))
	}
	if result.BasicAmountLines[0].CaregivingDays != 0 {
		t.Fatalf("caregiving days mismatch: got=%d want=0", result.BasicAmountLines[0].CaregivingDays)
	}
	if result.AdditionalHours != 3 {
		t.Fatalf("additional hours mismatch: got=%d want=3", result.AdditionalHours)
	}
	if want := int64(200000) * 3 / 24; result.TotalAmount != want {
		t.Fatalf("total mismatch: got=%d want=%d", result.TotalAmount, want)
	}
}

func TestCalculateRejectsInvertedPeriod(t *testing.T) {
	table := testRateTable(t)
	period := Period{
		Start: time.Date(2023, 3, 25, 9, 30, 0, 0, time.UTC),
		End:   time.Date(2023, 3, 23, 9, 30, 0, 0, time.UTC),
	}

	if _, err := Calculate(period, table, false); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("error mismatch: got=%v want=%v", err, ErrInvalidPeriod)
	}
}

func TestCalculateUncoveredYearFails(t *testing.T) {
	table := testRateTable(t)
	period := Period{
		Start: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC),
	}

	if _, err := Calculate(period, table, false); !errors.Is(err, coverage.ErrYearNotCovered) {
		t.Fatalf("error mismatch: got=%v want=%v", err, coverage.ErrYearNotCovered)
	}
}

func TestPeriodOpenHasNoDuration(t *testing.T) {
	period := Period{Start: time.Date(2023, 3, 23, 9, 30, 0, 0, time.UTC)}
	if !period.IsOpen() {
		t.Fatalf("IsOpen mismatch: got=false want=true")
	}
	if period.Duration() != 0 {
		t.Fatalf("duration mismatch: got=%v want=0", period.Duration())
	}
	if err := period.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}
