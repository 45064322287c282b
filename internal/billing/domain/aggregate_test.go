package billing

import (
	"errors"
	"testing"
	"time"

	"caregiving-cloud/internal/caregiving/events"
	"caregiving-cloud/internal/charging"
	coverage "caregiving-cloud/internal/coverage/domain"
	"caregiving-cloud/internal/ledger"
	masterdata "caregiving-cloud/internal/masterdata/domain"
	"caregiving-cloud/internal/patching"
)

var testNow = time.Date(2023, 3, 26, 12, 0, 0, 0, time.UTC)

func testReception() *masterdata.Reception {
	return &masterdata.Reception{
		ID:                     "reception-1",
		AccidentNumber:         "2023-001",
		CoverageID:             "coverage-1",
		SubscriptionDate:       time.Date(2022, 3, 24, 0, 0, 0, 0, time.UTC),
		AssignedOrganizationID: "org-1",
	}
}

func testRound() *masterdata.CaregivingRound {
	return &masterdata.CaregivingRound{
		ID:          "round-1",
		ReceptionID: "reception-1",
		RoundNumber: 1,
		Period: charging.Period{
			Start: time.Date(2023, 3, 23, 9, 30, 0, 0, time.UTC),
			End:   time.Date(2023, 3, 25, 9, 30, 0, 0, time.UTC),
		},
	}
}

func testTable(t *testing.T) coverage.RateTable {
	t.Helper()
	table, err := coverage.NewRateTable(&coverage.Coverage{
		ID:          "coverage-1",
		RenewalType: coverage.RenewalTenYear,
		AnnualCharges: []coverage.AnnualCharge{
			{AccidentYear: 2022, DailyCharge: 100000},
			{AccidentYear: 2023, DailyCharge: 200000},
		},
	}, time.Date(2022, 3, 24, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewRateTable error: %v", err)
	}
	return table
}

func testBilling(t *testing.T) *Billing {
	t.Helper()
	round := testRound()
	charge, err := charging.Calculate(round.Period, testTable(t), false)
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}
	agg, err := NewBilling("billing-1", testReception(), round, false, charge, testNow)
	if err != nil {
		t.Fatalf("NewBilling error: %v", err)
	}
	return agg
}

func TestNewBillingStartsWaitingForBilling(t *testing.T) {
	agg := testBilling(t)

	if agg.Status() != StatusWaitingForBilling {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusWaitingForBilling)
	}
	if agg.Charge().TotalAmount != 300000 {
		t.Fatalf("total mismatch: got=%d want=300000", agg.Charge().TotalAmount)
	}
	if !agg.IsNew() {
		t.Fatalf("IsNew mismatch: got=false want=true")
	}

	pending := agg.DrainEvents()
	if len(pending) != 1 {
		t.Fatalf("event count mismatch: got=%d want=1", len(pending))
	}
	generated, ok := pending[0].(BillingGenerated)
	if !ok {
		t.Fatalf("event type mismatch: got=%T", pending[0])
	}
	if generated.BillingID != "billing-1" || generated.TotalAmount != 300000 {
		t.Fatalf("generated event mismatch: got=%+v", generated)
	}
	if len(agg.DrainEvents()) != 0 {
		t.Fatalf("DrainEvents must clear pending events")
	}
}

func TestWaitDepositRefreshesBillingDate(t *testing.T) {
	agg := testBilling(t)
	agg.DrainEvents()

	agg.WaitDeposit(testNow)
	if agg.Status() != StatusWaitingDeposit {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusWaitingDeposit)
	}
	if !agg.BillingDate().Equal(testNow) {
		t.Fatalf("billing date mismatch: got=%v want=%v", agg.BillingDate(), testNow)
	}

	later := testNow.Add(48 * time.Hour)
	agg.WaitDeposit(later)
	if agg.Status() != StatusWaitingDeposit {
		t.Fatalf("status mismatch after re-request: got=%s", agg.Status())
	}
	if !agg.BillingDate().Equal(later) {
		t.Fatalf("billing date must refresh: got=%v want=%v", agg.BillingDate(), later)
	}
}

func TestRecordTransactionDepositStatusProgression(t *testing.T) {
	agg := testBilling(t)
	agg.WaitDeposit(testNow)
	agg.DrainEvents()

	if _, err := agg.RecordTransaction(ledger.TransactionDeposit, 100000, testNow, "manager-1", testNow); err != nil {
		t.Fatalf("RecordTransaction error: %v", err)
	}
	if agg.Status() != StatusUnderDeposit {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusUnderDeposit)
	}

	if _, err := agg.RecordTransaction(ledger.TransactionDeposit, 200000, testNow, "manager-1", testNow); err != nil {
		t.Fatalf("RecordTransaction error: %v", err)
	}
	if agg.Status() != StatusCompletedDeposit {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusCompletedDeposit)
	}

	if _, err := agg.RecordTransaction(ledger.TransactionDeposit, 1, testNow, "manager-1", testNow); err != nil {
		t.Fatalf("RecordTransaction error: %v", err)
	}
	if agg.Status() != StatusOverDeposit {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusOverDeposit)
	}
	if agg.TotalDepositAmount() != 300001 {
		t.Fatalf("deposit total mismatch: got=%d want=300001", agg.TotalDepositAmount())
	}
}

func TestRecordTransactionWithdrawalNeverOffsetsDeposits(t *testing.T) {
	agg := testBilling(t)
	agg.WaitDeposit(testNow)

	if _, err := agg.RecordTransaction(ledger.TransactionDeposit, 300000, testNow, "manager-1", testNow); err != nil {
		t.Fatalf("RecordTransaction error: %v", err)
	}
	if _, err := agg.RecordTransaction(ledger.TransactionWithdrawal, 100000, testNow, "manager-1", testNow); err != nil {
		t.Fatalf("RecordTransaction error: %v", err)
	}
	if agg.Status() != StatusCompletedDeposit {
		t.Fatalf("withdrawals must not change the deposit signal: got=%s", agg.Status())
	}
	if agg.TotalWithdrawalAmount() != 100000 {
		t.Fatalf("withdrawal total mismatch: got=%d want=100000", agg.TotalWithdrawalAmount())
	}
}

func TestRecordTransactionRejectedBeforeMutation(t *testing.T) {
	agg := testBilling(t)
	agg.WaitDeposit(testNow)
	agg.DrainEvents()

	if _, err := agg.RecordTransaction(ledger.TransactionDeposit, -100, testNow, "manager-1", testNow); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("error mismatch: got=%v want=%v", err, ledger.ErrInvalidAmount)
	}
	if len(agg.Transactions()) != 0 {
		t.Fatalf("rejected entry must not be stored: got=%d entries", len(agg.Transactions()))
	}
	if len(agg.DrainEvents()) != 0 {
		t.Fatalf("rejected entry must emit nothing")
	}
}

func TestWillBeAffectedByIgnoresOtherRoundsAndEqualPeriods(t *testing.T) {
	agg := testBilling(t)

	other := events.CaregivingRoundModified{
		CaregivingRoundID: "round-2",
		End:               patching.Set(testNow),
	}
	if agg.WillBeAffectedBy(other) {
		t.Fatalf("other round must not affect this billing")
	}

	same := events.CaregivingRoundModified{
		CaregivingRoundID: "round-1",
		Start:             patching.Set(agg.Period().Start),
		End:               patching.Set(agg.Period().End),
	}
	if agg.WillBeAffectedBy(same) {
		t.Fatalf("identical period must not affect this billing")
	}

	changed := events.CaregivingRoundModified{
		CaregivingRoundID: "round-1",
		End:               patching.Set(agg.Period().End.Add(4 * time.Hour)),
	}
	if !agg.WillBeAffectedBy(changed) {
		t.Fatalf("changed end must affect this billing")
	}
}

func TestHandleCaregivingRoundModifiedRecomputes(t *testing.T) {
	agg := testBilling(t)
	agg.WaitDeposit(testNow)
	if _, err := agg.RecordTransaction(ledger.TransactionDeposit, 300000, testNow, "manager-1", testNow); err != nil {
		t.Fatalf("RecordTransaction error: %v", err)
	}
	agg.DrainEvents()

	ev := events.CaregivingRoundModified{
		CaregivingRoundID: "round-1",
		End:               patching.Set(time.Date(2023, 3, 25, 13, 30, 15, 0, time.UTC)),
	}
	if err := agg.HandleCaregivingRoundModified(ev, testTable(t), testNow); err != nil {
		t.Fatalf("HandleCaregivingRoundModified error: %v", err)
	}

	if agg.Charge().TotalAmount != 500000 {
		t.Fatalf("recomputed total mismatch: got=%d want=500000", agg.Charge().TotalAmount)
	}
	// 300000 deposited against a 500000 total is now an under-deposit.
	if agg.Status() != StatusUnderDeposit {
		t.Fatalf("status mismatch after recompute: got=%s want=%s", agg.Status(), StatusUnderDeposit)
	}
	pending := agg.DrainEvents()
	if len(pending) != 1 {
		t.Fatalf("event count mismatch: got=%d want=1", len(pending))
	}
	if _, ok := pending[0].(BillingModified); !ok {
		t.Fatalf("event type mismatch: got=%T", pending[0])
	}
}

func TestHandleCaregivingChargeModifiedAppliesCancelFlag(t *testing.T) {
	agg := testBilling(t)
	agg.DrainEvents()

	ev := events.CaregivingChargeModified{
		CaregivingRoundID:  "round-1",
		CancelAfterArrived: patching.Set(true),
		ConfirmStatus:      events.ChargeConfirmInProgress,
	}
	if err := agg.HandleCaregivingChargeModified(ev, testTable(t), testNow); err != nil {
		t.Fatalf("HandleCaregivingChargeModified error: %v", err)
	}

	if !agg.CancelAfterArrived() {
		t.Fatalf("cancel flag mismatch: got=false want=true")
	}
	if agg.Charge().TotalAmount != 100000 {
		t.Fatalf("canceled total mismatch: got=%d want=100000", agg.Charge().TotalAmount)
	}
}

func TestHandleReceptionModifiedRefreshesAttributes(t *testing.T) {
	agg := testBilling(t)
	agg.DrainEvents()

	agg.HandleReceptionModified(events.ReceptionModified{
		ReceptionID:            "reception-1",
		AccidentNumber:         patching.Set("2023-002"),
		AssignedOrganizationID: patching.Set("org-2"),
	}, testNow)

	if agg.AccidentNumber() != "2023-002" {
		t.Fatalf("accident number mismatch: got=%s", agg.AccidentNumber())
	}
	if agg.AssignedOrganizationID() != "org-2" {
		t.Fatalf("organization mismatch: got=%s", agg.AssignedOrganizationID())
	}
	if len(agg.DrainEvents()) != 1 {
		t.Fatalf("changed attributes must emit one modified event")
	}

	// Same values again: nothing changes, nothing is emitted.
	agg.HandleReceptionModified(events.ReceptionModified{
		ReceptionID:    "reception-1",
		AccidentNumber: patching.Set("2023-002"),
	}, testNow)
	if len(agg.DrainEvents()) != 0 {
		t.Fatalf("unchanged attributes must emit nothing")
	}
}

func TestCloneDetachesLedgerAndEvents(t *testing.T) {
	agg := testBilling(t)
	agg.WaitDeposit(testNow)

	clone := agg.Clone()
	if clone.IsNew() {
		t.Fatalf("clone must be marked persisted")
	}
	if len(clone.DrainEvents()) != 0 {
		t.Fatalf("clone must carry no pending events")
	}
	if _, err := clone.RecordTransaction(ledger.TransactionDeposit, 1000, testNow, "s", testNow); err != nil {
		t.Fatalf("RecordTransaction error: %v", err)
	}
	if agg.TotalDepositAmount() != 0 {
		t.Fatalf("original mutated through clone: deposit=%d", agg.TotalDepositAmount())
	}
}

func TestNewBillingValidation(t *testing.T) {
	charge := charging.Result{TotalAmount: 100}
	if _, err := NewBilling("", testReception(), testRound(), false, charge, testNow); !errors.Is(err, ErrEmptyBillingID) {
		t.Fatalf("empty id error mismatch: got=%v", err)
	}
	if _, err := NewBilling("billing-1", nil, testRound(), false, charge, testNow); !errors.Is(err, ErrNilReception) {
		t.Fatalf("nil reception error mismatch: got=%v", err)
	}
	if _, err := NewBilling("billing-1", testReception(), nil, false, charge, testNow); !errors.Is(err, ErrNilCaregivingRound) {
		t.Fatalf("nil round error mismatch: got=%v", err)
	}
}
