package settlement

import (
	"errors"
	"testing"
	"time"

	"caregiving-cloud/internal/caregiving/events"
	"caregiving-cloud/internal/charging"
	"caregiving-cloud/internal/ledger"
	masterdata "caregiving-cloud/internal/masterdata/domain"
	"caregiving-cloud/internal/patching"
)

var testNow = time.Date(2023, 3, 26, 12, 0, 0, 0, time.UTC)

func testCharge(total int64) charging.Result {
	return charging.Result{
		BasicAmountLines: []charging.BasicAmountLine{
			{AccidentYear: 2023, DailyCharge: 100000, CaregivingDays: int(total / 100000), TotalAmount: total},
		},
		TotalAmount: total,
	}
}

func testSettlement(t *testing.T) *Settlement {
	t.Helper()
	reception := &masterdata.Reception{
		ID:                     "reception-1",
		AccidentNumber:         "2023-001",
		CoverageID:             "coverage-1",
		SubscriptionDate:       time.Date(2022, 3, 24, 0, 0, 0, 0, time.UTC),
		AssignedOrganizationID: "org-1",
	}
	round := &masterdata.CaregivingRound{ID: "round-1", ReceptionID: "reception-1", RoundNumber: 1}
	agg, err := NewSettlement("settlement-1", reception, round, testCharge(300000), 100000, testNow)
	if err != nil {
		t.Fatalf("NewSettlement error: %v", err)
	}
	return agg
}

func TestNewSettlementStartsConfirmed(t *testing.T) {
	agg := testSettlement(t)

	if agg.Status() != StatusConfirmed {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusConfirmed)
	}
	if agg.TotalAmount() != 300000 {
		t.Fatalf("total mismatch: got=%d want=300000", agg.TotalAmount())
	}
	if agg.BasicAmount() != 300000 {
		t.Fatalf("basic amount mismatch: got=%d want=300000", agg.BasicAmount())
	}
	if agg.DailyCaregivingCharge() != 100000 {
		t.Fatalf("daily charge mismatch: got=%d want=100000", agg.DailyCaregivingCharge())
	}

	pending := agg.DrainEvents()
	if len(pending) != 1 {
		t.Fatalf("event count mismatch: got=%d want=1", len(pending))
	}
	if _, ok := pending[0].(SettlementGenerated); !ok {
		t.Fatalf("event type mismatch: got=%T", pending[0])
	}
}

func TestRecordTransactionRejectedWhileConfirmed(t *testing.T) {
	agg := testSettlement(t)
	agg.DrainEvents()

	_, err := agg.RecordTransaction(ledger.TransactionDeposit, 1000, testNow, "manager-1", testNow)
	if !errors.Is(err, ErrTransactionNotAllowed) {
		t.Fatalf("error mismatch: got=%v want=%v", err, ErrTransactionNotAllowed)
	}
	if len(agg.Transactions()) != 0 {
		t.Fatalf("rejected entry must not be stored")
	}
	if len(agg.DrainEvents()) != 0 {
		t.Fatalf("rejected entry must emit nothing")
	}
}

func TestApplyChargeConfirmedUpdatesSilently(t *testing.T) {
	agg := testSettlement(t)
	agg.DrainEvents()

	agg.ApplyCharge(testCharge(400000), 100000, events.ChargeConfirmInProgress, testNow)

	if agg.Status() != StatusConfirmed {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusConfirmed)
	}
	if agg.TotalAmount() != 400000 {
		t.Fatalf("total mismatch: got=%d want=400000", agg.TotalAmount())
	}
	if len(agg.DrainEvents()) != 0 {
		t.Fatalf("silent absorb must emit nothing")
	}
}

func TestApplyChargeConfirmMovesToWaiting(t *testing.T) {
	agg := testSettlement(t)
	agg.DrainEvents()

	agg.ApplyCharge(testCharge(400000), 100000, events.ChargeConfirmConfirmed, testNow)

	if agg.Status() != StatusWaiting {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusWaiting)
	}
	pending := agg.DrainEvents()
	if len(pending) != 1 {
		t.Fatalf("event count mismatch: got=%d want=1", len(pending))
	}
	modified, ok := pending[0].(SettlementModified)
	if !ok {
		t.Fatalf("event type mismatch: got=%T", pending[0])
	}
	if modified.ProgressingStatus != string(StatusWaiting) || modified.TotalAmount != 400000 {
		t.Fatalf("modified event mismatch: got=%+v", modified)
	}
}

func TestApplyChargeCompletedIgnoresRecalculation(t *testing.T) {
	agg := testSettlement(t)
	agg.ApplyCharge(testCharge(300000), 100000, events.ChargeConfirmConfirmed, testNow)
	if err := agg.Complete("manager-1", testNow); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	agg.DrainEvents()

	agg.ApplyCharge(testCharge(999999), 100000, events.ChargeConfirmConfirmed, testNow)

	if agg.TotalAmount() != 300000 {
		t.Fatalf("completed settlement must keep its total: got=%d", agg.TotalAmount())
	}
	if len(agg.DrainEvents()) != 0 {
		t.Fatalf("completed settlement must emit nothing")
	}
}

func TestCompleteRecordsClosingWithdrawal(t *testing.T) {
	agg := testSettlement(t)
	agg.ApplyCharge(testCharge(300000), 100000, events.ChargeConfirmConfirmed, testNow)
	agg.DrainEvents()

	completionAt := testNow.Add(time.Hour)
	if err := agg.Complete("manager-7", completionAt); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if agg.Status() != StatusCompleted {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusCompleted)
	}
	if !agg.CompletionAt().Equal(completionAt) {
		t.Fatalf("completion datetime mismatch: got=%v want=%v", agg.CompletionAt(), completionAt)
	}
	if agg.SettlementManagerID() != "manager-7" {
		t.Fatalf("manager mismatch: got=%s want=manager-7", agg.SettlementManagerID())
	}

	transactions := agg.Transactions()
	if len(transactions) != 1 {
		t.Fatalf("transaction count mismatch: got=%d want=1", len(transactions))
	}
	closing := transactions[0]
	if closing.Type != ledger.TransactionWithdrawal || closing.Amount != 300000 || closing.SubjectID != "manager-7" {
		t.Fatalf("closing withdrawal mismatch: got=%+v", closing)
	}
	if agg.TotalWithdrawalAmount() != 300000 {
		t.Fatalf("withdrawal total mismatch: got=%d want=300000", agg.TotalWithdrawalAmount())
	}

	pending := agg.DrainEvents()
	if len(pending) != 2 {
		t.Fatalf("event count mismatch: got=%d want=2", len(pending))
	}
	if _, ok := pending[0].(SettlementTransactionRecorded); !ok {
		t.Fatalf("first event type mismatch: got=%T", pending[0])
	}
	if _, ok := pending[1].(SettlementModified); !ok {
		t.Fatalf("second event type mismatch: got=%T", pending[1])
	}
}

func TestCompleteRequiresWaiting(t *testing.T) {
	agg := testSettlement(t)

	err := agg.Complete("manager-1", testNow)
	var transition *InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("error type mismatch: got=%v", err)
	}
	if transition.Current != StatusConfirmed || transition.Attempted != StatusCompleted {
		t.Fatalf("transition error mismatch: got=%+v", transition)
	}
}

func TestEditOnlyCompletesFromWaiting(t *testing.T) {
	agg := testSettlement(t)
	agg.ApplyCharge(testCharge(300000), 100000, events.ChargeConfirmConfirmed, testNow)
	agg.DrainEvents()

	// Reverting to CONFIRMED is never legal.
	err := agg.Edit(EditCommand{ProgressingStatus: patching.Set(StatusConfirmed)}, "manager-1", testNow)
	var transition *InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("error type mismatch: got=%v", err)
	}
	if transition.Attempted != StatusConfirmed {
		t.Fatalf("attempted status mismatch: got=%s", transition.Attempted)
	}

	// An unset status is a no-op.
	if err := agg.Edit(EditCommand{}, "manager-1", testNow); err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	if agg.Status() != StatusWaiting {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusWaiting)
	}

	// Completing honors an explicit manager over the acting subject.
	cmd := EditCommand{
		ProgressingStatus:   patching.Set(StatusCompleted),
		SettlementManagerID: patching.Set("manager-9"),
	}
	if err := agg.Edit(cmd, "manager-1", testNow); err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	if agg.Status() != StatusCompleted {
		t.Fatalf("status mismatch: got=%s want=%s", agg.Status(), StatusCompleted)
	}
	if agg.SettlementManagerID() != "manager-9" {
		t.Fatalf("manager mismatch: got=%s want=manager-9", agg.SettlementManagerID())
	}
}

func TestRecordTransactionAfterWaitingKeepsStatus(t *testing.T) {
	agg := testSettlement(t)
	agg.ApplyCharge(testCharge(300000), 100000, events.ChargeConfirmConfirmed, testNow)
	agg.DrainEvents()

	if _, err := agg.RecordTransaction(ledger.TransactionDeposit, 150000, testNow, "manager-1", testNow); err != nil {
		t.Fatalf("RecordTransaction error: %v", err)
	}
	if agg.Status() != StatusWaiting {
		t.Fatalf("ledger entries must not change the status: got=%s", agg.Status())
	}
	if agg.TotalDepositAmount() != 150000 {
		t.Fatalf("deposit total mismatch: got=%d want=150000", agg.TotalDepositAmount())
	}

	pending := agg.DrainEvents()
	if len(pending) != 1 {
		t.Fatalf("event count mismatch: got=%d want=1", len(pending))
	}
	recorded, ok := pending[0].(SettlementTransactionRecorded)
	if !ok {
		t.Fatalf("event type mismatch: got=%T", pending[0])
	}
	if recorded.Amount != 150000 || recorded.Order != 0 {
		t.Fatalf("recorded event mismatch: got=%+v", recorded)
	}
}

func TestHandleReceptionModifiedRefreshesAttributes(t *testing.T) {
	agg := testSettlement(t)
	agg.DrainEvents()

	agg.HandleReceptionModified(events.ReceptionModified{
		ReceptionID:    "reception-1",
		AccidentNumber: patching.Set("2023-777"),
	}, testNow)
	if agg.AccidentNumber() != "2023-777" {
		t.Fatalf("accident number mismatch: got=%s", agg.AccidentNumber())
	}
	if len(agg.DrainEvents()) != 1 {
		t.Fatalf("changed attributes must emit one modified event")
	}

	agg.HandleReceptionModified(events.ReceptionModified{
		ReceptionID:    "reception-9",
		AccidentNumber: patching.Set("ignored"),
	}, testNow)
	if agg.AccidentNumber() != "2023-777" {
		t.Fatalf("other reception must not apply: got=%s", agg.AccidentNumber())
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	agg := testSettlement(t)
	agg.ApplyCharge(testCharge(300000), 100000, events.ChargeConfirmConfirmed, testNow)
	if _, err := agg.RecordTransaction(ledger.TransactionDeposit, 120000, testNow, "manager-1", testNow); err != nil {
		t.Fatalf("RecordTransaction error: %v", err)
	}

	restored, err := Restore(agg.Snapshot())
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	if restored.ID() != agg.ID() || restored.Status() != agg.Status() {
		t.Fatalf("restored identity mismatch: got=%s/%s", restored.ID(), restored.Status())
	}
	if restored.TotalAmount() != agg.TotalAmount() {
		t.Fatalf("restored total mismatch: got=%d want=%d", restored.TotalAmount(), agg.TotalAmount())
	}
	if restored.TotalDepositAmount() != 120000 {
		t.Fatalf("restored deposit mismatch: got=%d want=120000", restored.TotalDepositAmount())
	}
	if len(restored.Transactions()) != 1 {
		t.Fatalf("restored transaction count mismatch: got=%d want=1", len(restored.Transactions()))
	}
}
