package revision

import (
	"context"
	"errors"
	"testing"
	"time"

	billing "caregiving-cloud/internal/billing/domain"
	settlement "caregiving-cloud/internal/settlement/domain"
)

func TestRecorderAppendsBillingHistory(t *testing.T) {
	store := NewMemoryStore()
	recorder, err := NewRecorder(store)
	if err != nil {
		t.Fatalf("NewRecorder error: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2023, 4, 1, 9, 0, 0, 0, time.UTC)

	if err := recorder.HandleBillingGenerated(ctx, billing.BillingGenerated{
		BillingID:         "billing-1",
		CaregivingRoundID: "round-1",
		ProgressingStatus: "WAITING_FOR_BILLING",
		TotalAmount:       300000,
		OccurredAt:        base,
	}); err != nil {
		t.Fatalf("HandleBillingGenerated error: %v", err)
	}
	if err := recorder.HandleBillingTransactionRecorded(ctx, billing.BillingTransactionRecorded{
		BillingID:          "billing-1",
		CaregivingRoundID:  "round-1",
		ProgressingStatus:  "UNDER_DEPOSIT",
		TotalAmount:        300000,
		TotalDepositAmount: 100000,
		OccurredAt:         base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("HandleBillingTransactionRecorded error: %v", err)
	}
	if err := recorder.HandleBillingModified(ctx, billing.BillingModified{
		BillingID:          "billing-1",
		CaregivingRoundID:  "round-1",
		ProgressingStatus:  "COMPLETED_DEPOSIT",
		TotalAmount:        300000,
		TotalDepositAmount: 300000,
		OccurredAt:         base.Add(2 * time.Hour),
	}); err != nil {
		t.Fatalf("HandleBillingModified error: %v", err)
	}

	history, err := store.ListBySubject(ctx, SubjectBilling, "billing-1")
	if err != nil {
		t.Fatalf("ListBySubject error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length mismatch: got=%d want=3", len(history))
	}
	for i, rev := range history {
		if rev.ID == "" {
			t.Fatalf("revision %d missing id", i)
		}
		if rev.SubjectType != SubjectBilling || rev.SubjectID != "billing-1" {
			t.Fatalf("revision %d subject mismatch: got=%s/%s", i, rev.SubjectType, rev.SubjectID)
		}
	}
	if history[0].ProgressingStatus != "WAITING_FOR_BILLING" {
		t.Fatalf("first status mismatch: got=%s", history[0].ProgressingStatus)
	}
	if history[2].TotalDepositAmount != 300000 {
		t.Fatalf("final deposit mismatch: got=%d want=300000", history[2].TotalDepositAmount)
	}
}

func TestRecorderAppendsSettlementHistory(t *testing.T) {
	store := NewMemoryStore()
	recorder, err := NewRecorder(store)
	if err != nil {
		t.Fatalf("NewRecorder error: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2023, 4, 1, 9, 0, 0, 0, time.UTC)

	if err := recorder.HandleSettlementGenerated(ctx, settlement.SettlementGenerated{
		SettlementID:      "settlement-1",
		CaregivingRoundID: "round-1",
		ProgressingStatus: "CONFIRMED",
		TotalAmount:       300000,
		OccurredAt:        base,
	}); err != nil {
		t.Fatalf("HandleSettlementGenerated error: %v", err)
	}
	if err := recorder.HandleSettlementTransactionRecorded(ctx, settlement.SettlementTransactionRecorded{
		SettlementID:          "settlement-1",
		CaregivingRoundID:     "round-1",
		ProgressingStatus:     "COMPLETED",
		TotalAmount:           300000,
		TotalWithdrawalAmount: 300000,
		OccurredAt:            base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("HandleSettlementTransactionRecorded error: %v", err)
	}
	if err := recorder.HandleSettlementModified(ctx, settlement.SettlementModified{
		SettlementID:          "settlement-1",
		CaregivingRoundID:     "round-1",
		ProgressingStatus:     "COMPLETED",
		TotalAmount:           300000,
		TotalWithdrawalAmount: 300000,
		OccurredAt:            base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("HandleSettlementModified error: %v", err)
	}

	history, err := store.ListBySubject(ctx, SubjectSettlement, "settlement-1")
	if err != nil {
		t.Fatalf("ListBySubject error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history length mismatch: got=%d want=3", len(history))
	}
	if history[1].TotalWithdrawalAmount != 300000 {
		t.Fatalf("withdrawal mismatch: got=%d want=300000", history[1].TotalWithdrawalAmount)
	}

	other, err := store.ListBySubject(ctx, SubjectBilling, "settlement-1")
	if err != nil {
		t.Fatalf("ListBySubject error: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("subject type filter mismatch: got=%d want=0", len(other))
	}
}

func TestRecorderFillsMissingRecordedAt(t *testing.T) {
	store := NewMemoryStore()
	recorder, err := NewRecorder(store)
	if err != nil {
		t.Fatalf("NewRecorder error: %v", err)
	}

	if err := recorder.HandleBillingGenerated(context.Background(), billing.BillingGenerated{
		BillingID:         "billing-1",
		CaregivingRoundID: "round-1",
	}); err != nil {
		t.Fatalf("HandleBillingGenerated error: %v", err)
	}

	history, err := store.ListBySubject(context.Background(), SubjectBilling, "billing-1")
	if err != nil {
		t.Fatalf("ListBySubject error: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length mismatch: got=%d want=1", len(history))
	}
	if history[0].RecordedAt.IsZero() {
		t.Fatalf("recorded-at must be filled when the event carries none")
	}
}

type failingStore struct{}

func (failingStore) Append(ctx context.Context, rev Revision) error { return errStoreDown }
func (failingStore) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]Revision, error) {
	return nil, nil
}

var errStoreDown = errors.New("store down")

func TestRecorderPropagatesStoreErrors(t *testing.T) {
	recorder, err := NewRecorder(failingStore{})
	if err != nil {
		t.Fatalf("NewRecorder error: %v", err)
	}
	if err := recorder.HandleBillingGenerated(context.Background(), billing.BillingGenerated{BillingID: "billing-1"}); !errors.Is(err, errStoreDown) {
		t.Fatalf("error mismatch: got=%v want=%v", err, errStoreDown)
	}
}

func TestNewRecorderRequiresStore(t *testing.T) {
	if _, err := NewRecorder(nil); err == nil {
		t.Fatalf("nil store must be rejected")
	}
}
