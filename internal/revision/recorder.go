package revision

import (
	"context"
	"errors"
	"log"
	"time"

	billing "caregiving-cloud/internal/billing/domain"
	"caregiving-cloud/internal/eventing"
	"caregiving-cloud/internal/eventing/eventbus"
	settlement "caregiving-cloud/internal/settlement/domain"
)

// Recorder converts billing and settlement lifecycle events into revisions.
type Recorder struct {
	store Store
}

// NewRecorder constructs a recorder.
func NewRecorder(store Store) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("revision recorder: nil store")
	}
	return &Recorder{store: store}, nil
}

// HandleBillingGenerated records the first revision of a billing.
func (r *Recorder) HandleBillingGenerated(ctx context.Context, ev billing.BillingGenerated) error {
	return r.append(ctx, Revision{
		SubjectType:       SubjectBilling,
		SubjectID:         ev.BillingID,
		CaregivingRoundID: ev.CaregivingRoundID,
		ProgressingStatus: ev.ProgressingStatus,
		TotalAmount:       ev.TotalAmount,
		RecordedAt:        ev.OccurredAt,
	})
}

// HandleBillingModified records a revision after a billing change.
func (r *Recorder) HandleBillingModified(ctx context.Context, ev billing.BillingModified) error {
	return r.append(ctx, Revision{
		SubjectType:           SubjectBilling,
		SubjectID:             ev.BillingID,
		CaregivingRoundID:     ev.CaregivingRoundID,
		ProgressingStatus:     ev.ProgressingStatus,
		TotalAmount:           ev.TotalAmount,
		TotalDepositAmount:    ev.TotalDepositAmount,
		TotalWithdrawalAmount: ev.TotalWithdrawalAmount,
		RecordedAt:            ev.OccurredAt,
	})
}

// HandleBillingTransactionRecorded records a revision per ledger append.
func (r *Recorder) HandleBillingTransactionRecorded(ctx context.Context, ev billing.BillingTransactionRecorded) error {
	return r.append(ctx, Revision{
		SubjectType:           SubjectBilling,
		SubjectID:             ev.BillingID,
		CaregivingRoundID:     ev.CaregivingRoundID,
		ProgressingStatus:     ev.ProgressingStatus,
		TotalAmount:           ev.TotalAmount,
		TotalDepositAmount:    ev.TotalDepositAmount,
		TotalWithdrawalAmount: ev.TotalWithdrawalAmount,
		RecordedAt:            ev.OccurredAt,
	})
}

// HandleSettlementGenerated records the first revision of a settlement.
func (r *Recorder) HandleSettlementGenerated(ctx context.Context, ev settlement.SettlementGenerated) error {
	return r.append(ctx, Revision{
		SubjectType:       SubjectSettlement,
		SubjectID:         ev.SettlementID,
		CaregivingRoundID: ev.CaregivingRoundID,
		ProgressingStatus: ev.ProgressingStatus,
		TotalAmount:       ev.TotalAmount,
		RecordedAt:        ev.OccurredAt,
	})
}

// HandleSettlementModified records a revision after a settlement change.
func (r *Recorder) HandleSettlementModified(ctx context.Context, ev settlement.SettlementModified) error {
	return r.append(ctx, Revision{
		SubjectType:           SubjectSettlement,
		SubjectID:             ev.SettlementID,
		CaregivingRoundID:     ev.CaregivingRoundID,
		ProgressingStatus:     ev.ProgressingStatus,
		TotalAmount:           ev.TotalAmount,
		TotalDepositAmount:    ev.TotalDepositAmount,
		TotalWithdrawalAmount: ev.TotalWithdrawalAmount,
		RecordedAt:            ev.OccurredAt,
	})
}

// HandleSettlementTransactionRecorded records a revision per ledger append.
func (r *Recorder) HandleSettlementTransactionRecorded(ctx context.Context, ev settlement.SettlementTransactionRecorded) error {
	return r.append(ctx, Revision{
		SubjectType:           SubjectSettlement,
		SubjectID:             ev.SettlementID,
		CaregivingRoundID:     ev.CaregivingRoundID,
		ProgressingStatus:     ev.ProgressingStatus,
		TotalAmount:           ev.TotalAmount,
		TotalDepositAmount:    ev.TotalDepositAmount,
		TotalWithdrawalAmount: ev.TotalWithdrawalAmount,
		RecordedAt:            ev.OccurredAt,
	})
}

func (r *Recorder) append(ctx context.Context, rev Revision) error {
	if rev.ID == "" {
		rev.ID = NewID()
	}
	if rev.RecordedAt.IsZero() {
		rev.RecordedAt = time.Now().UTC()
	}
	if err := r.store.Append(ctx, rev); err != nil {
		log.Printf("revision_append_failed subject_type=%s subject_id=%s err=%v", rev.SubjectType, rev.SubjectID, err)
		return err
	}
	return nil
}

// WireRevisionEventBus registers the recorder on the event bus.
func WireRevisionEventBus(bus eventbus.EventBus, recorder *Recorder, processed eventing.ProcessedStore) {
	if bus == nil || recorder == nil {
		return
	}

	eventing.Subscribe(bus, eventbus.EventTypeOf[billing.BillingGenerated](), "revision.billing_generated", func(ctx context.Context, event any) error {
		evt, ok := event.(billing.BillingGenerated)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return recorder.HandleBillingGenerated(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[billing.BillingModified](), "revision.billing_modified", func(ctx context.Context, event any) error {
		evt, ok := event.(billing.BillingModified)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return recorder.HandleBillingModified(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[billing.BillingTransactionRecorded](), "revision.billing_transaction", func(ctx context.Context, event any) error {
		evt, ok := event.(billing.BillingTransactionRecorded)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return recorder.HandleBillingTransactionRecorded(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[settlement.SettlementGenerated](), "revision.settlement_generated", func(ctx context.Context, event any) error {
		evt, ok := event.(settlement.SettlementGenerated)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return recorder.HandleSettlementGenerated(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[settlement.SettlementModified](), "revision.settlement_modified", func(ctx context.Context, event any) error {
		evt, ok := event.(settlement.SettlementModified)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return recorder.HandleSettlementModified(ctx, evt)
	}, processed)

	eventing.Subscribe(bus, eventbus.EventTypeOf[settlement.SettlementTransactionRecorded](), "revision.settlement_transaction", func(ctx context.Context, event any) error {
		evt, ok := event.(settlement.SettlementTransactionRecorded)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		return recorder.HandleSettlementTransactionRecorded(ctx, evt)
	}, processed)
}
