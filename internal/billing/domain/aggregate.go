package billing

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"caregiving-cloud/internal/caregiving/events"
	"caregiving-cloud/internal/charging"
	coverage "caregiving-cloud/internal/coverage/domain"
	"caregiving-cloud/internal/ledger"
	masterdata "caregiving-cloud/internal/masterdata/domain"
	"caregiving-cloud/internal/patching"
)

// ProgressingStatus is the billing lifecycle state.
type ProgressingStatus string

const (
	StatusWaitingForBilling ProgressingStatus = "WAITING_FOR_BILLING"
	StatusWaitingDeposit    ProgressingStatus = "WAITING_DEPOSIT"
	StatusUnderDeposit      ProgressingStatus = "UNDER_DEPOSIT"
	StatusCompletedDeposit  ProgressingStatus = "COMPLETED_DEPOSIT"
	StatusOverDeposit       ProgressingStatus = "OVER_DEPOSIT"
)

// Billing is the billing aggregate of one caregiving round. Deposit statuses
// are recomputed idempotently from ledger totals; the billing side raises no
// invalid-transition errors.
type Billing struct {
	id string

	receptionID            string
	accidentNumber         string
	subscriptionDate       time.Time
	assignedOrganizationID string
	coverageID             string

	caregivingRoundID string
	roundNumber       int
	period            charging.Period

	cancelAfterArrived bool
	status             ProgressingStatus
	charge             charging.Result
	billingDate        time.Time

	ledger              *ledger.Ledger
	lastTransactionDate time.Time

	isNew  bool
	events []any
}

// NewBillingID generates a random billing identifier.
func NewBillingID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "billing-" + hex.EncodeToString(buf)
}

// NewBilling creates a billing for a round whose charge was just calculated.
func NewBilling(
	id string,
	reception *masterdata.Reception,
	round *masterdata.CaregivingRound,
	cancelAfterArrived bool,
	charge charging.Result,
	now time.Time,
) (*Billing, error) {
	if id == "" {
		return nil, ErrEmptyBillingID
	}
	if reception == nil {
		return nil, ErrNilReception
	}
	if round == nil {
		return nil, ErrNilCaregivingRound
	}

	b := &Billing{
		id:                     id,
		receptionID:            reception.ID,
		accidentNumber:         reception.AccidentNumber,
		subscriptionDate:       reception.SubscriptionDate,
		assignedOrganizationID: reception.AssignedOrganizationID,
		coverageID:             reception.CoverageID,
		caregivingRoundID:      round.ID,
		roundNumber:            round.RoundNumber,
		period:                 round.Period,
		cancelAfterArrived:     cancelAfterArrived,
		status:                 StatusWaitingForBilling,
		charge:                 charge,
		ledger:                 &ledger.Ledger{},
		isNew:                  true,
	}
	b.record(BillingGenerated{
		BillingID:         b.id,
		ReceptionID:       b.receptionID,
		CaregivingRoundID: b.caregivingRoundID,
		ProgressingStatus: string(b.status),
		TotalAmount:       b.charge.TotalAmount,
		OccurredAt:        now,
	})
	return b, nil
}

// WaitDeposit marks the billing as billed and starts waiting for deposits.
// Triggered when a usage certificate is requested; re-requests refresh the
// billing date.
func (b *Billing) WaitDeposit(now time.Time) {
	if b.status == StatusWaitingForBilling {
		b.status = StatusWaitingDeposit
	}
	b.billingDate = now
	b.recordModified(now)
}

// RecordTransaction appends a ledger entry and recomputes the deposit status.
// The entry is rejected before any mutation when invalid.
func (b *Billing) RecordTransaction(
	txType ledger.TransactionType,
	amount int64,
	transactionDate time.Time,
	subjectID string,
	now time.Time,
) (ledger.Record, error) {
	record, err := b.ledger.Append(txType, amount, transactionDate, now, subjectID)
	if err != nil {
		return ledger.Record{}, err
	}
	b.lastTransactionDate = now

	statusBefore := b.status
	b.refreshDepositStatus()

	b.record(BillingTransactionRecorded{
		BillingID:             b.id,
		CaregivingRoundID:     b.caregivingRoundID,
		TransactionType:       record.Type,
		Amount:                record.Amount,
		Order:                 record.Order,
		ProgressingStatus:     string(b.status),
		TotalAmount:           b.charge.TotalAmount,
		TotalDepositAmount:    b.ledger.TotalDeposit(),
		TotalWithdrawalAmount: b.ledger.TotalWithdrawal(),
		OccurredAt:            now,
	})
	if b.status != statusBefore {
		b.recordModified(now)
	}
	return record, nil
}

// refreshDepositStatus keys the progress signal on deposit sufficiency alone;
// withdrawals never offset the comparison.
func (b *Billing) refreshDepositStatus() {
	if b.status == StatusWaitingForBilling {
		return
	}
	deposit := b.ledger.TotalDeposit()
	switch {
	case deposit == 0:
	case deposit < b.charge.TotalAmount:
		b.status = StatusUnderDeposit
	case deposit == b.charge.TotalAmount:
		b.status = StatusCompletedDeposit
	default:
		b.status = StatusOverDeposit
	}
}

// WillBeAffectedBy reports whether a round modification actually changes the
// caregiving interval this billing was computed from.
func (b *Billing) WillBeAffectedBy(ev events.CaregivingRoundModified) bool {
	if ev.CaregivingRoundID != b.caregivingRoundID {
		return false
	}
	if start, ok := ev.Start.Get(); ok && !start.Equal(b.period.Start) {
		return true
	}
	if end, ok := ev.End.Get(); ok && !end.Equal(b.period.End) {
		return true
	}
	return false
}

// HandleCaregivingRoundModified recomputes the charge for a changed interval.
// Unaffected events leave the aggregate untouched and emit nothing.
func (b *Billing) HandleCaregivingRoundModified(ev events.CaregivingRoundModified, table coverage.RateTable, now time.Time) error {
	if !b.WillBeAffectedBy(ev) {
		return nil
	}

	period := b.period
	if start, ok := ev.Start.Get(); ok {
		period.Start = start
	}
	if end, ok := ev.End.Get(); ok {
		period.End = end
	}
	charge, err := charging.Calculate(period, table, b.cancelAfterArrived)
	if err != nil {
		return err
	}

	b.period = period
	b.charge = charge
	b.refreshDepositStatus()
	b.recordModified(now)
	return nil
}

// HandleCaregivingChargeModified propagates an externally recalculated charge
// through the same recompute path.
func (b *Billing) HandleCaregivingChargeModified(ev events.CaregivingChargeModified, table coverage.RateTable, now time.Time) error {
	cancel := b.cancelAfterArrived
	if value, ok := ev.CancelAfterArrived.Get(); ok {
		cancel = value
	}
	charge, err := charging.Calculate(b.period, table, cancel)
	if err != nil {
		return err
	}

	b.cancelAfterArrived = cancel
	b.charge = charge
	b.refreshDepositStatus()
	b.recordModified(now)
	return nil
}

// HandleReceptionModified refreshes denormalized reception attributes. No
// charge recompute happens here.
func (b *Billing) HandleReceptionModified(ev events.ReceptionModified, now time.Time) {
	if ev.ReceptionID != b.receptionID {
		return
	}
	changed := patching.Apply(ev.AccidentNumber, &b.accidentNumber)
	changed = patching.Apply(ev.SubscriptionDate, &b.subscriptionDate) || changed
	changed = patching.Apply(ev.AssignedOrganizationID, &b.assignedOrganizationID) || changed
	if changed {
		b.recordModified(now)
	}
}

func (b *Billing) recordModified(now time.Time) {
	b.record(BillingModified{
		BillingID:             b.id,
		CaregivingRoundID:     b.caregivingRoundID,
		ProgressingStatus:     string(b.status),
		TotalAmount:           b.charge.TotalAmount,
		TotalDepositAmount:    b.ledger.TotalDeposit(),
		TotalWithdrawalAmount: b.ledger.TotalWithdrawal(),
		OccurredAt:            now,
	})
}

func (b *Billing) record(event any) {
	b.events = append(b.events, event)
}

// DrainEvents returns pending domain events in emission order and clears them.
// Callers publish after the surrounding transaction commits.
func (b *Billing) DrainEvents() []any {
	drained := b.events
	b.events = nil
	return drained
}

// ID returns the billing id.
func (b *Billing) ID() string { return b.id }

// ReceptionID returns the owning reception id.
func (b *Billing) ReceptionID() string { return b.receptionID }

// AccidentNumber returns the denormalized accident number.
func (b *Billing) AccidentNumber() string { return b.accidentNumber }

// SubscriptionDate returns the denormalized subscription date.
func (b *Billing) SubscriptionDate() time.Time { return b.subscriptionDate }

// AssignedOrganizationID returns the assigned organization, empty when none.
func (b *Billing) AssignedOrganizationID() string { return b.assignedOrganizationID }

// CoverageID returns the coverage id the charge is computed against.
func (b *Billing) CoverageID() string { return b.coverageID }

// CaregivingRoundID returns the round id.
func (b *Billing) CaregivingRoundID() string { return b.caregivingRoundID }

// RoundNumber returns the round number.
func (b *Billing) RoundNumber() int { return b.roundNumber }

// Period returns the caregiving interval the charge was computed from.
func (b *Billing) Period() charging.Period { return b.period }

// CancelAfterArrived reports the cancellation flag.
func (b *Billing) CancelAfterArrived() bool { return b.cancelAfterArrived }

// Status returns the progressing status.
func (b *Billing) Status() ProgressingStatus { return b.status }

// Charge returns the current charge result.
func (b *Billing) Charge() charging.Result { return b.charge }

// BillingDate returns the billing date, zero when not billed yet.
func (b *Billing) BillingDate() time.Time { return b.billingDate }

// Transactions returns the ledger entries in append order.
func (b *Billing) Transactions() []ledger.Record { return b.ledger.Records() }

// TotalDepositAmount returns the running deposit total.
func (b *Billing) TotalDepositAmount() int64 { return b.ledger.TotalDeposit() }

// TotalWithdrawalAmount returns the running withdrawal total.
func (b *Billing) TotalWithdrawalAmount() int64 { return b.ledger.TotalWithdrawal() }

// LastTransactionDate returns the entered time of the latest appended entry.
func (b *Billing) LastTransactionDate() time.Time { return b.lastTransactionDate }

// IsNew reports whether the aggregate was freshly created.
func (b *Billing) IsNew() bool { return b.isNew }

// MarkPersisted marks the aggregate as persisted.
func (b *Billing) MarkPersisted() {
	if b != nil {
		b.isNew = false
	}
}

// Clone returns a detached copy marked as persisted, without pending events.
func (b *Billing) Clone() *Billing {
	if b == nil {
		return nil
	}
	copied := *b
	copied.ledger = b.ledger.Clone()
	copied.isNew = false
	copied.events = nil
	return &copied
}
