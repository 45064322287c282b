package settlement

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"caregiving-cloud/internal/caregiving/events"
	"caregiving-cloud/internal/charging"
	"caregiving-cloud/internal/ledger"
	masterdata "caregiving-cloud/internal/masterdata/domain"
	"caregiving-cloud/internal/patching"
)

// ProgressingStatus is the settlement lifecycle state.
type ProgressingStatus string

const (
	StatusConfirmed ProgressingStatus = "CONFIRMED"
	StatusWaiting   ProgressingStatus = "WAITING"
	StatusCompleted ProgressingStatus = "COMPLETED"
)

// ErrTransactionNotAllowed is returned when a ledger entry is recorded while
// the settlement is still confirmed.
var ErrTransactionNotAllowed = errors.New("settlement: transaction not allowed while confirmed")

// Settlement is the settlement aggregate of one caregiving round. Unlike
// billing, its transition set is strict: a confirmed settlement must pass
// through WAITING before it can complete.
type Settlement struct {
	id string

	receptionID            string
	accidentNumber         string
	assignedOrganizationID string

	caregivingRoundID     string
	caregivingRoundNumber int

	dailyCaregivingCharge int64
	basicAmount           int64
	additionalAmount      int64
	totalAmount           int64
	lastCalculationAt     time.Time
	expectedSettlementAt  time.Time

	status              ProgressingStatus
	completionAt        time.Time
	settlementManagerID string

	ledger            *ledger.Ledger
	lastTransactionAt time.Time

	isNew  bool
	events []any
}

// NewSettlementID generates a random settlement identifier.
func NewSettlementID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "settlement-" + hex.EncodeToString(buf)
}

// NewSettlement creates a settlement for a round whose charge was just
// calculated. Exactly one settlement exists per round.
func NewSettlement(
	id string,
	reception *masterdata.Reception,
	round *masterdata.CaregivingRound,
	charge charging.Result,
	dailyCharge int64,
	now time.Time,
) (*Settlement, error) {
	if id == "" {
		return nil, ErrEmptySettlementID
	}
	if reception == nil {
		return nil, ErrNilReception
	}
	if round == nil {
		return nil, ErrNilCaregivingRound
	}

	s := &Settlement{
		id:                     id,
		receptionID:            reception.ID,
		accidentNumber:         reception.AccidentNumber,
		assignedOrganizationID: reception.AssignedOrganizationID,
		caregivingRoundID:      round.ID,
		caregivingRoundNumber:  round.RoundNumber,
		status:                 StatusConfirmed,
		ledger:                 &ledger.Ledger{},
		isNew:                  true,
	}
	s.absorbCharge(charge, dailyCharge, now)
	s.record(SettlementGenerated{
		SettlementID:      s.id,
		ReceptionID:       s.receptionID,
		CaregivingRoundID: s.caregivingRoundID,
		ProgressingStatus: string(s.status),
		TotalAmount:       s.totalAmount,
		OccurredAt:        now,
	})
	return s, nil
}

// ApplyCharge absorbs a recalculated charge. While confirmed the amounts
// update silently; a charge confirm moves the settlement to WAITING,
// capturing the total at transition time. A completed settlement ignores
// further recalculations.
func (s *Settlement) ApplyCharge(charge charging.Result, dailyCharge int64, confirmStatus string, now time.Time) {
	switch s.status {
	case StatusCompleted:
		return
	case StatusConfirmed:
		s.absorbCharge(charge, dailyCharge, now)
		if confirmStatus == events.ChargeConfirmConfirmed {
			s.status = StatusWaiting
			s.recordModified(now)
		}
	default:
		s.absorbCharge(charge, dailyCharge, now)
		s.recordModified(now)
	}
}

func (s *Settlement) absorbCharge(charge charging.Result, dailyCharge int64, now time.Time) {
	var basic int64
	for _, line := range charge.BasicAmountLines {
		basic += line.TotalAmount
	}
	s.dailyCaregivingCharge = dailyCharge
	s.basicAmount = basic
	s.additionalAmount = charge.AdditionalAmount
	s.totalAmount = charge.TotalAmount
	s.lastCalculationAt = now
	s.expectedSettlementAt = now
}

// RecordTransaction appends a ledger entry. Entries are legal only once the
// settlement has left CONFIRMED, and never change the progressing status.
func (s *Settlement) RecordTransaction(
	txType ledger.TransactionType,
	amount int64,
	transactionDate time.Time,
	subjectID string,
	now time.Time,
) (ledger.Record, error) {
	if s.status == StatusConfirmed {
		return ledger.Record{}, ErrTransactionNotAllowed
	}
	record, err := s.ledger.Append(txType, amount, transactionDate, now, subjectID)
	if err != nil {
		return ledger.Record{}, err
	}
	s.lastTransactionAt = now
	s.recordTransactionEvent(record, now)
	return record, nil
}

// Complete settles the round: it requires WAITING, auto-records a withdrawal
// of the full outstanding total under the acting manager's identity, and
// marks completion.
func (s *Settlement) Complete(managerID string, now time.Time) error {
	if s.status != StatusWaiting {
		return &InvalidTransitionError{Current: s.status, Attempted: StatusCompleted}
	}
	record, err := s.ledger.Append(ledger.TransactionWithdrawal, s.totalAmount, now, now, managerID)
	if err != nil {
		return err
	}
	s.lastTransactionAt = now
	s.status = StatusCompleted
	s.completionAt = now
	s.settlementManagerID = managerID

	s.recordTransactionEvent(record, now)
	s.recordModified(now)
	return nil
}

// EditCommand is a partial administrative update.
type EditCommand struct {
	ProgressingStatus   patching.Field[ProgressingStatus]
	SettlementManagerID patching.Field[string]
}

// Edit applies an administrative update. The only status reachable this way
// is COMPLETED, and only from WAITING.
func (s *Settlement) Edit(cmd EditCommand, actingManagerID string, now time.Time) error {
	target, ok := cmd.ProgressingStatus.Get()
	if !ok || target == s.status {
		return nil
	}
	if target != StatusCompleted {
		return &InvalidTransitionError{Current: s.status, Attempted: target}
	}
	managerID := actingManagerID
	if value, ok := cmd.SettlementManagerID.Get(); ok {
		managerID = value
	}
	return s.Complete(managerID, now)
}

// HandleReceptionModified refreshes denormalized reception attributes.
func (s *Settlement) HandleReceptionModified(ev events.ReceptionModified, now time.Time) {
	if ev.ReceptionID != s.receptionID {
		return
	}
	changed := patching.Apply(ev.AccidentNumber, &s.accidentNumber)
	changed = patching.Apply(ev.AssignedOrganizationID, &s.assignedOrganizationID) || changed
	if changed {
		s.recordModified(now)
	}
}

func (s *Settlement) recordTransactionEvent(record ledger.Record, now time.Time) {
	s.record(SettlementTransactionRecorded{
		SettlementID:          s.id,
		CaregivingRoundID:     s.caregivingRoundID,
		TransactionType:       record.Type,
		Amount:                record.Amount,
		Order:                 record.Order,
		ProgressingStatus:     string(s.status),
		TotalAmount:           s.totalAmount,
		TotalDepositAmount:    s.ledger.TotalDeposit(),
		TotalWithdrawalAmount: s.ledger.TotalWithdrawal(),
		OccurredAt:            now,
	})
}

func (s *Settlement) recordModified(now time.Time) {
	s.record(SettlementModified{
		SettlementID:          s.id,
		CaregivingRoundID:     s.caregivingRoundID,
		ProgressingStatus:     string(s.status),
		TotalAmount:           s.totalAmount,
		TotalDepositAmount:    s.ledger.TotalDeposit(),
		TotalWithdrawalAmount: s.ledger.TotalWithdrawal(),
		OccurredAt:            now,
	})
}

func (s *Settlement) record(event any) {
	s.events = append(s.events, event)
}

// DrainEvents returns pending domain events in emission order and clears them.
func (s *Settlement) DrainEvents() []any {
	drained := s.events
	s.events = nil
	return drained
}

// ID returns the settlement id.
func (s *Settlement) ID() string { return s.id }

// ReceptionID returns the owning reception id.
func (s *Settlement) ReceptionID() string { return s.receptionID }

// AccidentNumber returns the denormalized accident number.
func (s *Settlement) AccidentNumber() string { return s.accidentNumber }

// AssignedOrganizationID returns the assigned organization, empty when none.
func (s *Settlement) AssignedOrganizationID() string { return s.assignedOrganizationID }

// CaregivingRoundID returns the round id.
func (s *Settlement) CaregivingRoundID() string { return s.caregivingRoundID }

// CaregivingRoundNumber returns the round number.
func (s *Settlement) CaregivingRoundNumber() int { return s.caregivingRoundNumber }

// DailyCaregivingCharge returns the daily charge the amounts derive from.
func (s *Settlement) DailyCaregivingCharge() int64 { return s.dailyCaregivingCharge }

// BasicAmount returns the whole-day amount.
func (s *Settlement) BasicAmount() int64 { return s.basicAmount }

// AdditionalAmount returns the overage amount.
func (s *Settlement) AdditionalAmount() int64 { return s.additionalAmount }

// TotalAmount returns the settlement total.
func (s *Settlement) TotalAmount() int64 { return s.totalAmount }

// LastCalculationAt returns when the amounts were last recalculated.
func (s *Settlement) LastCalculationAt() time.Time { return s.lastCalculationAt }

// ExpectedSettlementAt returns the expected settlement date.
func (s *Settlement) ExpectedSettlementAt() time.Time { return s.expectedSettlementAt }

// Status returns the progressing status.
func (s *Settlement) Status() ProgressingStatus { return s.status }

// CompletionAt returns the completion datetime, zero while not completed.
func (s *Settlement) CompletionAt() time.Time { return s.completionAt }

// SettlementManagerID returns the completing manager, empty while not completed.
func (s *Settlement) SettlementManagerID() string { return s.settlementManagerID }

// Transactions returns the ledger entries in append order.
func (s *Settlement) Transactions() []ledger.Record { return s.ledger.Records() }

// TotalDepositAmount returns the running deposit total.
func (s *Settlement) TotalDepositAmount() int64 { return s.ledger.TotalDeposit() }

// TotalWithdrawalAmount returns the running withdrawal total.
func (s *Settlement) TotalWithdrawalAmount() int64 { return s.ledger.TotalWithdrawal() }

// LastTransactionAt returns the entered time of the latest appended entry.
func (s *Settlement) LastTransactionAt() time.Time { return s.lastTransactionAt }

// IsNew reports whether the aggregate was freshly created.
func (s *Settlement) IsNew() bool { return s.isNew }

// MarkPersisted marks the aggregate as persisted.
func (s *Settlement) MarkPersisted() {
	if s != nil {
		s.isNew = false
	}
}

// Clone returns a detached copy marked as persisted, without pending events.
func (s *Settlement) Clone() *Settlement {
	if s == nil {
		return nil
	}
	copied := *s
	copied.ledger = s.ledger.Clone()
	copied.isNew = false
	copied.events = nil
	return &copied
}
