package settlement

import (
	"time"

	"caregiving-cloud/internal/ledger"
)

// State is the persisted shape of a settlement aggregate.
type State struct {
	ID                     string
	ReceptionID            string
	AccidentNumber         string
	AssignedOrganizationID string
	CaregivingRoundID      string
	CaregivingRoundNumber  int
	DailyCaregivingCharge  int64
	BasicAmount            int64
	AdditionalAmount       int64
	TotalAmount            int64
	LastCalculationAt      time.Time
	ExpectedSettlementAt   time.Time
	Status                 ProgressingStatus
	CompletionAt           time.Time
	SettlementManagerID    string
	Transactions           []ledger.Record
	LastTransactionAt      time.Time
}

// Restore rebuilds a persisted settlement aggregate.
func Restore(state State) (*Settlement, error) {
	if state.ID == "" {
		return nil, ErrEmptySettlementID
	}
	return &Settlement{
		id:                     state.ID,
		receptionID:            state.ReceptionID,
		accidentNumber:         state.AccidentNumber,
		assignedOrganizationID: state.AssignedOrganizationID,
		caregivingRoundID:      state.CaregivingRoundID,
		caregivingRoundNumber:  state.CaregivingRoundNumber,
		dailyCaregivingCharge:  state.DailyCaregivingCharge,
		basicAmount:            state.BasicAmount,
		additionalAmount:       state.AdditionalAmount,
		totalAmount:            state.TotalAmount,
		lastCalculationAt:      state.LastCalculationAt,
		expectedSettlementAt:   state.ExpectedSettlementAt,
		status:                 state.Status,
		completionAt:           state.CompletionAt,
		settlementManagerID:    state.SettlementManagerID,
		ledger:                 ledger.Restore(state.Transactions),
		lastTransactionAt:      state.LastTransactionAt,
	}, nil
}

// Snapshot captures the aggregate's persisted shape.
func (s *Settlement) Snapshot() State {
	return State{
		ID:                     s.id,
		ReceptionID:            s.receptionID,
		AccidentNumber:         s.accidentNumber,
		AssignedOrganizationID: s.assignedOrganizationID,
		CaregivingRoundID:      s.caregivingRoundID,
		CaregivingRoundNumber:  s.caregivingRoundNumber,
		DailyCaregivingCharge:  s.dailyCaregivingCharge,
		BasicAmount:            s.basicAmount,
		AdditionalAmount:       s.additionalAmount,
		TotalAmount:            s.totalAmount,
		LastCalculationAt:      s.lastCalculationAt,
		ExpectedSettlementAt:   s.expectedSettlementAt,
		Status:                 s.status,
		CompletionAt:           s.completionAt,
		SettlementManagerID:    s.settlementManagerID,
		Transactions:           s.ledger.Records(),
		LastTransactionAt:      s.lastTransactionAt,
	}
}
