package billing

import (
	"time"

	"caregiving-cloud/internal/charging"
	"caregiving-cloud/internal/ledger"
)

// State is the persisted shape of a billing aggregate, used by repositories
// to rebuild it without replaying events.
type State struct {
	ID                     string
	ReceptionID            string
	AccidentNumber         string
	SubscriptionDate       time.Time
	AssignedOrganizationID string
	CoverageID             string
	CaregivingRoundID      string
	RoundNumber            int
	Period                 charging.Period
	CancelAfterArrived     bool
	Status                 ProgressingStatus
	Charge                 charging.Result
	BillingDate            time.Time
	Transactions           []ledger.Record
	LastTransactionDate    time.Time
}

// Restore rebuilds a persisted billing aggregate.
func Restore(state State) (*Billing, error) {
	if state.ID == "" {
		return nil, ErrEmptyBillingID
	}
	return &Billing{
		id:                     state.ID,
		receptionID:            state.ReceptionID,
		accidentNumber:         state.AccidentNumber,
		subscriptionDate:       state.SubscriptionDate,
		assignedOrganizationID: state.AssignedOrganizationID,
		coverageID:             state.CoverageID,
		caregivingRoundID:      state.CaregivingRoundID,
		roundNumber:            state.RoundNumber,
		period:                 state.Period,
		cancelAfterArrived:     state.CancelAfterArrived,
		status:                 state.Status,
		charge:                 state.Charge,
		billingDate:            state.BillingDate,
		ledger:                 ledger.Restore(state.Transactions),
		lastTransactionDate:    state.LastTransactionDate,
	}, nil
}

// Snapshot captures the aggregate's persisted shape.
func (b *Billing) Snapshot() State {
	return State{
		ID:                     b.id,
		ReceptionID:            b.receptionID,
		AccidentNumber:         b.accidentNumber,
		SubscriptionDate:       b.subscriptionDate,
		AssignedOrganizationID: b.assignedOrganizationID,
		CoverageID:             b.coverageID,
		CaregivingRoundID:      b.caregivingRoundID,
		RoundNumber:            b.roundNumber,
		Period:                 b.period,
		CancelAfterArrived:     b.cancelAfterArrived,
		Status:                 b.status,
		Charge:                 b.charge,
		BillingDate:            b.billingDate,
		Transactions:           b.ledger.Records(),
		LastTransactionDate:    b.lastTransactionDate,
	}
}
