// Package events defines the caregiving-context events this platform
// consumes. The caregiving round workflow itself lives in another bounded
// context; these payloads are its published contract.
package events

import (
	"time"

	"caregiving-cloud/internal/patching"
)

// Charge confirm statuses carried on CaregivingChargeModified.
const (
	ChargeConfirmInProgress = "IN_PROGRESS"
	ChargeConfirmConfirmed  = "CONFIRMED"
)

// CaregivingChargeCalculated signals that a round's charge was calculated for
// the first time. It triggers billing and settlement creation.
type CaregivingChargeCalculated struct {
	CaregivingRoundID  string    `json:"caregiving_round_id"`
	CancelAfterArrived bool      `json:"cancel_after_arrived"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// CaregivingChargeModified signals an externally recalculated charge. The
// cancel flag only changes when set; ConfirmStatus CONFIRMED moves the
// settlement out of its confirmed state.
type CaregivingChargeModified struct {
	CaregivingRoundID  string               `json:"caregiving_round_id"`
	CancelAfterArrived patching.Field[bool] `json:"cancel_after_arrived"`
	ConfirmStatus      string               `json:"confirm_status"`
	OccurredAt         time.Time            `json:"occurred_at"`
}

// CaregivingRoundModified signals a change to a round's caregiving interval.
type CaregivingRoundModified struct {
	CaregivingRoundID string                    `json:"caregiving_round_id"`
	Start             patching.Field[time.Time] `json:"start"`
	End               patching.Field[time.Time] `json:"end"`
	OccurredAt        time.Time                 `json:"occurred_at"`
}

// ReceptionModified signals edits to a reception's denormalized attributes.
type ReceptionModified struct {
	ReceptionID            string                    `json:"reception_id"`
	AccidentNumber         patching.Field[string]    `json:"accident_number"`
	SubscriptionDate       patching.Field[time.Time] `json:"subscription_date"`
	AssignedOrganizationID patching.Field[string]    `json:"assigned_organization_id"`
	OccurredAt             time.Time                 `json:"occurred_at"`
}
