package billing

import (
	"time"

	"caregiving-cloud/internal/ledger"
)

// BillingGenerated is emitted once when a billing is created for a round.
type BillingGenerated struct {
	BillingID         string    `json:"billing_id"`
	ReceptionID       string    `json:"reception_id"`
	CaregivingRoundID string    `json:"caregiving_round_id"`
	ProgressingStatus string    `json:"progressing_status"`
	TotalAmount       int64     `json:"total_amount"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// BillingModified is emitted after any state or amount change. Totals reflect
// the post-transaction values.
type BillingModified struct {
	BillingID             string    `json:"billing_id"`
	CaregivingRoundID     string    `json:"caregiving_round_id"`
	ProgressingStatus     string    `json:"progressing_status"`
	TotalAmount           int64     `json:"total_amount"`
	TotalDepositAmount    int64     `json:"total_deposit_amount"`
	TotalWithdrawalAmount int64     `json:"total_withdrawal_amount"`
	OccurredAt            time.Time `json:"occurred_at"`
}

// BillingTransactionRecorded is emitted per appended ledger entry.
type BillingTransactionRecorded struct {
	BillingID             string                 `json:"billing_id"`
	CaregivingRoundID     string                 `json:"caregiving_round_id"`
	TransactionType       ledger.TransactionType `json:"transaction_type"`
	Amount                int64                  `json:"amount"`
	Order                 int                    `json:"order"`
	ProgressingStatus     string                 `json:"progressing_status"`
	TotalAmount           int64                  `json:"total_amount"`
	TotalDepositAmount    int64                  `json:"total_deposit_amount"`
	TotalWithdrawalAmount int64                  `json:"total_withdrawal_amount"`
	OccurredAt            time.Time              `json:"occurred_at"`
}
