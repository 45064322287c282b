package settlement

import (
	"time"

	"caregiving-cloud/internal/ledger"
)

// SettlementGenerated is emitted once when a settlement is created for a round.
type SettlementGenerated struct {
	SettlementID      string    `json:"settlement_id"`
	ReceptionID       string    `json:"reception_id"`
	CaregivingRoundID string    `json:"caregiving_round_id"`
	ProgressingStatus string    `json:"progressing_status"`
	TotalAmount       int64     `json:"total_amount"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// SettlementModified is emitted after any state or amount change.
type SettlementModified struct {
	SettlementID          string    `json:"settlement_id"`
	CaregivingRoundID     string    `json:"caregiving_round_id"`
	ProgressingStatus     string    `json:"progressing_status"`
	TotalAmount           int64     `json:"total_amount"`
	TotalDepositAmount    int64     `json:"total_deposit_amount"`
	TotalWithdrawalAmount int64     `json:"total_withdrawal_amount"`
	OccurredAt            time.Time `json:"occurred_at"`
}

// SettlementTransactionRecorded is emitted per appended ledger entry.
type SettlementTransactionRecorded struct {
	SettlementID          string                 `json:"settlement_id"`
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
