package ledger

import "errors"

var (
	// ErrInvalidAmount is returned when a transaction amount is zero or
	// negative.
	ErrInvalidAmount = errors.New("ledger: transaction amount must be positive")
	// ErrInvalidTransactionType is returned for unknown transaction types.
	ErrInvalidTransactionType = errors.New("ledger: invalid transaction type")
)
