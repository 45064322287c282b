package ledger

import "time"

// TransactionType distinguishes deposits from withdrawals.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
)

// NormalizeTransactionType validates a transaction type string.
func NormalizeTransactionType(value string) (TransactionType, bool) {
	switch TransactionType(value) {
	case TransactionDeposit, TransactionWithdrawal:
		return TransactionType(value), true
	default:
		return "", false
	}
}

// Record is one immutable ledger entry. Order is the 0-based append sequence
// within the owning aggregate, independent of TransactionDate.
type Record struct {
	Type            TransactionType
	Amount          int64
	TransactionDate time.Time
	EnteredAt       time.Time
	SubjectID       string
	Order           int
}

// Ledger is an append-only sequence of transaction records with incrementally
// maintained running totals.
type Ledger struct {
	records         []Record
	totalDeposit    int64
	totalWithdrawal int64
	lastEnteredAt   time.Time
}

// Append validates and appends a record, assigning its order. The entry is
// rejected before any state changes.
func (l *Ledger) Append(txType TransactionType, amount int64, transactionDate, enteredAt time.Time, subjectID string) (Record, error) {
	if _, ok := NormalizeTransactionType(string(txType)); !ok {
		return Record{}, ErrInvalidTransactionType
	}
	if amount <= 0 {
		return Record{}, ErrInvalidAmount
	}

	record := Record{
		Type:            txType,
		Amount:          amount,
		TransactionDate: transactionDate,
		EnteredAt:       enteredAt,
		SubjectID:       subjectID,
		Order:           len(l.records),
	}
	l.records = append(l.records, record)
	switch txType {
	case TransactionDeposit:
		l.totalDeposit += amount
	case TransactionWithdrawal:
		l.totalWithdrawal += amount
	}
	l.lastEnteredAt = enteredAt
	return record, nil
}

// Records returns a copy of the entries in append order.
func (l *Ledger) Records() []Record {
	return append([]Record(nil), l.records...)
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.records) }

// TotalDeposit returns the running deposit total.
func (l *Ledger) TotalDeposit() int64 { return l.totalDeposit }

// TotalWithdrawal returns the running withdrawal total.
func (l *Ledger) TotalWithdrawal() int64 { return l.totalWithdrawal }

// LastEnteredAt returns the entered time of the most recently appended entry,
// zero when the ledger is empty.
func (l *Ledger) LastEnteredAt() time.Time { return l.lastEnteredAt }

// Restore rebuilds a ledger from persisted records in append order.
func Restore(records []Record) *Ledger {
	l := &Ledger{}
	for _, record := range records {
		record.Order = len(l.records)
		l.records = append(l.records, record)
		switch record.Type {
		case TransactionDeposit:
			l.totalDeposit += record.Amount
		case TransactionWithdrawal:
			l.totalWithdrawal += record.Amount
		}
		l.lastEnteredAt = record.EnteredAt
	}
	return l
}

// Clone returns a detached copy.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	copied := &Ledger{
		records:         append([]Record(nil), l.records...),
		totalDeposit:    l.totalDeposit,
		totalWithdrawal: l.totalWithdrawal,
		lastEnteredAt:   l.lastEnteredAt,
	}
	return copied
}
