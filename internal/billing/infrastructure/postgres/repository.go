package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	billing "caregiving-cloud/internal/billing/domain"
	"caregiving-cloud/internal/ledger"
)

const (
	defaultBillingsTable     = "billings"
	defaultTransactionsTable = "billing_transactions"
)

// BillingRepository is a Postgres implementation for billings.
type BillingRepository struct {
	db                *sql.DB
	table             string
	transactionsTable string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*BillingRepository)

// WithTable overrides the billings table name.
func WithTable(table string) RepositoryOption {
	return func(repo *BillingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithTransactionsTable overrides the transactions table name.
func WithTransactionsTable(table string) RepositoryOption {
	return func(repo *BillingRepository) {
		if table != "" {
			repo.transactionsTable = table
		}
	}
}

// NewBillingRepository constructs a repository with defaults.
func NewBillingRepository(db *sql.DB, opts ...RepositoryOption) *BillingRepository {
	repo := &BillingRepository{
		db:                db,
		table:             defaultBillingsTable,
		transactionsTable: defaultTransactionsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// FindByID loads a billing aggregate.
func (r *BillingRepository) FindByID(ctx context.Context, billingID string) (*billing.Billing, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("billing repo: nil db")
	}
	if billingID == "" {
		return nil, billing.ErrEmptyBillingID
	}
	return r.findOne(ctx, "id = $1", billingID)
}

// FindByCaregivingRoundID loads the billing owning a round.
func (r *BillingRepository) FindByCaregivingRoundID(ctx context.Context, roundID string) (*billing.Billing, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("billing repo: nil db")
	}
	if roundID == "" {
		return nil, nil
	}
	return r.findOne(ctx, "caregiving_round_id = $1", roundID)
}

// ListByReceptionID returns all billings of a reception.
func (r *BillingRepository) ListByReceptionID(ctx context.Context, receptionID string) ([]*billing.Billing, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("billing repo: nil db")
	}
	if receptionID == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE reception_id = $1 ORDER BY round_number ASC`, r.table)
	rows, err := r.db.QueryContext(ctx, query, receptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]*billing.Billing, 0, len(ids))
	for _, id := range ids {
		agg, err := r.findOne(ctx, "id = $1", id)
		if err != nil {
			return nil, err
		}
		if agg != nil {
			result = append(result, agg)
		}
	}
	return result, nil
}

func (r *BillingRepository) findOne(ctx context.Context, where string, arg any) (*billing.Billing, error) {
	query := fmt.Sprintf(`
SELECT id, reception_id, accident_number, subscription_date,
       COALESCE(assigned_organization_id, ''), coverage_id,
       caregiving_round_id, round_number, period_start, period_end,
       cancel_after_arrived, progressing_status, charge_lines,
       additional_hours, additional_amount, total_amount,
       billing_date, last_transaction_date
FROM %s
WHERE %s
LIMIT 1`, r.table, where)

	state := billing.State{}
	var (
		periodEnd    sql.NullTime
		status       string
		chargeLines  []byte
		billingDate  sql.NullTime
		lastTransact sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&state.ID,
		&state.ReceptionID,
		&state.AccidentNumber,
		&state.SubscriptionDate,
		&state.AssignedOrganizationID,
		&state.CoverageID,
		&state.CaregivingRoundID,
		&state.RoundNumber,
		&state.Period.Start,
		&periodEnd,
		&state.CancelAfterArrived,
		&status,
		&chargeLines,
		&state.Charge.AdditionalHours,
		&state.Charge.AdditionalAmount,
		&state.Charge.TotalAmount,
		&billingDate,
		&lastTransact,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if periodEnd.Valid {
		state.Period.End = periodEnd.Time
	}
	if billingDate.Valid {
		state.BillingDate = billingDate.Time
	}
	if lastTransact.Valid {
		state.LastTransactionDate = lastTransact.Time
	}
	state.Status = billing.ProgressingStatus(status)
	if len(chargeLines) > 0 {
		if err := json.Unmarshal(chargeLines, &state.Charge.BasicAmountLines); err != nil {
			return nil, err
		}
	}

	transactions, err := r.listTransactions(ctx, state.ID)
	if err != nil {
		return nil, err
	}
	state.Transactions = transactions

	agg, err := billing.Restore(state)
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func (r *BillingRepository) listTransactions(ctx context.Context, billingID string) ([]ledger.Record, error) {
	query := fmt.Sprintf(`
SELECT transaction_type, amount, transaction_date, entered_at, transaction_subject_id, tx_order
FROM %s
WHERE billing_id = $1
ORDER BY tx_order ASC`, r.transactionsTable)

	rows, err := r.db.QueryContext(ctx, query, billingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var record ledger.Record
		var txType string
		if err := rows.Scan(&txType, &record.Amount, &record.TransactionDate, &record.EnteredAt, &record.SubjectID, &record.Order); err != nil {
			return nil, err
		}
		record.Type = ledger.TransactionType(txType)
		records = append(records, record)
	}
	return records, rows.Err()
}

// Save persists an aggregate. The billing row is upserted and ledger entries
// are inserted append-only keyed by their order.
func (r *BillingRepository) Save(ctx context.Context, aggregate *billing.Billing) error {
	if r == nil || r.db == nil {
		return errors.New("billing repo: nil db")
	}
	if aggregate == nil {
		return billing.ErrNilAggregate
	}
	state := aggregate.Snapshot()
	if state.ID == "" {
		return billing.ErrEmptyBillingID
	}

	chargeLines, err := json.Marshal(state.Charge.BasicAmountLines)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := fmt.Sprintf(`
INSERT INTO %s (
	id, reception_id, accident_number, subscription_date, assigned_organization_id,
	coverage_id, caregiving_round_id, round_number, period_start, period_end,
	cancel_after_arrived, progressing_status, charge_lines, additional_hours,
	additional_amount, total_amount, billing_date, last_transaction_date, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
)
ON CONFLICT (id) DO UPDATE SET
	accident_number = EXCLUDED.accident_number,
	subscription_date = EXCLUDED.subscription_date,
	assigned_organization_id = EXCLUDED.assigned_organization_id,
	period_start = EXCLUDED.period_start,
	period_end = EXCLUDED.period_end,
	cancel_after_arrived = EXCLUDED.cancel_after_arrived,
	progressing_status = EXCLUDED.progressing_status,
	charge_lines = EXCLUDED.charge_lines,
	additional_hours = EXCLUDED.additional_hours,
	additional_amount = EXCLUDED.additional_amount,
	total_amount = EXCLUDED.total_amount,
	billing_date = EXCLUDED.billing_date,
	last_transaction_date = EXCLUDED.last_transaction_date,
	updated_at = EXCLUDED.updated_at`, r.table)

	_, err = tx.ExecContext(ctx, upsert,
		state.ID,
		state.ReceptionID,
		state.AccidentNumber,
		state.SubscriptionDate,
		nullString(state.AssignedOrganizationID),
		state.CoverageID,
		state.CaregivingRoundID,
		state.RoundNumber,
		state.Period.Start,
		nullTime(state.Period.End),
		state.CancelAfterArrived,
		string(state.Status),
		chargeLines,
		state.Charge.AdditionalHours,
		state.Charge.AdditionalAmount,
		state.Charge.TotalAmount,
		nullTime(state.BillingDate),
		nullTime(state.LastTransactionDate),
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	insertTx := fmt.Sprintf(`
INSERT INTO %s (
	billing_id, tx_order, transaction_type, amount, transaction_date, entered_at, transaction_subject_id
) VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (billing_id, tx_order) DO NOTHING`, r.transactionsTable)

	for _, record := range state.Transactions {
		_, err = tx.ExecContext(ctx, insertTx,
			state.ID,
			record.Order,
			string(record.Type),
			record.Amount,
			record.TransactionDate,
			record.EnteredAt,
			record.SubjectID,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	aggregate.MarkPersisted()
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
