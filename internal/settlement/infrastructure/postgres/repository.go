package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caregiving-cloud/internal/ledger"
	settlement "caregiving-cloud/internal/settlement/domain"
)

const (
	defaultSettlementsTable  = "settlements"
	defaultTransactionsTable = "settlement_transactions"
)

// SettlementRepository is a Postgres implementation for settlements.
type SettlementRepository struct {
	db                *sql.DB
	table             string
	transactionsTable string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*SettlementRepository)

// WithTable overrides the settlements table name.
func WithTable(table string) RepositoryOption {
	return func(repo *SettlementRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithTransactionsTable overrides the transactions table name.
func WithTransactionsTable(table string) RepositoryOption {
	return func(repo *SettlementRepository) {
		if table != "" {
			repo.transactionsTable = table
		}
	}
}

// NewSettlementRepository constructs a repository with defaults.
func NewSettlementRepository(db *sql.DB, opts ...RepositoryOption) *SettlementRepository {
	repo := &SettlementRepository{
		db:                db,
		table:             defaultSettlementsTable,
		transactionsTable: defaultTransactionsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

const settlementColumns = `
id, reception_id, accident_number, COALESCE(assigned_organization_id, ''),
caregiving_round_id, caregiving_round_number, daily_caregiving_charge,
basic_amount, additional_amount, total_amount, last_calculation_at,
expected_settlement_at, progressing_status, completion_at,
COALESCE(settlement_manager_id, ''), last_transaction_at`

// FindByID loads a settlement aggregate.
func (r *SettlementRepository) FindByID(ctx context.Context, settlementID string) (*settlement.Settlement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	if settlementID == "" {
		return nil, settlement.ErrEmptySettlementID
	}
	return r.findOne(ctx, "id = $1", settlementID)
}

// FindByCaregivingRoundID loads the settlement owning a round.
func (r *SettlementRepository) FindByCaregivingRoundID(ctx context.Context, roundID string) (*settlement.Settlement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	if roundID == "" {
		return nil, nil
	}
	return r.findOne(ctx, "caregiving_round_id = $1", roundID)
}

// ListByReceptionID returns all settlements of a reception.
func (r *SettlementRepository) ListByReceptionID(ctx context.Context, receptionID string) ([]*settlement.Settlement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	return r.list(ctx, "reception_id = $1 ORDER BY caregiving_round_number ASC", receptionID)
}

// ListByExpectedSettlementMonth returns settlements expected in a month.
func (r *SettlementRepository) ListByExpectedSettlementMonth(ctx context.Context, monthStart time.Time) ([]*settlement.Settlement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	monthEnd := monthStart.AddDate(0, 1, 0)
	return r.list(ctx, "expected_settlement_at >= $1 AND expected_settlement_at < $2 ORDER BY caregiving_round_number ASC", monthStart, monthEnd)
}

func (r *SettlementRepository) list(ctx context.Context, where string, args ...any) ([]*settlement.Settlement, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s`, r.table, where)
	rows, err := r.db.QueryContext(ctx, query, args...)
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

	result := make([]*settlement.Settlement, 0, len(ids))
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

func (r *SettlementRepository) findOne(ctx context.Context, where string, arg any) (*settlement.Settlement, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s LIMIT 1`, settlementColumns, r.table, where)

	state := settlement.State{}
	var (
		status       string
		completionAt sql.NullTime
		lastTx       sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&state.ID,
		&state.ReceptionID,
		&state.AccidentNumber,
		&state.AssignedOrganizationID,
		&state.CaregivingRoundID,
		&state.CaregivingRoundNumber,
		&state.DailyCaregivingCharge,
		&state.BasicAmount,
		&state.AdditionalAmount,
		&state.TotalAmount,
		&state.LastCalculationAt,
		&state.ExpectedSettlementAt,
		&status,
		&completionAt,
		&state.SettlementManagerID,
		&lastTx,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	state.Status = settlement.ProgressingStatus(status)
	if completionAt.Valid {
		state.CompletionAt = completionAt.Time
	}
	if lastTx.Valid {
		state.LastTransactionAt = lastTx.Time
	}

	transactions, err := r.listTransactions(ctx, state.ID)
	if err != nil {
		return nil, err
	}
	state.Transactions = transactions

	return settlement.Restore(state)
}

func (r *SettlementRepository) listTransactions(ctx context.Context, settlementID string) ([]ledger.Record, error) {
	query := fmt.Sprintf(`
SELECT transaction_type, amount, transaction_date, entered_at, transaction_subject_id, tx_order
FROM %s
WHERE settlement_id = $1
ORDER BY tx_order ASC`, r.transactionsTable)

	rows, err := r.db.QueryContext(ctx, query, settlementID)
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

// Save persists an aggregate. The settlement row is upserted and ledger
// entries are inserted append-only keyed by their order.
func (r *SettlementRepository) Save(ctx context.Context, aggregate *settlement.Settlement) error {
	if r == nil || r.db == nil {
		return errors.New("settlement repo: nil db")
	}
	if aggregate == nil {
		return settlement.ErrNilAggregate
	}
	state := aggregate.Snapshot()
	if state.ID == "" {
		return settlement.ErrEmptySettlementID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := fmt.Sprintf(`
INSERT INTO %s (
	id, reception_id, accident_number, assigned_organization_id,
	caregiving_round_id, caregiving_round_number, daily_caregiving_charge,
	basic_amount, additional_amount, total_amount, last_calculation_at,
	expected_settlement_at, progressing_status, completion_at,
	settlement_manager_id, last_transaction_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)
ON CONFLICT (id) DO UPDATE SET
	accident_number = EXCLUDED.accident_number,
	assigned_organization_id = EXCLUDED.assigned_organization_id,
	daily_caregiving_charge = EXCLUDED.daily_caregiving_charge,
	basic_amount = EXCLUDED.basic_amount,
	additional_amount = EXCLUDED.additional_amount,
	total_amount = EXCLUDED.total_amount,
	last_calculation_at = EXCLUDED.last_calculation_at,
	expected_settlement_at = EXCLUDED.expected_settlement_at,
	progressing_status = EXCLUDED.progressing_status,
	completion_at = EXCLUDED.completion_at,
	settlement_manager_id = EXCLUDED.settlement_manager_id,
	last_transaction_at = EXCLUDED.last_transaction_at,
	updated_at = EXCLUDED.updated_at`, r.table)

	_, err = tx.ExecContext(ctx, upsert,
		state.ID,
		state.ReceptionID,
		state.AccidentNumber,
		nullString(state.AssignedOrganizationID),
		state.CaregivingRoundID,
		state.CaregivingRoundNumber,
		state.DailyCaregivingCharge,
		state.BasicAmount,
		state.AdditionalAmount,
		state.TotalAmount,
		state.LastCalculationAt,
		state.ExpectedSettlementAt,
		string(state.Status),
		nullTime(state.CompletionAt),
		nullString(state.SettlementManagerID),
		nullTime(state.LastTransactionAt),
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	insertTx := fmt.Sprintf(`
INSERT INTO %s (
	settlement_id, tx_order, transaction_type, amount, transaction_date, entered_at, transaction_subject_id
) VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (settlement_id, tx_order) DO NOTHING`, r.transactionsTable)

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
