package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"caregiving-cloud/internal/caregiving/events"
	"caregiving-cloud/internal/charging"
	"caregiving-cloud/internal/ledger"
	masterdata "caregiving-cloud/internal/masterdata/domain"
	settlement "caregiving-cloud/internal/settlement/domain"
	settlementrepo "caregiving-cloud/internal/settlement/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestSettlement_PostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "settlements") || !tableExists(db, "settlement_transactions") {
		t.Skip("missing tables; run migrations")
	}

	ctx := context.Background()
	_, _ = db.ExecContext(ctx, "DELETE FROM settlement_transactions")
	_, _ = db.ExecContext(ctx, "DELETE FROM settlements")

	repo := settlementrepo.NewSettlementRepository(db)
	now := time.Date(2023, 3, 26, 12, 0, 0, 0, time.UTC)

	reception := &masterdata.Reception{
		ID:               "reception-it-1",
		AccidentNumber:   "2023-001",
		CoverageID:       "coverage-1",
		SubscriptionDate: time.Date(2022, 3, 24, 0, 0, 0, 0, time.UTC),
	}
	round := &masterdata.CaregivingRound{ID: "round-it-1", ReceptionID: reception.ID, RoundNumber: 1}
	charge := charging.Result{
		BasicAmountLines: []charging.BasicAmountLine{
			{AccidentYear: 2023, DailyCharge: 100000, CaregivingDays: 3, TotalAmount: 300000},
		},
		TotalAmount: 300000,
	}

	agg, err := settlement.NewSettlement("settlement-it-1", reception, round, charge, 100000, now)
	if err != nil {
		t.Fatalf("new settlement: %v", err)
	}
	agg.DrainEvents()
	if err := repo.Save(ctx, agg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := repo.FindByCaregivingRoundID(ctx, "round-it-1")
	if err != nil {
		t.Fatalf("find by round: %v", err)
	}
	if loaded == nil {
		t.Fatalf("settlement not found after save")
	}
	if loaded.Status() != settlement.StatusConfirmed {
		t.Fatalf("status mismatch: got=%s want=%s", loaded.Status(), settlement.StatusConfirmed)
	}
	if loaded.TotalAmount() != 300000 {
		t.Fatalf("total mismatch: got=%d want=300000", loaded.TotalAmount())
	}

	// Confirm, complete, and verify the closing withdrawal survives reload.
	loaded.ApplyCharge(charge, 100000, events.ChargeConfirmConfirmed, now)
	if err := loaded.Complete("manager-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	loaded.DrainEvents()
	if err := repo.Save(ctx, loaded); err != nil {
		t.Fatalf("save completed: %v", err)
	}

	completed, err := repo.FindByID(ctx, "settlement-it-1")
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if completed.Status() != settlement.StatusCompleted {
		t.Fatalf("status mismatch: got=%s want=%s", completed.Status(), settlement.StatusCompleted)
	}
	if completed.SettlementManagerID() != "manager-1" {
		t.Fatalf("manager mismatch: got=%s", completed.SettlementManagerID())
	}
	transactions := completed.Transactions()
	if len(transactions) != 1 {
		t.Fatalf("transaction count mismatch: got=%d want=1", len(transactions))
	}
	if transactions[0].Type != ledger.TransactionWithdrawal || transactions[0].Amount != 300000 {
		t.Fatalf("closing withdrawal mismatch: got=%+v", transactions[0])
	}

	list, err := repo.ListByExpectedSettlementMonth(ctx, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list by month: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("month list mismatch: got=%d want=1", len(list))
	}
}

func TestSettlement_TransactionsAppendOnly(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "settlements") || !tableExists(db, "settlement_transactions") {
		t.Skip("missing tables; run migrations")
	}

	ctx := context.Background()
	_, _ = db.ExecContext(ctx, "DELETE FROM settlement_transactions")
	_, _ = db.ExecContext(ctx, "DELETE FROM settlements")

	repo := settlementrepo.NewSettlementRepository(db)
	now := time.Date(2023, 3, 26, 12, 0, 0, 0, time.UTC)

	reception := &masterdata.Reception{
		ID:               "reception-it-2",
		AccidentNumber:   "2023-002",
		CoverageID:       "coverage-1",
		SubscriptionDate: time.Date(2022, 3, 24, 0, 0, 0, 0, time.UTC),
	}
	round := &masterdata.CaregivingRound{ID: "round-it-2", ReceptionID: reception.ID, RoundNumber: 1}
	charge := charging.Result{TotalAmount: 200000}

	agg, err := settlement.NewSettlement("settlement-it-2", reception, round, charge, 100000, now)
	if err != nil {
		t.Fatalf("new settlement: %v", err)
	}
	agg.ApplyCharge(charge, 100000, events.ChargeConfirmConfirmed, now)
	if _, err := agg.RecordTransaction(ledger.TransactionDeposit, 120000, now, "manager-1", now); err != nil {
		t.Fatalf("record transaction: %v", err)
	}
	agg.DrainEvents()
	if err := repo.Save(ctx, agg); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving again must not duplicate the already-persisted entries.
	if err := repo.Save(ctx, agg); err != nil {
		t.Fatalf("save again: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM settlement_transactions WHERE settlement_id = $1", "settlement-it-2").Scan(&count); err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 1 {
		t.Fatalf("transaction rows mismatch: got=%d want=1", count)
	}
}

func tableExists(db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`
SELECT EXISTS (
	SELECT 1
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&exists)
	if err != nil {
		return false
	}
	return exists
}
