package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	coverage "caregiving-cloud/internal/coverage/domain"
)

const (
	defaultCoveragesTable     = "coverages"
	defaultAnnualChargesTable = "coverage_annual_charges"
)

// CoverageLookup loads coverages and their annual charges from Postgres.
type CoverageLookup struct {
	db           *sql.DB
	table        string
	chargesTable string
}

// LookupOption configures the lookup.
type LookupOption func(*CoverageLookup)

// WithCoveragesTable overrides the coverages table name.
func WithCoveragesTable(table string) LookupOption {
	return func(l *CoverageLookup) {
		if table != "" {
			l.table = table
		}
	}
}

// WithAnnualChargesTable overrides the annual charges table name.
func WithAnnualChargesTable(table string) LookupOption {
	return func(l *CoverageLookup) {
		if table != "" {
			l.chargesTable = table
		}
	}
}

// NewCoverageLookup constructs a lookup.
func NewCoverageLookup(db *sql.DB, opts ...LookupOption) *CoverageLookup {
	l := &CoverageLookup{
		db:           db,
		table:        defaultCoveragesTable,
		chargesTable: defaultAnnualChargesTable,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetCoverage loads a coverage by id.
func (l *CoverageLookup) GetCoverage(ctx context.Context, coverageID string) (*coverage.Coverage, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("coverage lookup: nil db")
	}
	if coverageID == "" {
		return nil, coverage.ErrCoverageNotFound
	}

	query := fmt.Sprintf(`
SELECT id, name, target_subscription_year, renewal_type
FROM %s
WHERE id = $1
LIMIT 1`, l.table)

	cov := coverage.Coverage{}
	var renewalType string
	err := l.db.QueryRowContext(ctx, query, coverageID).Scan(
		&cov.ID, &cov.Name, &cov.TargetSubscriptionYear, &renewalType,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, coverage.ErrCoverageNotFound
		}
		return nil, err
	}
	normalized, ok := coverage.NormalizeRenewalType(renewalType)
	if !ok {
		return nil, fmt.Errorf("coverage lookup: unknown renewal type %q", renewalType)
	}
	cov.RenewalType = normalized

	chargesQuery := fmt.Sprintf(`
SELECT accident_year, daily_charge
FROM %s
WHERE coverage_id = $1
ORDER BY accident_year ASC`, l.chargesTable)

	rows, err := l.db.QueryContext(ctx, chargesQuery, coverageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry coverage.AnnualCharge
		if err := rows.Scan(&entry.AccidentYear, &entry.DailyCharge); err != nil {
			return nil, err
		}
		cov.AnnualCharges = append(cov.AnnualCharges, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &cov, nil
}
