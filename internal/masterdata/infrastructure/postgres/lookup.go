package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	masterdata "caregiving-cloud/internal/masterdata/domain"
)

const (
	defaultReceptionsTable = "receptions"
	defaultRoundsTable     = "caregiving_rounds"
)

// Lookup loads receptions and caregiving rounds from Postgres.
type Lookup struct {
	db              *sql.DB
	receptionsTable string
	roundsTable     string
}

// LookupOption configures the lookup.
type LookupOption func(*Lookup)

// WithReceptionsTable overrides the receptions table name.
func WithReceptionsTable(table string) LookupOption {
	return func(l *Lookup) {
		if table != "" {
			l.receptionsTable = table
		}
	}
}

// WithRoundsTable overrides the caregiving rounds table name.
func WithRoundsTable(table string) LookupOption {
	return func(l *Lookup) {
		if table != "" {
			l.roundsTable = table
		}
	}
}

// NewLookup constructs a lookup.
func NewLookup(db *sql.DB, opts ...LookupOption) *Lookup {
	l := &Lookup{
		db:              db,
		receptionsTable: defaultReceptionsTable,
		roundsTable:     defaultRoundsTable,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetReception loads a reception by id.
func (l *Lookup) GetReception(ctx context.Context, receptionID string) (*masterdata.Reception, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("masterdata lookup: nil db")
	}
	if receptionID == "" {
		return nil, masterdata.ErrReceptionNotFound
	}

	query := fmt.Sprintf(`
SELECT id, accident_number, coverage_id, subscription_date, COALESCE(assigned_organization_id, '')
FROM %s
WHERE id = $1
LIMIT 1`, l.receptionsTable)

	reception := masterdata.Reception{}
	err := l.db.QueryRowContext(ctx, query, receptionID).Scan(
		&reception.ID,
		&reception.AccidentNumber,
		&reception.CoverageID,
		&reception.SubscriptionDate,
		&reception.AssignedOrganizationID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, masterdata.ErrReceptionNotFound
		}
		return nil, err
	}
	return &reception, nil
}

// GetCaregivingRound loads a round by id.
func (l *Lookup) GetCaregivingRound(ctx context.Context, roundID string) (*masterdata.CaregivingRound, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("masterdata lookup: nil db")
	}
	if roundID == "" {
		return nil, masterdata.ErrCaregivingRoundNotFound
	}

	query := fmt.Sprintf(`
SELECT id, reception_id, round_number, start_date_time, end_date_time
FROM %s
WHERE id = $1
LIMIT 1`, l.roundsTable)

	round := masterdata.CaregivingRound{}
	var end sql.NullTime
	err := l.db.QueryRowContext(ctx, query, roundID).Scan(
		&round.ID,
		&round.ReceptionID,
		&round.RoundNumber,
		&round.Period.Start,
		&end,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, masterdata.ErrCaregivingRoundNotFound
		}
		return nil, err
	}
	if end.Valid {
		round.Period.End = end.Time
	} else {
		round.Period.End = time.Time{}
	}
	return &round, nil
}
