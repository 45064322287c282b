package revision

import (
	"context"
	"database/sql"
	"errors"
)

// Repository is a Postgres revision store.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a revision repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// Append inserts a revision. Rows are never updated.
func (r *Repository) Append(ctx context.Context, rev Revision) error {
	if r == nil || r.db == nil {
		return errors.New("revision repo: nil db")
	}
	if rev.ID == "" {
		rev.ID = NewID()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO revisions (
	id, subject_type, subject_id, caregiving_round_id, progressing_status,
	total_amount, total_deposit_amount, total_withdrawal_amount, recorded_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)
ON CONFLICT (id) DO NOTHING`,
		rev.ID, rev.SubjectType, rev.SubjectID, rev.CaregivingRoundID, rev.ProgressingStatus,
		rev.TotalAmount, rev.TotalDepositAmount, rev.TotalWithdrawalAmount, rev.RecordedAt)
	return err
}

// ListBySubject returns the revisions of a subject in recorded order.
func (r *Repository) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]Revision, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("revision repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, subject_type, subject_id, caregiving_round_id, progressing_status,
	total_amount, total_deposit_amount, total_withdrawal_amount, recorded_at
FROM revisions
WHERE subject_type = $1 AND subject_id = $2
ORDER BY recorded_at ASC, id ASC`, subjectType, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Revision
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(
			&rev.ID, &rev.SubjectType, &rev.SubjectID, &rev.CaregivingRoundID, &rev.ProgressingStatus,
			&rev.TotalAmount, &rev.TotalDepositAmount, &rev.TotalWithdrawalAmount, &rev.RecordedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rev)
	}
	return result, rows.Err()
}
