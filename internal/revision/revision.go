package revision

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Subject types for revisions.
const (
	SubjectBilling    = "billing"
	SubjectSettlement = "settlement"
)

// Revision is an immutable snapshot of an aggregate's financial state taken
// when the aggregate changed. Revisions are append-only and never rewritten.
type Revision struct {
	ID                    string    `json:"id"`
	SubjectType           string    `json:"subject_type"`
	SubjectID             string    `json:"subject_id"`
	CaregivingRoundID     string    `json:"caregiving_round_id"`
	ProgressingStatus     string    `json:"progressing_status"`
	TotalAmount           int64     `json:"total_amount"`
	TotalDepositAmount    int64     `json:"total_deposit_amount"`
	TotalWithdrawalAmount int64     `json:"total_withdrawal_amount"`
	RecordedAt            time.Time `json:"recorded_at"`
}

// Store persists revisions.
type Store interface {
	Append(ctx context.Context, rev Revision) error
	ListBySubject(ctx context.Context, subjectType, subjectID string) ([]Revision, error)
}

// NewID generates a random revision id.
func NewID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "revision-" + hex.EncodeToString(buf)
}
