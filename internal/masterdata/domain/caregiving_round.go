package masterdata

import (
	"context"

	"caregiving-cloud/internal/charging"
)

// CaregivingRound is one contiguous caregiver assignment within a reception.
type CaregivingRound struct {
	ID          string
	ReceptionID string
	RoundNumber int
	Period      charging.Period
}

// CaregivingRoundLookup resolves caregiving rounds by id.
type CaregivingRoundLookup interface {
	GetCaregivingRound(ctx context.Context, roundID string) (*CaregivingRound, error)
}
