package masterdata

import (
	"context"
	"time"
)

// Reception is the insurance reception a caregiving round belongs to.
type Reception struct {
	ID                     string
	AccidentNumber         string
	CoverageID             string
	SubscriptionDate       time.Time
	AssignedOrganizationID string
}

// ReceptionLookup resolves receptions by id.
type ReceptionLookup interface {
	GetReception(ctx context.Context, receptionID string) (*Reception, error)
}
