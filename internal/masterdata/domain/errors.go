package masterdata

import "errors"

var (
	// ErrReceptionNotFound is returned when a reception id is unknown.
	ErrReceptionNotFound = errors.New("masterdata: reception not found")
	// ErrCaregivingRoundNotFound is returned when a round id is unknown.
	ErrCaregivingRoundNotFound = errors.New("masterdata: caregiving round not found")
)
