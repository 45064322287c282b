package charging

import "errors"

// ErrInvalidPeriod is returned when a period has no start or ends before it
// starts.
var ErrInvalidPeriod = errors.New("charging: invalid caregiving period")
