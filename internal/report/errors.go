package report

import "errors"

var (
	// ErrInvalidDateRange is a client input error: a date does not parse,
	// the window is reversed or it spans more than MaxSpanDays.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrRepository means the underlying data could not be loaded.
	ErrRepository = errors.New("failed to generate report")
	// ErrInvalidUpdate rejects a submission without a person name.
	ErrInvalidUpdate = errors.New("invalid update")
	// ErrUnknownMember rejects a submission from someone not on the roster.
	ErrUnknownMember = errors.New("unknown team member")
)
