package types

import "errors"

var (
	// ErrEmptyTitle indicates a memory record without a title.
	ErrEmptyTitle = errors.New("memory title is required")

	// ErrMissingDates indicates a memory record without a start or end date.
	ErrMissingDates = errors.New("memory start and end dates are required")
)
