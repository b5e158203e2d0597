package domain

import "errors"

var (
	// ErrInvalidDate marks a target date that is not a valid calendar date.
	ErrInvalidDate = errors.New("invalid target date")

	// ErrInvalidConfig marks an aggregation config with an impossible window
	// or history requirement.
	ErrInvalidConfig = errors.New("invalid aggregation config")
)
