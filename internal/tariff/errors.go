package tariff

import "errors"

var (
	// ErrInvalidInput is returned for negative, NaN or infinite consumption.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCategory is returned when no schedule exists for a category.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidSchedule is returned when bands are not contiguous and ascending.
	ErrInvalidSchedule = errors.New("invalid schedule")
)
