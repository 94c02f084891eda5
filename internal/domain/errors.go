package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the board core. The HTTP layer maps them to status codes.
var (
	// ErrInvalidPayload is returned when a required field is missing.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidValue is returned for a numeric value of the wrong type or range.
	ErrInvalidValue = errors.New("invalid value")

	// ErrNotFound is returned when no token has the requested symbol.
	ErrNotFound = errors.New("token not found")

	// ErrDuplicateSymbol is returned when submitting a symbol that already exists.
	ErrDuplicateSymbol = errors.New("token symbol already exists")

	// ErrRateLimited is matched by *RateLimitError.
	ErrRateLimited = errors.New("rate limited")

	// ErrStorageUnavailable is returned when persistence fails.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// RateLimitError reports a vote rejected inside the per-voter TTL window.
type RateLimitError struct {
	Symbol         string
	HoursRemaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit: wait %dh before voting for %s", e.HoursRemaining, e.Symbol)
}

// Is reports ErrRateLimited as a match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
