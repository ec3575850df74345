package crawler

import "errors"

// Errors returned by Engine.Run before any page is fetched. Per-page failures
// are never returned; they are recorded in the result instead.
var (
	// ErrInvalidSeed is returned when the seed is not an absolute URL with a
	// scheme and a host.
	ErrInvalidSeed = errors.New("invalid seed URL: scheme and host are required")

	// ErrInvalidBudget is returned when the page budget is less than one.
	ErrInvalidBudget = errors.New("invalid page budget: must be at least 1")

	// ErrInvalidPattern is returned when an ignore or follow pattern does not compile.
	ErrInvalidPattern = errors.New("invalid URL pattern")
)
