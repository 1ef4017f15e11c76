package ranking

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of
// them, so callers can branch with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
	ErrUnavailable      = errors.New("unavailable")
)

// Specific errors.
var (
	ErrBeerNotFound  = fmt.Errorf("beer %w", ErrNotFound)
	ErrListNotFound  = fmt.Errorf("list %w", ErrNotFound)
	ErrEntryNotFound = fmt.Errorf("list entry %w", ErrNotFound)

	ErrMissingOwner     = fmt.Errorf("%w: owner is required", ErrInvalidArgument)
	ErrMissingBeer      = fmt.Errorf("%w: beer id is required", ErrInvalidArgument)
	ErrInvalidWinner    = fmt.Errorf("%w: winner must be one of the compared beers", ErrInvalidArgument)
	ErrSameBeer         = fmt.Errorf("%w: a beer cannot be compared with itself", ErrInvalidArgument)
	ErrStepConsumed     = fmt.Errorf("%w: comparison step already submitted", ErrInvalidArgument)
	ErrSessionExhausted = fmt.Errorf("%w: session has no pending comparison", ErrInvalidArgument)
	ErrSessionMismatch  = fmt.Errorf("%w: session belongs to another list", ErrInvalidArgument)
	ErrInvalidBeer      = fmt.Errorf("%w: name, brewery and type are required", ErrInvalidArgument)

	ErrOwnerMismatch = fmt.Errorf("%w: list belongs to another owner", ErrPermissionDenied)

	ErrDuplicateEntry = fmt.Errorf("%w: beer already in list", ErrConflict)
	ErrDuplicateBeer  = fmt.Errorf("%w: beer already in catalog", ErrConflict)

	ErrNilDependency = errors.New("ranking: nil dependency")
)
