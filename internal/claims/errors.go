package claims

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAvailable means the listing is not open for new claims
	// (fully committed or expired).
	ErrNotAvailable = errors.New("listing not available")

	// ErrInvalidState means the claim is not in the state the
	// operation requires. Typically a stale button press racing a
	// concurrent resolution; surfaced as "already handled".
	ErrInvalidState = errors.New("claim not in required state")

	// ErrInvalidQuantity means the requested quantity is not a
	// positive integer.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrNotClaimant means someone other than the original claimant
	// tried to withdraw a claim.
	ErrNotClaimant = errors.New("claim belongs to another requester")

	// ErrInsufficientStock is the target for errors.Is against
	// InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError carries the remaining quantity observed
// inside the failing transaction, so the requester can resubmit a
// smaller claim.
type InsufficientStockError struct {
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d remaining", e.Remaining)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
