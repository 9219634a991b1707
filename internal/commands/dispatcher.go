package commands

import (
	"context"
	"fmt"

	"github.com/wardshare/wardshare/internal/claims"
)

// Result is what a dispatched command produced. Only SubmitClaim
// yields a claim id; every other command reports success through a
// nil error alone.
type Result struct {
	ClaimID string
}

// Dispatcher routes typed commands into the claim engine.
type Dispatcher struct {
	engine *claims.Engine
}

// NewDispatcher creates a Dispatcher over the given engine.
func NewDispatcher(e *claims.Engine) *Dispatcher {
	return &Dispatcher{engine: e}
}

// Dispatch executes one command. Errors are the engine's taxonomy,
// unchanged, so the transport can map them to user-facing replies.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case SubmitClaim:
		id, err := d.engine.Submit(ctx, c.ListingID, c.ClaimantID, c.Qty, c.PickupTime)
		return Result{ClaimID: id}, err
	case Approve:
		return Result{}, d.engine.Approve(ctx, c.ListingID, c.ClaimID)
	case Reject:
		return Result{}, d.engine.Reject(ctx, c.ListingID, c.ClaimID)
	case CancelClaim:
		return Result{}, d.engine.CancelByClaimant(ctx, c.ListingID, c.ClaimID, c.ClaimantID)
	case ProposeReschedule:
		return Result{}, d.engine.ProposeNewTime(ctx, c.ListingID, c.ClaimID, c.NewTime)
	case RespondReschedule:
		return Result{}, d.engine.RespondToReschedule(ctx, c.ListingID, c.ClaimID, c.Accept)
	}
	return Result{}, fmt.Errorf("%w: %T", ErrBadPayload, cmd)
}
