// Package commands replaces the transport's ad-hoc string callback
// payloads with a tagged union of typed commands dispatched through
// the claim engine.
package commands

// Command is one strongly-typed claim action. The concrete types
// below form a closed set; Dispatcher routes each to the engine
// operation that implements it.
type Command interface {
	isCommand()
}

// SubmitClaim asks for a portion of a listing.
type SubmitClaim struct {
	ListingID  string
	ClaimantID string
	Qty        int
	PickupTime string
}

// Approve is the owner's acceptance of a pending claim.
type Approve struct {
	ListingID string
	ClaimID   string
}

// Reject is the owner's refusal of a pending claim.
type Reject struct {
	ListingID string
	ClaimID   string
}

// CancelClaim is the claimant withdrawing an undecided claim.
type CancelClaim struct {
	ListingID  string
	ClaimID    string
	ClaimantID string
}

// ProposeReschedule is the owner counter-proposing a pickup time.
type ProposeReschedule struct {
	ListingID string
	ClaimID   string
	NewTime   string
}

// RespondReschedule is the claimant's answer to a proposed time.
type RespondReschedule struct {
	ListingID string
	ClaimID   string
	Accept    bool
}

func (SubmitClaim) isCommand()       {}
func (Approve) isCommand()           {}
func (Reject) isCommand()            {}
func (CancelClaim) isCommand()       {}
func (ProposeReschedule) isCommand() {}
func (RespondReschedule) isCommand() {}
