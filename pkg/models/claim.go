package models

import "time"

// ClaimStatus represents the lifecycle state of a claim.
type ClaimStatus string

const (
	ClaimStatusPending            ClaimStatus = "pending"
	ClaimStatusApproved           ClaimStatus = "approved"
	ClaimStatusRejected           ClaimStatus = "rejected"
	ClaimStatusReschedulePending  ClaimStatus = "reschedule_pending"
	ClaimStatusRescheduleAccepted ClaimStatus = "reschedule_accepted"
	ClaimStatusRescheduleDeclined ClaimStatus = "reschedule_declined"
	ClaimStatusCancelled          ClaimStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible from s.
func (s ClaimStatus) Terminal() bool {
	switch s {
	case ClaimStatusApproved, ClaimStatusRejected, ClaimStatusRescheduleAccepted,
		ClaimStatusRescheduleDeclined, ClaimStatusCancelled:
		return true
	}
	return false
}

// Committed reports whether a claim in this state counts against the
// listing's total quantity. RescheduleAccepted is a variant of Approved
// for quantity accounting.
func (s ClaimStatus) Committed() bool {
	return s == ClaimStatusApproved || s == ClaimStatusRescheduleAccepted
}

// StatusChange is one audit entry in a claim's history.
type StatusChange struct {
	Status ClaimStatus `json:"status"`
	At     time.Time   `json:"at"`
}

// Claim is one requester's attempt to take a portion of a listing.
// Claims are appended to a listing in arrival order and never removed;
// only their status changes.
type Claim struct {
	ID              string      `json:"id"`
	ClaimantID      string      `json:"claimant_id"`
	Qty             int         `json:"qty"`
	RequestedPickup string      `json:"requested_pickup"`
	// ProposedPickup holds the owner's counter-proposed time while the
	// claim is reschedule_pending. On acceptance it replaces
	// RequestedPickup.
	ProposedPickup string         `json:"proposed_pickup,omitempty"`
	Status         ClaimStatus    `json:"status"`
	History        []StatusChange `json:"history"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// SetStatus moves the claim to status s and appends an audit entry.
// Callers are responsible for checking the transition is legal.
func (c *Claim) SetStatus(s ClaimStatus, now time.Time) {
	c.Status = s
	c.UpdatedAt = now
	c.History = append(c.History, StatusChange{Status: s, At: now})
}
