// Package models defines the shared data model for donated-item
// listings and the claims raised against them.
package models

import "time"

// ExpiryLayout is the canonical rendering of a listing's expiry date.
// Intake normalizes every accepted date answer to this form.
const ExpiryLayout = "02/01/06"

// ListingStatus represents the availability state of a listing.
// It is derived from the committed quantity, never set directly by
// callers; only expiry is marked externally.
type ListingStatus string

const (
	ListingStatusOpen           ListingStatus = "open"
	ListingStatusFullyCommitted ListingStatus = "fully_committed"
	ListingStatusExpired        ListingStatus = "expired"
)

// Listing is a donated-item posting with a finite, non-replenishable
// quantity. Claims is an append-only log in arrival order; the
// committed quantity is always derived from it, never stored.
type Listing struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	ItemName      string `json:"item_name"`
	QtyLabel      string `json:"qty_label"` // original free text, e.g. "10 boxes"
	SizeLabel     string `json:"size_label"`
	ExpiryLabel   string `json:"expiry_label"`
	LocationLabel string `json:"location_label"`
	PhotoRef      string `json:"photo_ref,omitempty"`

	TotalQty int           `json:"total_qty"`
	Claims   []Claim       `json:"claims"`
	Status   ListingStatus `json:"status"`

	// ExternalRef is the opaque handle to the outward-facing post,
	// set once after first publish. The core never interprets it.
	ExternalRef string `json:"external_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommittedQty returns the quantity bound to approved claims
// (including reschedule-accepted ones).
func (l *Listing) CommittedQty() int {
	total := 0
	for i := range l.Claims {
		if l.Claims[i].Status.Committed() {
			total += l.Claims[i].Qty
		}
	}
	return total
}

// Remaining returns the quantity still available for new approvals.
func (l *Listing) Remaining() int {
	return l.TotalQty - l.CommittedQty()
}

// ReservedQty returns the quantity held by claims still awaiting a
// decision. Undecided claims reserve stock so racing submissions
// cannot oversubscribe a listing; the reservation is released when
// the claim is rejected, declined, or cancelled.
func (l *Listing) ReservedQty() int {
	total := 0
	for i := range l.Claims {
		switch l.Claims[i].Status {
		case ClaimStatusPending, ClaimStatusReschedulePending:
			total += l.Claims[i].Qty
		}
	}
	return total
}

// AvailableQty returns the quantity a new claim may request: total
// minus committed minus reserved.
func (l *Listing) AvailableQty() int {
	return l.TotalQty - l.CommittedQty() - l.ReservedQty()
}

// ExpiredAsOf reports whether the listing's expiry date has passed at
// time t. The item stays available through the whole expiry day. A
// label that is not a date ("N/A", legacy free text) never expires by
// date.
func (l *Listing) ExpiredAsOf(t time.Time) bool {
	d, err := time.Parse(ExpiryLayout, l.ExpiryLabel)
	if err != nil {
		return false
	}
	return !t.Before(d.AddDate(0, 0, 1))
}

// Claim returns the claim with the given id, or nil.
func (l *Listing) Claim(id string) *Claim {
	for i := range l.Claims {
		if l.Claims[i].ID == id {
			return &l.Claims[i]
		}
	}
	return nil
}

// RecomputeStatus re-derives the listing status from the claim log.
// Expired is sticky: an expired listing stays expired even if a claim
// is later declined.
func (l *Listing) RecomputeStatus() {
	if l.Status == ListingStatusExpired {
		return
	}
	if l.Remaining() <= 0 {
		l.Status = ListingStatusFullyCommitted
	} else {
		l.Status = ListingStatusOpen
	}
}

// Clone returns a deep copy of the listing. Stores hand clones to
// transaction callbacks so an aborted transaction cannot leak partial
// mutations into shared state.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	cp := *l
	cp.Claims = make([]Claim, len(l.Claims))
	copy(cp.Claims, l.Claims)
	for i := range cp.Claims {
		if h := l.Claims[i].History; h != nil {
			cp.Claims[i].History = make([]StatusChange, len(h))
			copy(cp.Claims[i].History, h)
		}
	}
	return &cp
}
