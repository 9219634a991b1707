package models

// IntakeDraft accumulates the answers of the listing intake flow.
// A draft belongs to exactly one authoring session and is discarded on
// commit, cancel, or session timeout; it is never persisted.
type IntakeDraft struct {
	OwnerID       string
	ItemName      string
	TotalQty      int
	QtyLabel      string // the answer as typed, e.g. "3 big boxes"
	SizeLabel     string
	ExpiryLabel   string
	LocationLabel string
	PhotoRef      string // empty when the photo step was skipped
}
