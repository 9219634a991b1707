package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/wardshare/wardshare/pkg/models"
)

// Event is one recorded notification.
type Event struct {
	Kind      string
	ListingID string
	ClaimID   string
	Detail    string
}

// Recorder captures notifications in memory for tests. Its
// PublishOrUpdateListingPost returns a deterministic ref derived from
// the listing id so attach-once behavior can be asserted.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns just the event kinds, in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) NotifyOwnerNewClaim(_ context.Context, l *models.Listing, c *models.Claim) error {
	r.record(Event{Kind: "owner_new_claim", ListingID: l.ID, ClaimID: c.ID})
	return nil
}

func (r *Recorder) NotifyClaimantDecision(_ context.Context, l *models.Listing, c *models.Claim) error {
	r.record(Event{Kind: "claimant_decision", ListingID: l.ID, ClaimID: c.ID, Detail: string(c.Status)})
	return nil
}

func (r *Recorder) NotifyClaimantRescheduleProposed(_ context.Context, l *models.Listing, c *models.Claim, proposed string) error {
	r.record(Event{Kind: "claimant_reschedule_proposed", ListingID: l.ID, ClaimID: c.ID, Detail: proposed})
	return nil
}

func (r *Recorder) NotifyOwnerRescheduleResponse(_ context.Context, l *models.Listing, c *models.Claim, accepted bool) error {
	r.record(Event{Kind: "owner_reschedule_response", ListingID: l.ID, ClaimID: c.ID, Detail: fmt.Sprintf("%t", accepted)})
	return nil
}

func (r *Recorder) NotifyOwnerClaimCancelled(_ context.Context, l *models.Listing, c *models.Claim) error {
	r.record(Event{Kind: "owner_claim_cancelled", ListingID: l.ID, ClaimID: c.ID})
	return nil
}

func (r *Recorder) PublishOrUpdateListingPost(_ context.Context, l *models.Listing) (string, error) {
	r.record(Event{Kind: "publish_listing_post", ListingID: l.ID, Detail: string(l.Status)})
	return "post-" + l.ID, nil
}
