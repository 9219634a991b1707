// Package notify defines the outbound notification port. The core
// calls it after every state transition with an external-facing
// effect; the chat transport implements it and owns all user-facing
// text, rendering, and delivery.
package notify

import (
	"context"

	"github.com/wardshare/wardshare/pkg/models"
)

// Notifier is implemented by the external chat transport. Methods
// receive full records so the transport can format whatever it needs;
// the core never builds user-facing text.
type Notifier interface {
	// NotifyOwnerNewClaim tells the listing owner a claim arrived.
	NotifyOwnerNewClaim(ctx context.Context, l *models.Listing, c *models.Claim) error

	// NotifyClaimantDecision tells the claimant their claim was
	// approved or rejected; the decision is c.Status.
	NotifyClaimantDecision(ctx context.Context, l *models.Listing, c *models.Claim) error

	// NotifyClaimantRescheduleProposed sends the owner's
	// counter-proposed pickup time. c.RequestedPickup still holds the
	// original time at this point.
	NotifyClaimantRescheduleProposed(ctx context.Context, l *models.Listing, c *models.Claim, proposed string) error

	// NotifyOwnerRescheduleResponse tells the owner whether the
	// claimant accepted the proposed time.
	NotifyOwnerRescheduleResponse(ctx context.Context, l *models.Listing, c *models.Claim, accepted bool) error

	// NotifyOwnerClaimCancelled tells the owner the claimant withdrew.
	NotifyOwnerClaimCancelled(ctx context.Context, l *models.Listing, c *models.Claim) error

	// PublishOrUpdateListingPost creates or refreshes the outward
	// post for a listing and returns its external ref. An empty ref
	// with nil error means the ref is assigned asynchronously and
	// will arrive via ListingRegistry.AttachExternalRef.
	PublishOrUpdateListingPost(ctx context.Context, l *models.Listing) (string, error)
}

// Noop is the notifier used when no transport is attached.
type Noop struct{}

func (Noop) NotifyOwnerNewClaim(context.Context, *models.Listing, *models.Claim) error {
	return nil
}

func (Noop) NotifyClaimantDecision(context.Context, *models.Listing, *models.Claim) error {
	return nil
}

func (Noop) NotifyClaimantRescheduleProposed(context.Context, *models.Listing, *models.Claim, string) error {
	return nil
}

func (Noop) NotifyOwnerRescheduleResponse(context.Context, *models.Listing, *models.Claim, bool) error {
	return nil
}

func (Noop) NotifyOwnerClaimCancelled(context.Context, *models.Listing, *models.Claim) error {
	return nil
}

func (Noop) PublishOrUpdateListingPost(context.Context, *models.Listing) (string, error) {
	return "", nil
}
