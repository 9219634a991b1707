package claims

import (
	"context"
	"log"
	"time"

	"github.com/wardshare/wardshare/internal/store"
	"github.com/wardshare/wardshare/pkg/models"
)

// ProposeNewTime is the owner's counter-proposal to a pending claim.
// The claim moves to reschedule_pending and holds the proposed time
// until the claimant responds; the original requested time is kept so
// the claimant sees both.
func (e *Engine) ProposeNewTime(ctx context.Context, listingID, claimID, newTime string) error {
	committed, err := store.Update(ctx, e.store, listingID, func(cur *models.Listing) (*models.Listing, error) {
		claim, err := findClaim(cur, claimID)
		if err != nil {
			return nil, err
		}
		if claim.Status != models.ClaimStatusPending {
			return nil, ErrInvalidState
		}
		now := time.Now().UTC()
		claim.ProposedPickup = newTime
		claim.SetStatus(models.ClaimStatusReschedulePending, now)
		cur.UpdatedAt = now
		return cur, nil
	})
	if err != nil {
		return err
	}

	if err := e.notifier.NotifyClaimantRescheduleProposed(ctx, committed, committed.Claim(claimID), newTime); err != nil {
		log.Printf("claims: notify claimant of reschedule proposal %s: %v", claimID, err)
	}
	return nil
}

// RespondToReschedule resolves the claimant's answer to a proposed
// time. Accepting behaves like Approve, with the same stock race
// check inside the transaction, except the requested pickup is
// replaced by the proposed time and the final status is
// reschedule_accepted. Declining is terminal and leaves the committed
// quantity untouched, freeing the slot for a new claim from anyone,
// including the same claimant resubmitting.
func (e *Engine) RespondToReschedule(ctx context.Context, listingID, claimID string, accept bool) error {
	committed, err := store.Update(ctx, e.store, listingID, func(cur *models.Listing) (*models.Listing, error) {
		claim, err := findClaim(cur, claimID)
		if err != nil {
			return nil, err
		}
		if claim.Status != models.ClaimStatusReschedulePending {
			return nil, ErrInvalidState
		}

		now := time.Now().UTC()
		if !accept {
			claim.ProposedPickup = ""
			claim.SetStatus(models.ClaimStatusRescheduleDeclined, now)
			cur.UpdatedAt = now
			return cur, nil
		}

		remaining := cur.Remaining()
		if claim.Qty > remaining {
			return nil, &InsufficientStockError{Remaining: remaining}
		}
		claim.RequestedPickup = claim.ProposedPickup
		claim.ProposedPickup = ""
		claim.SetStatus(models.ClaimStatusRescheduleAccepted, now)
		cur.UpdatedAt = now
		cur.RecomputeStatus()
		return cur, nil
	})
	if err != nil {
		return err
	}

	claim := committed.Claim(claimID)
	if err := e.notifier.NotifyOwnerRescheduleResponse(ctx, committed, claim, accept); err != nil {
		log.Printf("claims: notify owner of reschedule response %s: %v", claimID, err)
	}
	if accept {
		if err := e.notifier.NotifyClaimantDecision(ctx, committed, claim); err != nil {
			log.Printf("claims: notify claimant of reschedule confirmation %s: %v", claimID, err)
		}
		e.publish(ctx, committed)
	}
	return nil
}
