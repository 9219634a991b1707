// Package claims implements the reconciliation core: claim
// submission, owner decisions, and the pickup-time negotiation. Every
// mutation runs as one store transaction that re-derives remaining
// stock from the claim log, so two racing over-subscribing operations
// can never both commit.
package claims

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/wardshare/wardshare/internal/notify"
	"github.com/wardshare/wardshare/internal/registry"
	"github.com/wardshare/wardshare/internal/store"
	"github.com/wardshare/wardshare/pkg/models"
)

// Engine applies claim state transitions atomically and fires the
// notification side effects after each successful commit.
type Engine struct {
	store    store.Store
	registry *registry.Registry
	notifier notify.Notifier
}

// NewEngine creates an Engine. The registry must wrap the same store.
func NewEngine(s store.Store, r *registry.Registry, n notify.Notifier) *Engine {
	return &Engine{store: s, registry: r, notifier: n}
}

// Submit appends a pending claim to an open listing. The stock check
// runs inside the transaction, so it re-runs against the fresh claim
// log whenever the commit loses a race.
func (e *Engine) Submit(ctx context.Context, listingID, claimantID string, qty int, pickupTime string) (string, error) {
	if qty < 1 {
		return "", ErrInvalidQuantity
	}

	claimID := uuid.NewString()
	committed, err := store.Update(ctx, e.store, listingID, func(cur *models.Listing) (*models.Listing, error) {
		if cur == nil {
			return nil, store.ErrNotFound
		}
		if cur.Status != models.ListingStatusOpen {
			return nil, ErrNotAvailable
		}
		// Undecided claims reserve stock, so two racing submissions
		// cannot both pass this check past the true availability.
		available := cur.AvailableQty()
		if qty > available {
			return nil, &InsufficientStockError{Remaining: available}
		}

		now := time.Now().UTC()
		claim := models.Claim{
			ID:              claimID,
			ClaimantID:      claimantID,
			Qty:             qty,
			RequestedPickup: pickupTime,
			CreatedAt:       now,
		}
		claim.SetStatus(models.ClaimStatusPending, now)
		cur.Claims = append(cur.Claims, claim)
		cur.UpdatedAt = now
		return cur, nil
	})
	if err != nil {
		return "", err
	}

	if err := e.notifier.NotifyOwnerNewClaim(ctx, committed, committed.Claim(claimID)); err != nil {
		log.Printf("claims: notify owner of new claim %s: %v", claimID, err)
	}
	return claimID, nil
}

// Approve commits the claim's quantity. Remaining stock is re-derived
// excluding the target claim inside the transaction; approval can
// still fail with insufficient stock if other claims were approved in
// the interim. That is the race the transaction exists to close.
func (e *Engine) Approve(ctx context.Context, listingID, claimID string) error {
	committed, err := store.Update(ctx, e.store, listingID, func(cur *models.Listing) (*models.Listing, error) {
		claim, err := findClaim(cur, claimID)
		if err != nil {
			return nil, err
		}
		if claim.Status != models.ClaimStatusPending {
			return nil, ErrInvalidState
		}
		remaining := cur.Remaining()
		if claim.Qty > remaining {
			return nil, &InsufficientStockError{Remaining: remaining}
		}

		now := time.Now().UTC()
		claim.SetStatus(models.ClaimStatusApproved, now)
		cur.UpdatedAt = now
		cur.RecomputeStatus()
		return cur, nil
	})
	if err != nil {
		return err
	}

	if err := e.notifier.NotifyClaimantDecision(ctx, committed, committed.Claim(claimID)); err != nil {
		log.Printf("claims: notify claimant of approval %s: %v", claimID, err)
	}
	e.publish(ctx, committed)
	return nil
}

// Reject declines a pending claim. Already-decided claims are
// immutable, so a duplicate reject fails with ErrInvalidState instead
// of silently succeeding.
func (e *Engine) Reject(ctx context.Context, listingID, claimID string) error {
	committed, err := store.Update(ctx, e.store, listingID, func(cur *models.Listing) (*models.Listing, error) {
		claim, err := findClaim(cur, claimID)
		if err != nil {
			return nil, err
		}
		if claim.Status != models.ClaimStatusPending {
			return nil, ErrInvalidState
		}
		now := time.Now().UTC()
		claim.SetStatus(models.ClaimStatusRejected, now)
		cur.UpdatedAt = now
		return cur, nil
	})
	if err != nil {
		return err
	}

	if err := e.notifier.NotifyClaimantDecision(ctx, committed, committed.Claim(claimID)); err != nil {
		log.Printf("claims: notify claimant of rejection %s: %v", claimID, err)
	}
	return nil
}

// CancelByClaimant withdraws a claim that has not been decided yet.
// Only the original claimant may cancel, and only while the claim is
// pending or reschedule-pending. Losing a race to a concurrent
// approval surfaces as ErrInvalidState, same as any stale action.
func (e *Engine) CancelByClaimant(ctx context.Context, listingID, claimID, claimantID string) error {
	committed, err := store.Update(ctx, e.store, listingID, func(cur *models.Listing) (*models.Listing, error) {
		claim, err := findClaim(cur, claimID)
		if err != nil {
			return nil, err
		}
		if claim.ClaimantID != claimantID {
			return nil, ErrNotClaimant
		}
		if claim.Status != models.ClaimStatusPending && claim.Status != models.ClaimStatusReschedulePending {
			return nil, ErrInvalidState
		}
		now := time.Now().UTC()
		claim.SetStatus(models.ClaimStatusCancelled, now)
		claim.ProposedPickup = ""
		cur.UpdatedAt = now
		return cur, nil
	})
	if err != nil {
		return err
	}

	if err := e.notifier.NotifyOwnerClaimCancelled(ctx, committed, committed.Claim(claimID)); err != nil {
		log.Printf("claims: notify owner of cancellation %s: %v", claimID, err)
	}
	return nil
}

// publish refreshes the outward post after a remaining-quantity or
// status change and attaches the returned ref if the listing has none
// yet. Publish failures are logged, not surfaced: the committed state
// is already durable and the post can be refreshed on the next change.
func (e *Engine) publish(ctx context.Context, l *models.Listing) {
	ref, err := e.notifier.PublishOrUpdateListingPost(ctx, l)
	if err != nil {
		log.Printf("claims: publish listing %s: %v", l.ID, err)
		return
	}
	if ref == "" || l.ExternalRef != "" {
		return
	}
	if err := e.registry.AttachExternalRef(ctx, l.ID, ref); err != nil {
		log.Printf("claims: attach external ref for %s: %v", l.ID, err)
	}
}

// findClaim locates a claim inside the transaction callback. A nil
// listing or unknown claim id both surface as store.ErrNotFound.
func findClaim(cur *models.Listing, claimID string) (*models.Claim, error) {
	if cur == nil {
		return nil, store.ErrNotFound
	}
	claim := cur.Claim(claimID)
	if claim == nil {
		return nil, store.ErrNotFound
	}
	return claim, nil
}
