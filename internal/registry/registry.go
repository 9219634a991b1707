// Package registry owns listing creation and the listing-level
// transitions that are not claim accounting: external ref attachment
// and expiry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wardshare/wardshare/internal/notify"
	"github.com/wardshare/wardshare/internal/store"
	"github.com/wardshare/wardshare/pkg/models"
)

// ErrValidation is returned when a draft is missing required fields or
// carries a non-positive quantity. Validation failures are surfaced
// immediately and never retried.
var ErrValidation = errors.New("invalid listing draft")

// Registry provides CRUD over listings on top of the atomic store.
type Registry struct {
	store store.Store
}

// New creates a Registry backed by s.
func New(s store.Store) *Registry {
	return &Registry{store: s}
}

// Create validates the draft, assigns an id, and writes the new
// listing. A plain put is enough here: the id is fresh, so no
// concurrent writer can exist before the first claim.
func (r *Registry) Create(ctx context.Context, draft models.IntakeDraft) (string, error) {
	if draft.TotalQty <= 0 {
		return "", fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if strings.TrimSpace(draft.ItemName) == "" {
		return "", fmt.Errorf("%w: item name is required", ErrValidation)
	}
	if strings.TrimSpace(draft.LocationLabel) == "" {
		return "", fmt.Errorf("%w: pickup location is required", ErrValidation)
	}

	now := time.Now().UTC()
	qtyLabel := draft.QtyLabel
	if qtyLabel == "" {
		qtyLabel = fmt.Sprintf("%d", draft.TotalQty)
	}

	l := &models.Listing{
		ID:            uuid.NewString(),
		OwnerID:       draft.OwnerID,
		ItemName:      draft.ItemName,
		QtyLabel:      qtyLabel,
		SizeLabel:     draft.SizeLabel,
		ExpiryLabel:   draft.ExpiryLabel,
		LocationLabel: draft.LocationLabel,
		PhotoRef:      draft.PhotoRef,
		TotalQty:      draft.TotalQty,
		Claims:        []models.Claim{},
		Status:        models.ListingStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.store.Put(ctx, l); err != nil {
		return "", fmt.Errorf("creating listing: %w", err)
	}
	return l.ID, nil
}

// Get returns the listing with the given id, or store.ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*models.Listing, error) {
	return r.store.Get(ctx, id)
}

// AttachExternalRef records the outward post handle, only if none is
// set yet. Re-delivery of the same attach is a no-op, so the transport
// can retry freely.
func (r *Registry) AttachExternalRef(ctx context.Context, id, ref string) error {
	if ref == "" {
		return fmt.Errorf("%w: empty external ref", ErrValidation)
	}
	_, err := store.Update(ctx, r.store, id, func(cur *models.Listing) (*models.Listing, error) {
		if cur == nil {
			return nil, store.ErrNotFound
		}
		if cur.ExternalRef != "" {
			// already attached; keep the first ref
			return cur, nil
		}
		cur.ExternalRef = ref
		cur.UpdatedAt = time.Now().UTC()
		return cur, nil
	})
	return err
}

// MarkExpired transitions an open listing to expired. A fully
// committed listing stays fully committed: commitment wins over
// expiry. Marking an already expired listing is a no-op.
func (r *Registry) MarkExpired(ctx context.Context, id string) error {
	_, err := store.Update(ctx, r.store, id, func(cur *models.Listing) (*models.Listing, error) {
		if cur == nil {
			return nil, store.ErrNotFound
		}
		if cur.Status != models.ListingStatusOpen {
			return cur, nil
		}
		cur.Status = models.ListingStatusExpired
		cur.UpdatedAt = time.Now().UTC()
		return cur, nil
	})
	return err
}

// ExpireOverdue marks every open listing whose expiry date has passed
// as of now, refreshing the outward post for each one, and returns how
// many were marked. One listing failing does not stop the sweep.
func (r *Registry) ExpireOverdue(ctx context.Context, now time.Time, n notify.Notifier) (int, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range all {
		l := &all[i]
		if l.Status != models.ListingStatusOpen || !l.ExpiredAsOf(now) {
			continue
		}
		if err := r.MarkExpired(ctx, l.ID); err != nil {
			log.Printf("registry: expire %s failed: %v", l.ID, err)
			continue
		}
		expired++

		fresh, err := r.Get(ctx, l.ID)
		if err != nil {
			log.Printf("registry: reload expired %s failed: %v", l.ID, err)
			continue
		}
		if _, err := n.PublishOrUpdateListingPost(ctx, fresh); err != nil {
			log.Printf("registry: publish expired %s failed: %v", l.ID, err)
		}
	}
	return expired, nil
}

// ListActive returns open listings that still have stock, oldest
// first.
func (r *Registry) ListActive(ctx context.Context) ([]models.Listing, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var active []models.Listing
	for _, l := range all {
		if l.Status == models.ListingStatusOpen && l.Remaining() > 0 {
			active = append(active, l)
		}
	}
	// Backends do not all order List by creation time.
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	return active, nil
}

// RepublishActive re-announces every active listing through the
// notification port. Used by admins to bump unclaimed listings; a
// failure on one listing does not stop the rest.
func (r *Registry) RepublishActive(ctx context.Context, n notify.Notifier) (int, error) {
	active, err := r.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	bumped := 0
	for i := range active {
		l := active[i]
		ref, err := n.PublishOrUpdateListingPost(ctx, &l)
		if err != nil {
			log.Printf("registry: republish %s failed: %v", l.ID, err)
			continue
		}
		if ref != "" && l.ExternalRef == "" {
			if err := r.AttachExternalRef(ctx, l.ID, ref); err != nil {
				log.Printf("registry: attach ref for %s failed: %v", l.ID, err)
			}
		}
		bumped++
	}
	return bumped, nil
}
