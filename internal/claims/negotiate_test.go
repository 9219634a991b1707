package claims

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wardshare/wardshare/internal/notify"
	"github.com/wardshare/wardshare/internal/registry"
	"github.com/wardshare/wardshare/internal/store"
	"github.com/wardshare/wardshare/pkg/models"
)

func TestProposeNewTime(t *testing.T) {
	e, reg, rec, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 3)

	if err := e.ProposeNewTime(ctx, id, claimID, "Friday 2-4 pm"); err != nil {
		t.Fatalf("ProposeNewTime: %v", err)
	}

	c := getClaim(t, reg, id, claimID)
	if c.Status != models.ClaimStatusReschedulePending {
		t.Errorf("Status = %q, want reschedule_pending", c.Status)
	}
	if c.ProposedPickup != "Friday 2-4 pm" {
		t.Errorf("ProposedPickup = %q", c.ProposedPickup)
	}
	if c.RequestedPickup != "Tomorrow 3-5 pm" {
		t.Errorf("RequestedPickup = %q, original time must be kept", c.RequestedPickup)
	}

	events := rec.Events()
	last := events[len(events)-1]
	if last.Kind != "claimant_reschedule_proposed" || last.Detail != "Friday 2-4 pm" {
		t.Errorf("last event = %+v, want reschedule proposal", last)
	}
}

func TestProposeNewTimeOnlyPending(t *testing.T) {
	e, _, _, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 3)

	if err := e.Approve(ctx, id, claimID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := e.ProposeNewTime(ctx, id, claimID, "later"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ProposeNewTime on approved = %v, want ErrInvalidState", err)
	}
}

func TestRescheduleAccept(t *testing.T) {
	e, reg, rec, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 5)

	if err := e.ProposeNewTime(ctx, id, claimID, "Friday 2-4 pm"); err != nil {
		t.Fatalf("ProposeNewTime: %v", err)
	}
	if err := e.RespondToReschedule(ctx, id, claimID, true); err != nil {
		t.Fatalf("RespondToReschedule: %v", err)
	}

	l, _ := reg.Get(ctx, id)
	c := l.Claim(claimID)
	if c.Status != models.ClaimStatusRescheduleAccepted {
		t.Errorf("Status = %q, want reschedule_accepted", c.Status)
	}
	if c.RequestedPickup != "Friday 2-4 pm" || c.ProposedPickup != "" {
		t.Errorf("pickup = %q / proposed = %q, want proposal promoted and cleared", c.RequestedPickup, c.ProposedPickup)
	}
	if l.CommittedQty() != 5 {
		t.Errorf("CommittedQty = %d, accepted reschedule must commit", l.CommittedQty())
	}
	if l.Status != models.ListingStatusFullyCommitted {
		t.Errorf("Status = %q, want fully_committed", l.Status)
	}

	kinds := rec.Kinds()
	tail := kinds[len(kinds)-3:]
	want := []string{"owner_reschedule_response", "claimant_decision", "publish_listing_post"}
	for i := range want {
		if tail[i] != want[i] {
			t.Errorf("tail[%d] = %q, want %q", i, tail[i], want[i])
		}
	}
}

func TestRescheduleDecline(t *testing.T) {
	e, reg, rec, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 5)

	if err := e.ProposeNewTime(ctx, id, claimID, "Friday 2-4 pm"); err != nil {
		t.Fatalf("ProposeNewTime: %v", err)
	}
	if err := e.RespondToReschedule(ctx, id, claimID, false); err != nil {
		t.Fatalf("RespondToReschedule: %v", err)
	}

	l, _ := reg.Get(ctx, id)
	c := l.Claim(claimID)
	if c.Status != models.ClaimStatusRescheduleDeclined {
		t.Errorf("Status = %q, want reschedule_declined", c.Status)
	}
	if c.ProposedPickup != "" {
		t.Errorf("ProposedPickup = %q, want cleared", c.ProposedPickup)
	}
	if l.CommittedQty() != 0 {
		t.Errorf("CommittedQty = %d, decline must not commit", l.CommittedQty())
	}

	// The slot is free again for anyone.
	if _, err := e.Submit(ctx, id, "bob", 5, "t"); err != nil {
		t.Errorf("Submit after decline = %v, want success", err)
	}

	kinds := rec.Kinds()
	if kinds[len(kinds)-2] != "owner_reschedule_response" {
		t.Errorf("kinds = %v, decline must notify only the owner", kinds)
	}
}

func TestRespondToRescheduleStaleAction(t *testing.T) {
	e, _, _, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 3)

	// No proposal outstanding.
	if err := e.RespondToReschedule(ctx, id, claimID, true); !errors.Is(err, ErrInvalidState) {
		t.Errorf("respond without proposal = %v, want ErrInvalidState", err)
	}

	if err := e.ProposeNewTime(ctx, id, claimID, "later"); err != nil {
		t.Fatalf("ProposeNewTime: %v", err)
	}
	if err := e.RespondToReschedule(ctx, id, claimID, false); err != nil {
		t.Fatalf("decline: %v", err)
	}
	// A duplicate button press after the decline resolved.
	if err := e.RespondToReschedule(ctx, id, claimID, true); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second response = %v, want ErrInvalidState", err)
	}
}

func TestRescheduleAcceptLosesStockRace(t *testing.T) {
	m := store.NewMemory()
	reg := registry.New(m)
	e := NewEngine(m, reg, notify.NewRecorder())
	ctx := context.Background()

	id, err := reg.Create(ctx, models.IntakeDraft{
		OwnerID: "owner-1", ItemName: "Hand Sanitiser", TotalQty: 5, LocationLabel: "Ward 5",
	})
	if err != nil {
		t.Fatalf("Create listing: %v", err)
	}
	claimID := mustSubmit(t, e, id, "alice", 4)
	if err := e.ProposeNewTime(ctx, id, claimID, "later"); err != nil {
		t.Fatalf("ProposeNewTime: %v", err)
	}

	// Commit a competing claim behind the engine's back, shrinking the
	// remaining stock below alice's quantity.
	_, err = m.Transact(ctx, id, func(cur *models.Listing) (*models.Listing, error) {
		now := time.Now().UTC()
		c := models.Claim{ID: "backfill", ClaimantID: "bob", Qty: 2, CreatedAt: now}
		c.SetStatus(models.ClaimStatusApproved, now)
		cur.Claims = append(cur.Claims, c)
		return cur, nil
	})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}

	// Only 3 left; alice's 4 can no longer be committed.
	var stockErr *InsufficientStockError
	if err := e.RespondToReschedule(ctx, id, claimID, true); !errors.As(err, &stockErr) {
		t.Fatalf("accept = %v, want InsufficientStockError", err)
	}
	if stockErr.Remaining != 3 {
		t.Errorf("Remaining = %d, want 3", stockErr.Remaining)
	}
}

func TestClaimantCanCancelDuringReschedule(t *testing.T) {
	e, reg, _, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 3)

	if err := e.ProposeNewTime(ctx, id, claimID, "later"); err != nil {
		t.Fatalf("ProposeNewTime: %v", err)
	}
	if err := e.CancelByClaimant(ctx, id, claimID, "alice"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	c := getClaim(t, reg, id, claimID)
	if c.Status != models.ClaimStatusCancelled {
		t.Errorf("Status = %q, want cancelled", c.Status)
	}
	if c.ProposedPickup != "" {
		t.Errorf("ProposedPickup = %q, want cleared", c.ProposedPickup)
	}
}
