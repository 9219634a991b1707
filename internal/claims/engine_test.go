package claims

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/wardshare/wardshare/internal/notify"
	"github.com/wardshare/wardshare/internal/registry"
	"github.com/wardshare/wardshare/internal/store"
	"github.com/wardshare/wardshare/pkg/models"
)

func setupEngine(t *testing.T, totalQty int) (*Engine, *registry.Registry, *notify.Recorder, string) {
	t.Helper()
	m := store.NewMemory()
	reg := registry.New(m)
	rec := notify.NewRecorder()
	e := NewEngine(m, reg, rec)

	id, err := reg.Create(context.Background(), models.IntakeDraft{
		OwnerID:       "owner-1",
		ItemName:      "Hand Sanitiser",
		TotalQty:      totalQty,
		LocationLabel: "Ward 5",
	})
	if err != nil {
		t.Fatalf("Create listing: %v", err)
	}
	return e, reg, rec, id
}

func mustSubmit(t *testing.T, e *Engine, listingID, claimant string, qty int) string {
	t.Helper()
	claimID, err := e.Submit(context.Background(), listingID, claimant, qty, "Tomorrow 3-5 pm")
	if err != nil {
		t.Fatalf("Submit(%s, %d): %v", claimant, qty, err)
	}
	return claimID
}

func getClaim(t *testing.T, reg *registry.Registry, listingID, claimID string) *models.Claim {
	t.Helper()
	l, err := reg.Get(context.Background(), listingID)
	if err != nil {
		t.Fatalf("Get listing: %v", err)
	}
	c := l.Claim(claimID)
	if c == nil {
		t.Fatalf("claim %s not found", claimID)
	}
	return c
}

func TestSubmit(t *testing.T) {
	e, reg, rec, id := setupEngine(t, 5)

	claimID := mustSubmit(t, e, id, "alice", 3)

	c := getClaim(t, reg, id, claimID)
	if c.Status != models.ClaimStatusPending {
		t.Errorf("Status = %q, want pending", c.Status)
	}
	if c.RequestedPickup != "Tomorrow 3-5 pm" {
		t.Errorf("RequestedPickup = %q", c.RequestedPickup)
	}
	if len(c.History) != 1 || c.History[0].Status != models.ClaimStatusPending {
		t.Errorf("History = %+v, want single pending entry", c.History)
	}

	kinds := rec.Kinds()
	if len(kinds) != 1 || kinds[0] != "owner_new_claim" {
		t.Errorf("notifications = %v, want owner_new_claim", kinds)
	}
}

func TestSubmitErrors(t *testing.T) {
	e, _, _, id := setupEngine(t, 5)
	ctx := context.Background()

	if _, err := e.Submit(ctx, id, "alice", 0, "t"); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("qty 0 = %v, want ErrInvalidQuantity", err)
	}
	if _, err := e.Submit(ctx, "missing", "alice", 1, "t"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing listing = %v, want ErrNotFound", err)
	}

	var stockErr *InsufficientStockError
	if _, err := e.Submit(ctx, id, "alice", 6, "t"); !errors.As(err, &stockErr) {
		t.Fatalf("qty 6 = %v, want InsufficientStockError", err)
	} else if stockErr.Remaining != 5 {
		t.Errorf("Remaining = %d, want 5", stockErr.Remaining)
	}
}

func TestSubmitAgainstExpiredListing(t *testing.T) {
	e, reg, _, id := setupEngine(t, 5)
	ctx := context.Background()

	if err := reg.MarkExpired(ctx, id); err != nil {
		t.Fatalf("MarkExpired: %v", err)
	}
	if _, err := e.Submit(ctx, id, "alice", 1, "t"); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Submit = %v, want ErrNotAvailable", err)
	}
}

func TestPendingClaimsReserveStock(t *testing.T) {
	e, _, _, id := setupEngine(t, 5)
	ctx := context.Background()

	mustSubmit(t, e, id, "alice", 3)

	// The pending claim holds its quantity, so a second claim can
	// only take what is genuinely left.
	var stockErr *InsufficientStockError
	if _, err := e.Submit(ctx, id, "bob", 4, "t"); !errors.As(err, &stockErr) {
		t.Fatalf("Submit = %v, want InsufficientStockError", err)
	}
	if stockErr.Remaining != 2 {
		t.Errorf("Remaining = %d, want 2", stockErr.Remaining)
	}

	if _, err := e.Submit(ctx, id, "bob", 2, "t"); err != nil {
		t.Errorf("Submit within reserve = %v, want success", err)
	}
}

func TestRejectionReleasesReservation(t *testing.T) {
	e, _, _, id := setupEngine(t, 5)
	ctx := context.Background()

	claimID := mustSubmit(t, e, id, "alice", 5)
	if _, err := e.Submit(ctx, id, "bob", 1, "t"); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Submit while reserved = %v, want insufficient stock", err)
	}

	if err := e.Reject(ctx, id, claimID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := e.Submit(ctx, id, "bob", 5, "t"); err != nil {
		t.Errorf("Submit after rejection = %v, want success", err)
	}
}

func TestApprove(t *testing.T) {
	e, reg, rec, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 3)

	if err := e.Approve(ctx, id, claimID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	l, _ := reg.Get(ctx, id)
	if got := l.CommittedQty(); got != 3 {
		t.Errorf("CommittedQty = %d, want 3", got)
	}
	if l.Status != models.ListingStatusOpen {
		t.Errorf("Status = %q, want open (remaining 2)", l.Status)
	}

	kinds := rec.Kinds()
	want := []string{"owner_new_claim", "claimant_decision", "publish_listing_post"}
	if len(kinds) != len(want) {
		t.Fatalf("notifications = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("notifications[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}

	// The recorder's publish returns a ref; it must be attached once.
	if l.ExternalRef != "post-"+id {
		t.Errorf("ExternalRef = %q, want post-%s", l.ExternalRef, id)
	}
}

func TestApproveTwiceFailsSecondTime(t *testing.T) {
	e, _, _, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 3)

	if err := e.Approve(ctx, id, claimID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	// A duplicate button press must not double-commit or silently
	// succeed.
	if err := e.Approve(ctx, id, claimID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Approve = %v, want ErrInvalidState", err)
	}
}

func TestApproveExhaustsListing(t *testing.T) {
	e, reg, _, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 5)

	if err := e.Approve(ctx, id, claimID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	l, _ := reg.Get(ctx, id)
	if l.Status != models.ListingStatusFullyCommitted {
		t.Errorf("Status = %q, want fully_committed", l.Status)
	}
	if _, err := e.Submit(ctx, id, "bob", 1, "t"); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Submit after exhaustion = %v, want ErrNotAvailable", err)
	}
}

func TestRejectOnlyPending(t *testing.T) {
	e, reg, _, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 3)

	if err := e.Approve(ctx, id, claimID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := e.Reject(ctx, id, claimID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Reject of approved claim = %v, want ErrInvalidState", err)
	}

	l, _ := reg.Get(ctx, id)
	if got := l.Claim(claimID).Status; got != models.ClaimStatusApproved {
		t.Errorf("Status = %q, approved claim must be immutable", got)
	}
}

func TestCancelByClaimant(t *testing.T) {
	e, reg, rec, id := setupEngine(t, 5)
	ctx := context.Background()
	claimID := mustSubmit(t, e, id, "alice", 3)

	if err := e.CancelByClaimant(ctx, id, claimID, "mallory"); !errors.Is(err, ErrNotClaimant) {
		t.Errorf("Cancel by stranger = %v, want ErrNotClaimant", err)
	}
	if err := e.CancelByClaimant(ctx, id, claimID, "alice"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	c := getClaim(t, reg, id, claimID)
	if c.Status != models.ClaimStatusCancelled {
		t.Errorf("Status = %q, want cancelled", c.Status)
	}

	// Cancelling again is a stale action.
	if err := e.CancelByClaimant(ctx, id, claimID, "alice"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Cancel = %v, want ErrInvalidState", err)
	}

	kinds := rec.Kinds()
	if kinds[len(kinds)-1] != "owner_claim_cancelled" {
		t.Errorf("last notification = %q, want owner_claim_cancelled", kinds[len(kinds)-1])
	}
}

// TestConcurrentSubmitsNeverOversubscribe races two submissions whose
// combined quantity exceeds the listing. Exactly one may win.
func TestConcurrentSubmitsNeverOversubscribe(t *testing.T) {
	for i := 0; i < 50; i++ {
		e, reg, _, id := setupEngine(t, 5)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j, qty := range []int{3, 4} {
			wg.Add(1)
			go func(slot, qty int) {
				defer wg.Done()
				_, errs[slot] = e.Submit(ctx, id, "claimant", qty, "t")
			}(j, qty)
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				if !errors.Is(err, ErrInsufficientStock) && !errors.Is(err, store.ErrContention) {
					t.Fatalf("unexpected error: %v", err)
				}
				failures++
			}
		}
		if failures == 0 {
			t.Fatal("both submissions succeeded past the stock check")
		}

		l, _ := reg.Get(ctx, id)
		if reserved := l.ReservedQty(); reserved > l.TotalQty {
			t.Fatalf("reserved %d exceeds total %d", reserved, l.TotalQty)
		}
	}
}

// TestConcurrentApprovalsKeepInvariant approves many claims in
// parallel and checks the committed quantity never exceeds the total.
func TestConcurrentApprovalsKeepInvariant(t *testing.T) {
	e, reg, _, id := setupEngine(t, 6)
	ctx := context.Background()

	claimIDs := []string{
		mustSubmit(t, e, id, "alice", 3),
		mustSubmit(t, e, id, "bob", 2),
		mustSubmit(t, e, id, "carol", 1),
	}

	var wg sync.WaitGroup
	for _, claimID := range claimIDs {
		wg.Add(1)
		go func(claimID string) {
			defer wg.Done()
			if err := e.Approve(ctx, id, claimID); err != nil && !errors.Is(err, store.ErrContention) {
				t.Errorf("Approve %s: %v", claimID, err)
			}
		}(claimID)
	}
	wg.Wait()

	l, _ := reg.Get(ctx, id)
	if got := l.CommittedQty(); got > l.TotalQty {
		t.Fatalf("CommittedQty = %d exceeds total %d", got, l.TotalQty)
	}
}

// TestFullLifecycleScenario walks the end-to-end flow: approve,
// oversized retry, reschedule negotiation, full commitment.
func TestFullLifecycleScenario(t *testing.T) {
	e, reg, _, id := setupEngine(t, 10)
	ctx := context.Background()

	// A claims 6 and is approved.
	aID := mustSubmit(t, e, id, "claimant-a", 6)
	if err := e.Approve(ctx, id, aID); err != nil {
		t.Fatalf("Approve A: %v", err)
	}
	l, _ := reg.Get(ctx, id)
	if l.Remaining() != 4 || l.Status != models.ListingStatusOpen {
		t.Fatalf("after A: remaining=%d status=%s, want 4/open", l.Remaining(), l.Status)
	}

	// B asks for 5: only 4 left.
	var stockErr *InsufficientStockError
	if _, err := e.Submit(ctx, id, "claimant-b", 5, "t"); !errors.As(err, &stockErr) {
		t.Fatalf("Submit B(5) = %v, want InsufficientStockError", err)
	}
	if stockErr.Remaining != 4 {
		t.Fatalf("Remaining = %d, want 4", stockErr.Remaining)
	}

	// B retries with 4; the owner proposes a new time; B accepts.
	bID := mustSubmit(t, e, id, "claimant-b", 4)
	if err := e.ProposeNewTime(ctx, id, bID, "Next Mon, 3-4 pm"); err != nil {
		t.Fatalf("ProposeNewTime: %v", err)
	}
	if err := e.RespondToReschedule(ctx, id, bID, true); err != nil {
		t.Fatalf("RespondToReschedule: %v", err)
	}

	l, _ = reg.Get(ctx, id)
	if l.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", l.Remaining())
	}
	if l.Status != models.ListingStatusFullyCommitted {
		t.Errorf("Status = %q, want fully_committed", l.Status)
	}
	b := l.Claim(bID)
	if b.Status != models.ClaimStatusRescheduleAccepted {
		t.Errorf("B status = %q, want reschedule_accepted", b.Status)
	}
	if b.RequestedPickup != "Next Mon, 3-4 pm" {
		t.Errorf("B pickup = %q, want the proposed time", b.RequestedPickup)
	}
}
