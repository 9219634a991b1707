package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/wardshare/wardshare/internal/registry"
	"github.com/wardshare/wardshare/pkg/models"
)

// Step identifies the question an intake session is waiting on.
type Step int

const (
	StepItem Step = iota
	StepQty
	StepSize
	StepExpiry
	StepLocation
	StepPhoto
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepItem:
		return "item"
	case StepQty:
		return "quantity"
	case StepSize:
		return "size"
	case StepExpiry:
		return "expiry"
	case StepLocation:
		return "location"
	case StepPhoto:
		return "photo"
	case StepConfirm:
		return "confirm"
	}
	return "unknown"
}

var (
	// ErrNoSession means the user has no intake session in progress.
	ErrNoSession = errors.New("no intake session")

	// ErrAwaitingConfirmation means the draft is complete and only
	// Confirm or Cancel can advance the session.
	ErrAwaitingConfirmation = errors.New("awaiting confirmation")

	// ErrNotAtPhotoStep means a photo arrived outside the photo step.
	ErrNotAtPhotoStep = errors.New("not at photo step")

	// ErrPhotoExpected means the photo step got text other than the
	// skip token.
	ErrPhotoExpected = errors.New("expected a photo or 'skip'")
)

type session struct {
	draft     models.IntakeDraft
	step      Step
	startedAt time.Time
	updatedAt time.Time
}

// Flow owns one intake session per user. Sessions are single-writer
// (each belongs to exactly one user) and are destroyed on commit,
// cancel, or idle pruning.
type Flow struct {
	registry *registry.Registry

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Flow committing finished drafts to reg.
func New(reg *registry.Registry) *Flow {
	return &Flow{
		registry: reg,
		sessions: make(map[string]*session),
	}
}

// Start begins a fresh session for the user, discarding any draft in
// progress, and returns the first step.
func (f *Flow) Start(userID string) Step {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	f.sessions[userID] = &session{
		draft:     models.IntakeDraft{OwnerID: userID},
		step:      StepItem,
		startedAt: now,
		updatedAt: now,
	}
	return StepItem
}

// Step returns the step the user's session is waiting on.
func (f *Flow) Step(userID string) (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[userID]
	if !ok {
		return 0, ErrNoSession
	}
	return s.step, nil
}

// Answer feeds one text answer into the session and returns the next
// step. A rejected answer leaves the session exactly where it was so
// the user can retry.
func (f *Flow) Answer(userID, text string) (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[userID]
	if !ok {
		return 0, ErrNoSession
	}

	text = strings.TrimSpace(text)

	switch s.step {
	case StepItem:
		if text == "" {
			return s.step, registry.ErrValidation
		}
		s.draft.ItemName = text
		s.step = StepQty

	case StepQty:
		qty, err := ExtractQuantity(text)
		if err != nil {
			return s.step, err
		}
		s.draft.TotalQty = qty
		s.draft.QtyLabel = text
		s.step = StepSize

	case StepSize:
		s.draft.SizeLabel = ParseSize(text)
		s.step = StepExpiry

	case StepExpiry:
		expiry, err := ParseExpiry(text)
		if err != nil {
			return s.step, err
		}
		s.draft.ExpiryLabel = expiry
		s.step = StepLocation

	case StepLocation:
		if text == "" {
			return s.step, registry.ErrValidation
		}
		s.draft.LocationLabel = text
		s.step = StepPhoto

	case StepPhoto:
		if !IsSkip(text) {
			return s.step, ErrPhotoExpected
		}
		s.draft.PhotoRef = ""
		s.step = StepConfirm

	case StepConfirm:
		return s.step, ErrAwaitingConfirmation
	}

	s.updatedAt = time.Now().UTC()
	return s.step, nil
}

// AttachPhoto records an image reference at the photo step and
// advances to confirmation.
func (f *Flow) AttachPhoto(userID, photoRef string) (Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[userID]
	if !ok {
		return 0, ErrNoSession
	}
	if s.step != StepPhoto {
		return s.step, ErrNotAtPhotoStep
	}
	s.draft.PhotoRef = photoRef
	s.step = StepConfirm
	s.updatedAt = time.Now().UTC()
	return s.step, nil
}

// Draft returns a copy of the accumulated draft, for confirmation
// display by the transport.
func (f *Flow) Draft(userID string) (models.IntakeDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[userID]
	if !ok {
		return models.IntakeDraft{}, ErrNoSession
	}
	return s.draft, nil
}

// Confirm commits the finished draft and destroys the session. The
// draft is handed to the registry unchanged; on a validation error
// the session survives so the transport can report and retry.
func (f *Flow) Confirm(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	s, ok := f.sessions[userID]
	if !ok {
		f.mu.Unlock()
		return "", ErrNoSession
	}
	if s.step != StepConfirm {
		f.mu.Unlock()
		return "", ErrAwaitingConfirmation
	}
	draft := s.draft
	f.mu.Unlock()

	id, err := f.registry.Create(ctx, draft)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	delete(f.sessions, userID)
	f.mu.Unlock()
	return id, nil
}

// Cancel discards the user's draft, reporting whether one existed.
// Nothing is persisted.
func (f *Flow) Cancel(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.sessions[userID]
	delete(f.sessions, userID)
	return ok
}

// PruneIdle drops sessions idle longer than maxIdle and returns how
// many were removed. The caller decides the policy and cadence.
func (f *Flow) PruneIdle(maxIdle time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxIdle)
	pruned := 0
	for id, s := range f.sessions {
		if s.updatedAt.Before(cutoff) {
			delete(f.sessions, id)
			pruned++
		}
	}
	return pruned
}
