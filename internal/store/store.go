// Package store defines the atomic listing store contract and its
// backends. Every mutation of a listing goes through Transact: read
// the current value, compute the next one, commit only if no
// concurrent writer touched the key since the read. Higher layers
// never read-modify-write outside of it.
package store

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/wardshare/wardshare/pkg/models"
)

var (
	// ErrNotFound is returned when no listing exists under the key.
	ErrNotFound = errors.New("listing not found")

	// ErrConflict is returned by Transact when a concurrent writer
	// committed between the read and the write. The caller retries
	// the whole computation against the fresh value.
	ErrConflict = errors.New("transaction conflict")

	// ErrContention is returned by Update once the bounded retry
	// budget is exhausted on a hot key.
	ErrContention = errors.New("transaction retries exhausted")
)

// UpdateFn computes the next value of a listing. cur is a private copy
// of the current value, or nil when the key is absent. Returning an
// error aborts the transaction without writing and surfaces that error
// unchanged, the standard way to signal a failed precondition.
type UpdateFn func(cur *models.Listing) (*models.Listing, error)

// Store is the atomic key-value store for listings, keyed by listing id.
type Store interface {
	// Get returns the listing with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Listing, error)

	// Put writes a listing unconditionally. Only safe when no
	// concurrent writer can exist, i.e. initial creation.
	Put(ctx context.Context, l *models.Listing) error

	// Transact applies fn to the current value under id and commits
	// the result iff the key is unchanged since the read.
	Transact(ctx context.Context, id string, fn UpdateFn) (*models.Listing, error)

	// List returns all listings. Ordering is backend-defined.
	List(ctx context.Context) ([]models.Listing, error)

	Close() error
}

const (
	maxTransactAttempts = 4
	baseBackoff         = 5 * time.Millisecond
)

// Update runs fn through s.Transact, retrying on ErrConflict with
// jittered exponential backoff. After maxTransactAttempts failed
// attempts it gives up with ErrContention so latency stays bounded on
// a hot listing.
func Update(ctx context.Context, s Store, id string, fn UpdateFn) (*models.Listing, error) {
	backoff := baseBackoff
	for attempt := 0; attempt < maxTransactAttempts; attempt++ {
		l, err := s.Transact(ctx, id, fn)
		if !errors.Is(err, ErrConflict) {
			return l, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff + time.Duration(rand.Int63n(int64(backoff)))):
		}
		backoff *= 2
	}
	return nil, ErrContention
}
