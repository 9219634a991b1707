package store

import (
	"context"
	"sort"
	"sync"

	"github.com/wardshare/wardshare/pkg/models"
)

// Memory is an in-process Store with genuine optimistic concurrency:
// each key carries a version counter, the update function runs outside
// the lock against a copy, and the commit fails with ErrConflict if
// the version moved in the meantime. Used in tests and as the
// reference behavior for the persistent backends.
type Memory struct {
	mu       sync.Mutex
	listings map[string]*memoryEntry
}

type memoryEntry struct {
	listing *models.Listing
	version uint64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{listings: make(map[string]*memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, id string) (*models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.listings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.listing.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, l *models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.listings[l.ID]
	if !ok {
		m.listings[l.ID] = &memoryEntry{listing: l.Clone(), version: 1}
		return nil
	}
	e.listing = l.Clone()
	e.version++
	return nil
}

func (m *Memory) Transact(ctx context.Context, id string, fn UpdateFn) (*models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Snapshot the current value and version.
	m.mu.Lock()
	var cur *models.Listing
	var readVersion uint64
	if e, ok := m.listings[id]; ok {
		cur = e.listing.Clone()
		readVersion = e.version
	}
	m.mu.Unlock()

	// fn runs outside the lock so concurrent transactions genuinely
	// race; the version check below decides the winner.
	next, err := fn(cur)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.listings[id]
	switch {
	case !ok && readVersion != 0:
		return nil, ErrConflict
	case ok && e.version != readVersion:
		return nil, ErrConflict
	}

	committed := next.Clone()
	if !ok {
		m.listings[id] = &memoryEntry{listing: committed, version: 1}
	} else {
		e.listing = committed
		e.version++
	}
	return committed.Clone(), nil
}

func (m *Memory) List(ctx context.Context) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Listing, 0, len(m.listings))
	for _, e := range m.listings {
		out = append(out, *e.listing.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Close() error { return nil }
