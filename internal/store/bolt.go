package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/wardshare/wardshare/pkg/models"
)

const listingsBucket = "listings"

// Bolt is an embedded key/value backend. All data lives in a single
// file, so small deployments need no external database process.
// bolt.Update serializes writers, so a Transact here is atomic by
// construction and never reports ErrConflict.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens (or creates) a Bolt database at the given path and
// ensures the listings bucket exists.
func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open listings database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(listingsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Get(ctx context.Context, id string) (*models.Listing, error) {
	var l *models.Listing
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(listingsBucket)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		var err error
		l, err = decodeListing(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (b *Bolt) Put(ctx context.Context, l *models.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding listing: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(listingsBucket)).Put([]byte(l.ID), data)
	})
}

func (b *Bolt) Transact(ctx context.Context, id string, fn UpdateFn) (*models.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var committed *models.Listing
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(listingsBucket))

		var cur *models.Listing
		if v := bucket.Get([]byte(id)); v != nil {
			var err error
			if cur, err = decodeListing(v); err != nil {
				return err
			}
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding listing: %w", err)
		}
		committed = next
		return bucket.Put([]byte(next.ID), data)
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (b *Bolt) List(ctx context.Context) ([]models.Listing, error) {
	var out []models.Listing
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(listingsBucket)).ForEach(func(k, v []byte) error {
			l, err := decodeListing(v)
			if err != nil {
				return err
			}
			out = append(out, *l)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
