package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/wardshare/wardshare/pkg/models"
)

const listingsCollection = "listings"

// Firestore is the hosted backend. RunTransaction gives real
// optimistic concurrency: the snapshot read is revalidated at commit
// and the whole function re-runs on contention, so the Transact
// contract maps directly onto it.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects to the given project using a service-account
// credentials JSON blob, via the Firebase app bootstrap.
func NewFirestore(ctx context.Context, projectID string, credentialsJSON []byte) (*Firestore, error) {
	app, err := firebase.NewApp(ctx,
		&firebase.Config{ProjectID: projectID},
		option.WithCredentialsJSON(credentialsJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

// Close releases the underlying gRPC connection.
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) doc(id string) *firestore.DocumentRef {
	return f.client.Collection(listingsCollection).Doc(id)
}

func (f *Firestore) Get(ctx context.Context, id string) (*models.Listing, error) {
	snap, err := f.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting listing: %w", err)
	}
	var l models.Listing
	if err := snap.DataTo(&l); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}
	return &l, nil
}

func (f *Firestore) Put(ctx context.Context, l *models.Listing) error {
	if _, err := f.doc(l.ID).Set(ctx, l); err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}
	return nil
}

func (f *Firestore) Transact(ctx context.Context, id string, fn UpdateFn) (*models.Listing, error) {
	var committed *models.Listing
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var cur *models.Listing
		snap, err := tx.Get(f.doc(id))
		switch {
		case status.Code(err) == codes.NotFound:
			// absent key: fn sees nil
		case err != nil:
			return fmt.Errorf("reading listing: %w", err)
		default:
			cur = &models.Listing{}
			if err := snap.DataTo(cur); err != nil {
				return fmt.Errorf("decoding listing: %w", err)
			}
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		committed = next
		return tx.Set(f.doc(next.ID), next)
	})
	if status.Code(err) == codes.Aborted {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (f *Firestore) List(ctx context.Context) ([]models.Listing, error) {
	iter := f.client.Collection(listingsCollection).OrderBy("CreatedAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []models.Listing
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing listings: %w", err)
		}
		var l models.Listing
		if err := snap.DataTo(&l); err != nil {
			return nil, fmt.Errorf("decoding listing: %w", err)
		}
		out = append(out, l)
	}
	return out, nil
}
