package store

import (
	"context"
	"fmt"

	"github.com/wardshare/wardshare/config"
)

// Open constructs the Store selected by the configuration.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendSQLite:
		return NewSQLite(cfg.SQLitePath)
	case config.BackendBolt:
		return NewBolt(cfg.BoltPath)
	case config.BackendFirestore:
		if cfg.FirestoreProjectID == "" || cfg.FirebaseCredentials == "" {
			return nil, fmt.Errorf("firestore backend requires FIRESTORE_PROJECT_ID and FIREBASE_CREDENTIALS")
		}
		return NewFirestore(ctx, cfg.FirestoreProjectID, []byte(cfg.FirebaseCredentials))
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
