// Package config loads wardshare configuration from environment
// variables with sensible defaults.
package config

import (
	"os"
	"strings"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendBolt      = "bolt"
	BackendFirestore = "firestore"
)

// Config holds process configuration.
type Config struct {
	// Backend selects the listing store implementation.
	Backend string

	// SQLitePath and BoltPath locate the embedded database files.
	SQLitePath string
	BoltPath   string

	// FirestoreProjectID and FirebaseCredentials configure the hosted
	// backend; FirebaseCredentials is the raw service-account JSON.
	FirestoreProjectID  string
	FirebaseCredentials string

	// KafkaBrokers is the broker list for the notification outbox;
	// empty means notifications are discarded (no transport attached).
	KafkaBrokers []string
}

// Load reads config from environment variables with sensible defaults.
func Load() *Config {
	cfg := &Config{
		Backend:             getenv("STORE_BACKEND", BackendSQLite),
		SQLitePath:          getenv("WARDSHARE_DB_PATH", "wardshare.db"),
		BoltPath:            getenv("WARDSHARE_BOLT_PATH", "wardshare.bolt"),
		FirestoreProjectID:  os.Getenv("FIRESTORE_PROJECT_ID"),
		FirebaseCredentials: os.Getenv("FIREBASE_CREDENTIALS"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
