package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/wardshare/wardshare/pkg/models"

	_ "modernc.org/sqlite"
)

// SQLite stores each listing as a single JSON document row. Claims
// ride inside the document so their arrival order survives round-trips
// exactly as written. Transact runs inside one database transaction;
// with a single writer connection this serializes all mutations to a
// key, which satisfies the compare-and-retry contract trivially.
type SQLite struct {
	conn *sql.DB
}

// NewSQLite opens (or creates) the listings database at path and runs
// migrations.
func NewSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open listings database: %w", err)
	}

	// Single writer, many readers.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLite{conn: conn}, nil
}

func migrate(conn *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS listings (
		id         TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at);
	`
	_, err := conn.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Get(ctx context.Context, id string) (*models.Listing, error) {
	var data string
	err := s.conn.QueryRowContext(ctx,
		`SELECT data FROM listings WHERE id = ?`, id,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting listing: %w", err)
	}
	return decodeListing([]byte(data))
}

func (s *SQLite) Put(ctx context.Context, l *models.Listing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding listing: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO listings (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		l.ID, string(data), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}
	return nil
}

func (s *SQLite) Transact(ctx context.Context, id string, fn UpdateFn) (*models.Listing, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var cur *models.Listing
	var data string
	err = tx.QueryRowContext(ctx, `SELECT data FROM listings WHERE id = ?`, id).Scan(&data)
	switch {
	case err == sql.ErrNoRows:
		// absent key: fn sees nil
	case err != nil:
		return nil, fmt.Errorf("reading listing: %w", err)
	default:
		if cur, err = decodeListing([]byte(data)); err != nil {
			return nil, err
		}
	}

	next, err := fn(cur)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encoding listing: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO listings (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		next.ID, string(encoded), next.CreatedAt, next.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("writing listing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

func (s *SQLite) List(ctx context.Context) ([]models.Listing, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT data FROM listings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	defer rows.Close()

	var out []models.Listing
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		l, err := decodeListing([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func decodeListing(data []byte) (*models.Listing, error) {
	var l models.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}
	return &l, nil
}
