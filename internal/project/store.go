package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// ErrNoSave is returned by Get when no save exists under the given name.
var ErrNoSave = errors.New("save not found")

// storeSchema contains the DDL executed on first open. Using IF NOT EXISTS
// makes it safe to run on every startup.
const storeSchema = `
CREATE TABLE IF NOT EXISTS saves (
    name       TEXT PRIMARY KEY,
    snapshot   TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SaveInfo describes one named save in the store.
type SaveInfo struct {
	Name      string
	UpdatedAt time.Time
}

// Store keeps named section snapshots in a local SQLite database in WAL
// mode, so a project can carry multiple working states side by side.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) a SQLite database at dbPath, enables WAL
// mode and busy timeout, and creates the saves table if it does not exist.
func OpenStore(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// Limit to one connection. SQLite only supports a single writer; one
	// connection avoids SQLITE_BUSY contention between pooled connections
	// that each need their own PRAGMA setup.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (st *Store) Close() error {
	return st.db.Close()
}

// Put upserts a snapshot under name. The snapshot is stored in its TOML
// project form, so an external reader can pull it straight out of the
// database.
func (st *Store) Put(ctx context.Context, name string, snap *Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("store: encode save %q: %w", name, err)
	}
	const q = `
		INSERT INTO saves (name, snapshot, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET snapshot = excluded.snapshot, updated_at = CURRENT_TIMESTAMP`
	if _, err := st.db.ExecContext(ctx, q, name, string(data)); err != nil {
		return fmt.Errorf("store: put save %q: %w", name, err)
	}
	return nil
}

// Get returns the snapshot stored under name, or ErrNoSave.
func (st *Store) Get(ctx context.Context, name string) (*Snapshot, error) {
	var data string
	err := st.db.QueryRowContext(ctx, "SELECT snapshot FROM saves WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNoSave, name)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get save %q: %w", name, err)
	}
	snap, err := decodeSnapshot([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("store: decode save %q: %w", name, err)
	}
	return snap, nil
}

// List returns all saves ordered by most recently updated first.
func (st *Store) List(ctx context.Context) ([]SaveInfo, error) {
	rows, err := st.db.QueryContext(ctx, "SELECT name, updated_at FROM saves ORDER BY updated_at DESC, name")
	if err != nil {
		return nil, fmt.Errorf("store: list saves: %w", err)
	}
	defer rows.Close()

	var saves []SaveInfo
	for rows.Next() {
		var info SaveInfo
		if err := rows.Scan(&info.Name, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan save row: %w", err)
		}
		saves = append(saves, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate saves: %w", err)
	}
	return saves, nil
}

// Delete removes a named save. Deleting a missing name is not an error.
func (st *Store) Delete(ctx context.Context, name string) error {
	if _, err := st.db.ExecContext(ctx, "DELETE FROM saves WHERE name = ?", name); err != nil {
		return fmt.Errorf("store: delete save %q: %w", name, err)
	}
	return nil
}
