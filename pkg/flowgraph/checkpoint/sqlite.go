package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	session_id TEXT    NOT NULL PRIMARY KEY,
	sequence   INTEGER NOT NULL,
	saved_at   TEXT    NOT NULL,
	data       BLOB    NOT NULL
)`

const sqliteUpsert = `
INSERT INTO checkpoints (session_id, sequence, saved_at, data)
VALUES (?, 1, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	sequence = checkpoints.sequence + 1,
	saved_at = excluded.saved_at,
	data     = excluded.data`

// SQLiteStore keeps one row per session in a local SQLite file (pure Go
// driver, WAL journal). It survives restarts of a single process.
type SQLiteStore struct {
	mu     sync.RWMutex // write-locked only by Close
	db     *sql.DB
	closed bool
}

// NewSQLiteStore opens or creates the database at path. ":memory:" gives a
// throwaway database pinned to one connection.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", sqliteSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init database %s: %w", path, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// use runs fn unless the store is closed. Close waits for running calls.
func (s *SQLiteStore) use(fn func(db *sql.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return fn(s.db)
}

func (s *SQLiteStore) Save(ctx context.Context, runID string, data []byte) error {
	return s.use(func(db *sql.DB) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := db.ExecContext(ctx, sqliteUpsert, runID, now, data); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) Load(ctx context.Context, runID string) ([]byte, error) {
	var data []byte
	err := s.use(func(db *sql.DB) error {
		err := db.QueryRowContext(ctx, `SELECT data FROM checkpoints WHERE session_id = ?`, runID).Scan(&data)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		case err != nil:
			return fmt.Errorf("load checkpoint: %w", err)
		}
		return nil
	})
	return data, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	infos := []Info{}
	err := s.use(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx,
			`SELECT session_id, sequence, saved_at, LENGTH(data) FROM checkpoints ORDER BY session_id`)
		if err != nil {
			return fmt.Errorf("list checkpoints: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				info    Info
				savedAt string
			)
			if err := rows.Scan(&info.RunID, &info.Sequence, &savedAt, &info.Size); err != nil {
				return fmt.Errorf("scan checkpoint info: %w", err)
			}
			info.Timestamp, _ = time.Parse(time.RFC3339Nano, savedAt)
			infos = append(infos, info)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, runID string) error {
	return s.use(func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, `DELETE FROM checkpoints WHERE session_id = ?`, runID); err != nil {
			return fmt.Errorf("delete checkpoint: %w", err)
		}
		return nil
	})
}

// Close is idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
