// Package checkpoint provides storage for the last state of each run.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// Store keeps the most recent checkpoint per run ID.
// Implementations must be safe for concurrent use. Saves for different run
// IDs must not serialize on each other; concurrent saves for the same run
// ID race and the last write wins.
type Store interface {
	// Save stores the checkpoint for a run, replacing any previous one.
	Save(ctx context.Context, runID string, data []byte) error

	// Load retrieves the checkpoint for a run.
	// Returns ErrNotFound if the run has no checkpoint.
	Load(ctx context.Context, runID string) ([]byte, error)

	// List returns metadata for every stored run, ordered by run ID.
	// Returns an empty slice (not error) if the store is empty.
	List(ctx context.Context) ([]Info, error)

	// Delete removes the checkpoint for a run.
	// Returns nil if the run has no checkpoint.
	Delete(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	RunID string
	// Sequence counts how many times the run's checkpoint has been written.
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")

	// ErrVersionMismatch indicates a checkpoint written by an incompatible format version.
	ErrVersionMismatch = errors.New("checkpoint version mismatch")
)
