package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/querybot/internal/session"
	"github.com/randalmurphal/querybot/pkg/flowgraph/checkpoint"
)

// Snapshot is the last checkpointed state of a session. It is read-only:
// processing never resumes from it.
type Snapshot struct {
	SessionID string        `json:"session_id"`
	SavedAt   time.Time     `json:"saved_at"`
	Path      []string      `json:"path"`
	State     session.State `json:"state"`
}

// Checkpoint loads the last saved state for sessionID. It returns
// checkpoint.ErrNotFound when the session has none and
// ErrNoCheckpointStore when checkpointing is off.
func (e *Engine) Checkpoint(ctx context.Context, sessionID string) (Snapshot, error) {
	if e.store == nil {
		return Snapshot{}, ErrNoCheckpointStore
	}

	data, err := e.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return Snapshot{}, fmt.Errorf("session %q: %w", sessionID, err)
		}
		return Snapshot{}, fmt.Errorf("load checkpoint for session %q: %w", sessionID, err)
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode checkpoint for session %q: %w", sessionID, err)
	}

	var state session.State
	if err := cp.DecodeState(&state); err != nil {
		return Snapshot{}, fmt.Errorf("decode state for session %q: %w", sessionID, err)
	}
	if state.Documents == nil {
		state.Documents = []session.Document{}
	}

	return Snapshot{
		SessionID: cp.RunID,
		SavedAt:   cp.Timestamp,
		Path:      cp.Path,
		State:     state,
	}, nil
}
