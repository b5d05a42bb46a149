package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to checkpoint structure.
const Version = 1

// Checkpoint is the persisted snapshot of a finished run.
type Checkpoint struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`

	State json.RawMessage `json:"state"`

	// Path lists the nodes executed, in order.
	Path []string `json:"path,omitempty"`
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
// Returns ErrVersionMismatch if it was written by another format version.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Version != Version {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrVersionMismatch, c.Version, Version)
	}
	return &c, nil
}

// DecodeState unmarshals the checkpoint's state into v.
func (c *Checkpoint) DecodeState(v any) error {
	return json.Unmarshal(c.State, v)
}

// New creates a checkpoint for the state left by nodeID.
// State must already be JSON-serialized.
func New(runID, nodeID string, state []byte) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		RunID:     runID,
		NodeID:    nodeID,
		Timestamp: time.Now().UTC(),
		State:     state,
	}
}

// WithPath records the executed node path.
func (c *Checkpoint) WithPath(path []string) *Checkpoint {
	c.Path = append([]string(nil), path...)
	return c
}
