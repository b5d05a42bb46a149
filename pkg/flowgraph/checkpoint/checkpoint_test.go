package checkpoint_test

import (
	"encoding/json"
	"testing"

	"github.com/randalmurphal/querybot/pkg/flowgraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint_New(t *testing.T) {
	state := []byte(`{"value": 42}`)
	cp := checkpoint.New("session-123", "responder", state)

	assert.Equal(t, checkpoint.Version, cp.Version)
	assert.Equal(t, "session-123", cp.RunID)
	assert.Equal(t, "responder", cp.NodeID)
	assert.Equal(t, json.RawMessage(state), cp.State)
	assert.Empty(t, cp.Path)
	assert.False(t, cp.Timestamp.IsZero())
}

func TestCheckpoint_WithPathCopies(t *testing.T) {
	path := []string{"retriever", "responder"}
	cp := checkpoint.New("s", "responder", []byte("{}")).WithPath(path)

	path[0] = "changed"
	assert.Equal(t, []string{"retriever", "responder"}, cp.Path)
}

func TestCheckpoint_RoundTripAndDecode(t *testing.T) {
	cp := checkpoint.New("s", "responder", []byte(`{"answer":"hi"}`)).
		WithPath([]string{"responder"})

	data, err := cp.Marshal()
	require.NoError(t, err)

	loaded, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"responder"}, loaded.Path)

	var state struct {
		Answer string `json:"answer"`
	}
	require.NoError(t, loaded.DecodeState(&state))
	assert.Equal(t, "hi", state.Answer)
}

func TestCheckpoint_VersionMismatch(t *testing.T) {
	_, err := checkpoint.Unmarshal([]byte(`{"version": 99, "run_id": "s"}`))
	assert.ErrorIs(t, err, checkpoint.ErrVersionMismatch)
}

func TestCheckpoint_InvalidJSON(t *testing.T) {
	_, err := checkpoint.Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}
