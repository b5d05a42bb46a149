package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestEnrichLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := EnrichLogger(newJSONLogger(&buf), "session-1", "retriever")
	logger.Info("doing work")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "session-1", lines[0]["run_id"])
	assert.Equal(t, "retriever", lines[0]["node_id"])
}

func TestEnrichLogger_Nil(t *testing.T) {
	assert.Nil(t, EnrichLogger(nil, "r", "n"))
}

func TestLifecycleLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf)

	LogRunStart(logger, "session-1")
	LogNodeStart(logger, "retriever")
	LogNodeComplete(logger, "retriever", 12)
	LogNodeError(logger, "responder", errors.New("boom"))
	LogCheckpoint(logger, "responder", 256)
	LogCheckpointError(logger, "responder", "save", errors.New("disk full"))
	LogClassification(logger, "PRODUCT_QUERY", "heuristic")
	LogRunError(logger, "session-1", errors.New("boom"), 40, "responder")
	LogRunComplete(logger, "session-1", 40, 2)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 9)

	msgs := make([]string, len(lines))
	for i, l := range lines {
		msgs[i] = l["msg"].(string)
	}
	assert.Equal(t, []string{
		"graph run starting",
		"node starting",
		"node completed",
		"node failed",
		"checkpoint saved",
		"checkpoint failed",
		"query classified",
		"graph run failed",
		"graph run completed",
	}, msgs)

	assert.Equal(t, "WARN", lines[5]["level"])
	assert.Equal(t, "save", lines[5]["operation"])
	assert.Equal(t, "heuristic", lines[6]["source"])
	assert.Equal(t, "responder", lines[7]["last_node"])
	assert.Equal(t, float64(2), lines[8]["nodes_executed"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogRunStart(nil, "r")
		LogRunComplete(nil, "r", 1, 1)
		LogRunError(nil, "r", errors.New("x"), 1, "n")
		LogNodeStart(nil, "n")
		LogNodeComplete(nil, "n", 1)
		LogNodeError(nil, "n", errors.New("x"))
		LogCheckpoint(nil, "n", 1)
		LogCheckpointError(nil, "n", "save", errors.New("x"))
		LogClassification(nil, "d", "s")
	})
}
