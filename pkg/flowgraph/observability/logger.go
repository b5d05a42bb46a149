// Package observability holds the logging, metrics and tracing helpers
// used by graph runs and the services built on them.
//
// Logging goes through slog. Metrics and tracing use the global
// OpenTelemetry providers; each has a no-op variant for when it is off.
package observability

import (
	"context"
	"log/slog"
)

// EnrichLogger returns logger with run_id and node_id attached.
func EnrichLogger(logger *slog.Logger, runID, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("run_id", runID), slog.String("node_id", nodeID))
}

// emit is a nil-safe LogAttrs. All helpers below go through it.
func emit(logger *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func LogRunStart(logger *slog.Logger, runID string) {
	emit(logger, slog.LevelInfo, "graph run starting", slog.String("run_id", runID))
}

func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, nodeCount int) {
	emit(logger, slog.LevelInfo, "graph run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunError reports a failed run; lastNode is where it stopped.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	emit(logger, slog.LevelError, "graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

func LogNodeStart(logger *slog.Logger, nodeID string) {
	emit(logger, slog.LevelDebug, "node starting", slog.String("node_id", nodeID))
}

func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	emit(logger, slog.LevelDebug, "node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	emit(logger, slog.LevelError, "node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

func LogCheckpoint(logger *slog.Logger, nodeID string, sizeBytes int) {
	emit(logger, slog.LevelDebug, "checkpoint saved",
		slog.String("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError is a warning: a failed checkpoint does not fail the run
// unless the run asked for that.
func LogCheckpointError(logger *slog.Logger, nodeID, op string, err error) {
	emit(logger, slog.LevelWarn, "checkpoint failed",
		slog.String("node_id", nodeID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogClassification records an intent decision and the layer that made it
// (cache, heuristic or model).
func LogClassification(logger *slog.Logger, decision, source string) {
	emit(logger, slog.LevelDebug, "query classified",
		slog.String("decision", decision),
		slog.String("source", source),
	)
}
