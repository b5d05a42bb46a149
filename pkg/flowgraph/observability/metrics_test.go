package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestRecorder(t *testing.T) (MetricsRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetricsRecorderWithMeter(provider.Meter(MeterName))
	require.NoError(t, err)
	return m, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumTotal(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordNodeExecution(t *testing.T) {
	m, reader := newTestRecorder(t)
	ctx := context.Background()

	m.RecordNodeExecution(ctx, "retriever", 20*time.Millisecond, nil)
	m.RecordNodeExecution(ctx, "responder", 30*time.Millisecond, errors.New("boom"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumTotal(t, findMetric(rm, "querybot.node.executions")))
	assert.Equal(t, int64(1), sumTotal(t, findMetric(rm, "querybot.node.errors")))

	latency := findMetric(rm, "querybot.node.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2, "one series per node_id")
}

func TestRecordGraphRun(t *testing.T) {
	m, reader := newTestRecorder(t)
	ctx := context.Background()

	m.RecordGraphRun(ctx, true, 10*time.Millisecond)
	m.RecordGraphRun(ctx, true, 10*time.Millisecond)
	m.RecordGraphRun(ctx, false, 10*time.Millisecond)

	rm := collectMetrics(t, reader)
	runs := findMetric(rm, "querybot.graph.runs")
	assert.Equal(t, int64(3), sumTotal(t, runs))
	sum := runs.Data.(metricdata.Sum[int64])
	assert.Len(t, sum.DataPoints, 2, "split by success attribute")
}

func TestRecordCheckpoint(t *testing.T) {
	m, reader := newTestRecorder(t)

	m.RecordCheckpoint(context.Background(), "responder", 512)

	rm := collectMetrics(t, reader)
	size := findMetric(rm, "querybot.checkpoint.size_bytes")
	require.NotNil(t, size)
	hist, ok := size.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, int64(512), hist.DataPoints[0].Sum)
}

func TestRecordClassification(t *testing.T) {
	m, reader := newTestRecorder(t)
	ctx := context.Background()

	m.RecordClassification(ctx, "PRODUCT_QUERY", "heuristic")
	m.RecordClassification(ctx, "PRODUCT_QUERY", "heuristic")
	m.RecordClassification(ctx, "GENERAL_CONVERSATION", "model")

	rm := collectMetrics(t, reader)
	c := findMetric(rm, "querybot.intent.classifications")
	assert.Equal(t, int64(3), sumTotal(t, c))
	assert.Len(t, c.Data.(metricdata.Sum[int64]).DataPoints, 2)
}

func TestNewMetricsRecorder_Global(t *testing.T) {
	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop)
}

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordNodeExecution(ctx, "n", time.Second, errors.New("x"))
		m.RecordGraphRun(ctx, false, time.Second)
		m.RecordCheckpoint(ctx, "n", 1)
		m.RecordClassification(ctx, "PRODUCT_QUERY", "cache")
	})
}
