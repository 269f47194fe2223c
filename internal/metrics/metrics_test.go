package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/footprintai/keystone-probe/internal/probe"
)

func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return metricdata.Metrics{}
}

func TestRecorder_Record(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()

	recorder, err := NewWithReader(reader)
	require.NoError(t, err)
	defer recorder.Shutdown(ctx)

	recorder.Record(ctx, probe.Result{Status: probe.StatusCritical}, 250*time.Millisecond)
	recorder.Record(ctx, probe.Result{Status: probe.StatusCritical}, 100*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	serviceName, ok := rm.Resource.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, ServiceName, serviceName.AsString())

	runs := findMetric(t, rm, "keystone_probe_runs_total")
	sum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	status, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("status"))
	require.True(t, ok)
	assert.Equal(t, "CRITICAL", status.AsString())

	duration := findMetric(t, rm, "keystone_probe_duration_seconds")
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.35, hist.DataPoints[0].Sum, 0.0001)
}

func TestRecorder_ExportsOnShutdown(t *testing.T) {
	var posts atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recorder, err := New(ctx, collector.URL+"/v1/metrics")
	require.NoError(t, err)

	recorder.Record(ctx, probe.Result{Status: probe.StatusOK}, time.Second)
	_ = recorder.Shutdown(ctx)

	assert.GreaterOrEqual(t, posts.Load(), int32(1))
}
