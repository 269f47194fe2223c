// Package metrics exports probe outcomes over OTLP/HTTP.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/footprintai/keystone-probe/internal/probe"
	"github.com/footprintai/keystone-probe/pkg/version"
)

const (
	meterName = "github.com/footprintai/keystone-probe"

	// ServiceName is reported as the OTel service.name resource attribute
	ServiceName = "check-keystone"
)

// Recorder records probe results on an OTel meter provider
type Recorder struct {
	provider *sdkmetric.MeterProvider
	runs     metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a Recorder pushing to the OTLP/HTTP endpoint URL, e.g.
// "http://otel-collector:4318".
func New(ctx context.Context, endpointURL string) (*Recorder, error) {
	exporter, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(endpointURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	// The interval only matters for long lived processes; Shutdown flushes.
	return NewWithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(time.Minute)))
}

// NewWithReader creates a Recorder collecting into reader
func NewWithReader(reader sdkmetric.Reader) (*Recorder, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version.GetVersion()),
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(meterName)

	runs, err := meter.Int64Counter(
		"keystone_probe_runs_total",
		metric.WithDescription("Probe runs by terminal status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"keystone_probe_duration_seconds",
		metric.WithDescription("Wall time of a probe run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &Recorder{provider: provider, runs: runs, duration: duration}, nil
}

// Record adds one probe run
func (r *Recorder) Record(ctx context.Context, result probe.Result, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", result.Status.String()))
	r.runs.Add(ctx, 1, attrs)
	r.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// Shutdown flushes pending data and stops the provider
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}
