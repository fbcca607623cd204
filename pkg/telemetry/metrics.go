package telemetry

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const MeterName = "litmuschaos.io/evenodd-chaos"

// Metrics holds the campaign instruments, exported through a dedicated prometheus registry
type Metrics struct {
	registry       *prometheus.Registry
	provider       *sdkmetric.MeterProvider
	engineDuration metric.Float64Histogram
	faults         metric.Int64Counter
	assertions     metric.Int64Counter
	rounds         metric.Int64Counter
}

// NewMetrics creates the instruments of a campaign
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create the prometheus exporter")
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(MeterName)

	m := &Metrics{registry: registry, provider: provider}
	if m.engineDuration, err = meter.Float64Histogram("evenodd_engine_operation_duration",
		metric.WithDescription("Wall-clock duration of the engine invocations"),
		metric.WithUnit("s")); err != nil {
		return nil, errors.Wrap(err, "unable to create the engine duration histogram")
	}
	if m.faults, err = meter.Int64Counter("evenodd_faults_injected",
		metric.WithDescription("Number of storage nodes faulted")); err != nil {
		return nil, errors.Wrap(err, "unable to create the fault counter")
	}
	if m.assertions, err = meter.Int64Counter("evenodd_assertions",
		metric.WithDescription("Number of integrity assertions by outcome")); err != nil {
		return nil, errors.Wrap(err, "unable to create the assertion counter")
	}
	if m.rounds, err = meter.Int64Counter("evenodd_rounds",
		metric.WithDescription("Number of fault rounds by kind and outcome")); err != nil {
		return nil, errors.Wrap(err, "unable to create the round counter")
	}
	return m, nil
}

// RecordEngineOp observes one engine invocation
func (m *Metrics) RecordEngineOp(ctx context.Context, op string, d time.Duration, err error) {
	m.engineDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("success", err == nil),
	))
}

// RecordFaults counts the nodes faulted by one injection
func (m *Metrics) RecordFaults(ctx context.Context, kind string, n int) {
	m.faults.Add(ctx, int64(n), metric.WithAttributes(attribute.String("round", kind)))
}

// RecordAssertion counts one oracle outcome
func (m *Metrics) RecordAssertion(ctx context.Context, kind string, passed bool) {
	m.assertions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("passed", passed),
	))
}

// RecordRound counts one completed fault round
func (m *Metrics) RecordRound(ctx context.Context, kind string, passed bool) {
	m.rounds.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("passed", passed),
	))
}

// Gatherer exposes the registry the instruments are exported to
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteMetrics dumps the registry in the node-exporter textfile format
func (m *Metrics) WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "unable to write the metrics to %s", path)
	}
	return nil
}

// Shutdown releases the meter provider
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
