package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kestrelops/sigmagate/internal/domain/gate"
)

const meterName = "sigmagate"

// Metrics holds all SigmaGate metric instruments.
type Metrics struct {
	Evaluations  metric.Int64Counter
	Undos        metric.Int64Counter
	SinkFailures metric.Int64Counter
	Sigma        metric.Float64Histogram
	EvalDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Evaluations, err = meter.Int64Counter("sigmagate.evaluations",
		metric.WithDescription("Number of gate evaluations by decision"))
	if err != nil {
		return nil, err
	}

	m.Undos, err = meter.Int64Counter("sigmagate.undos",
		metric.WithDescription("Number of undo attempts by result"))
	if err != nil {
		return nil, err
	}

	m.SinkFailures, err = meter.Int64Counter("sigmagate.sink.failures",
		metric.WithDescription("Number of decision sink append failures"))
	if err != nil {
		return nil, err
	}

	m.Sigma, err = meter.Float64Histogram("sigmagate.sigma",
		metric.WithDescription("Distribution of computed sigma scores"))
	if err != nil {
		return nil, err
	}

	m.EvalDuration, err = meter.Float64Histogram("sigmagate.evaluation.duration_ms",
		metric.WithDescription("Gate evaluation duration in milliseconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordEvaluation records the instruments for one completed evaluation.
func (m *Metrics) RecordEvaluation(ctx context.Context, decision gate.Decision, sigma, elapsedMS float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("decision", string(decision)))
	m.Evaluations.Add(ctx, 1, attrs)
	m.Sigma.Record(ctx, sigma, attrs)
	m.EvalDuration.Record(ctx, elapsedMS, attrs)
}

// RecordUndo records an undo attempt.
func (m *Metrics) RecordUndo(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.Undos.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", ok)))
}

// RecordSinkFailure records a decision sink append failure.
func (m *Metrics) RecordSinkFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.SinkFailures.Add(ctx, 1)
}
