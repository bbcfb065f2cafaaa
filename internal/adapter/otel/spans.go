package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sigmagate"

// StartEvaluationSpan starts a span for one gate evaluation.
func StartEvaluationSpan(ctx context.Context, taskID string, validatorCount int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "gate.evaluate",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.Int("validators.count", validatorCount),
		),
	)
}

// StartUndoSpan starts a span for an undo attempt.
func StartUndoSpan(ctx context.Context, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "gate.undo",
		trace.WithAttributes(attribute.String("task.id", taskID)),
	)
}
