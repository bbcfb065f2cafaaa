// Package decisionlog defines the port interface for the append-only
// decision record log.
package decisionlog

import (
	"context"
	"log/slog"

	"github.com/kestrelops/sigmagate/internal/domain/gate"
)

// Sink consumes immutable decision records. Implementations must write
// each record atomically as one unit and support concurrent appends.
// An Append failure must never block or change the decision returned
// to the caller; sinks may retry internally.
type Sink interface {
	Append(ctx context.Context, rec *gate.DecisionRecord) error
}

// Nop is a Sink that discards records.
type Nop struct{}

// Append discards the record.
func (Nop) Append(context.Context, *gate.DecisionRecord) error { return nil }

// Multi fans a record out to several sinks. A failing sink is logged
// and skipped; the remaining sinks still receive the record.
type Multi []Sink

// Append writes the record to every sink.
func (m Multi) Append(ctx context.Context, rec *gate.DecisionRecord) error {
	for _, s := range m {
		if err := s.Append(ctx, rec); err != nil {
			slog.Warn("decision sink append failed", "task_id", rec.TaskID, "error", err)
		}
	}
	return nil
}
