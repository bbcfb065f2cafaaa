// Package service wires the decision gate domain to its ports: it runs
// validators, assembles signals, applies the decision policy, and hands
// every decision record to the append-only sinks.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	sgotel "github.com/kestrelops/sigmagate/internal/adapter/otel"
	"github.com/kestrelops/sigmagate/internal/adapter/ws"
	"github.com/kestrelops/sigmagate/internal/domain/gate"
	"github.com/kestrelops/sigmagate/internal/port/decisionlog"
)

// GateService orchestrates gate evaluations. Stateless per call except
// for undo bookkeeping and the sink append; safe for concurrent use.
type GateService struct {
	opts    gate.Options
	sink    decisionlog.Sink
	hub     *ws.Hub
	metrics *sgotel.Metrics

	mu      sync.Mutex
	applied map[string]*applyState
}

// applyState is the undo bookkeeping for one applied candidate.
type applyState struct {
	reversible  bool
	snapshotted bool
	undone      bool
}

// NewGateService creates a GateService. hub and metrics may be nil.
func NewGateService(opts gate.Options, sink decisionlog.Sink, hub *ws.Hub, metrics *sgotel.Metrics) *GateService {
	if sink == nil {
		sink = decisionlog.Nop{}
	}
	return &GateService{
		opts:    opts,
		sink:    sink,
		hub:     hub,
		metrics: metrics,
		applied: make(map[string]*applyState),
	}
}

// Options returns the gate options the service was constructed with.
func (s *GateService) Options() gate.Options {
	return s.opts
}

// EvalRequest carries one candidate through the gate.
type EvalRequest struct {
	// TaskID links related evaluations (e.g. an ASK answered by a
	// follow-up). Empty generates a fresh id.
	TaskID        string
	TaskCard      gate.TaskCard
	Candidate     gate.Candidate
	Validators    []gate.Validator
	Overrides     gate.Overrides
	MissingFields []gate.MissingField
}

// EvalResult is the caller-facing result of one evaluation.
type EvalResult struct {
	TaskID  string
	Outcome gate.Outcome
	Record  *gate.DecisionRecord
}

// Evaluate runs the preview-apply gate on one candidate and returns the
// outcome plus whether the candidate was applied. The decision record
// is always handed to the sink; a sink failure is logged and reported
// to metrics but never changes the returned decision.
func (s *GateService) Evaluate(ctx context.Context, req EvalRequest) (EvalResult, bool) {
	start := time.Now()

	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	ctx, span := sgotel.StartEvaluationSpan(ctx, taskID, len(req.Validators))
	defer span.End()

	var (
		signals gate.Signals
		input   gate.PolicyInput
	)

	if !s.opts.AblateGate {
		passRate := 0.0
		if !s.opts.AblateValidators {
			res := gate.RunValidators(req.Candidate, req.Validators, s.opts.CriticalValidators)
			passRate = res.PassRate()
			input.CriticalFailed = res.CriticalFailed
			input.FailReasons = res.FailReasons
		}
		signals = gate.AssembleSignals(req.Candidate, passRate, req.Overrides)
		if s.opts.AblateValidators {
			signals.ValidatorPassRate = 0
		}
		input.Signals = signals
		input.MissingFields = req.MissingFields
	}

	outcome := s.opts.Decide(gate.Sigma(signals), input)
	if s.opts.AblateGate {
		// The ablated gate skips signal assembly; Decide already
		// returned the unconditional APPLY.
		signals = gate.Signals{}
	}

	if outcome.Applied() {
		s.markApplied(taskID, signals)
	}

	rec := gate.NewRecord(taskID, req.TaskCard, signals, outcome, time.Since(start), s.opts)
	if err := s.sink.Append(ctx, rec); err != nil {
		slog.Warn("decision record append failed", "task_id", taskID, "error", err)
		s.metrics.RecordSinkFailure(ctx)
	}

	if s.hub != nil {
		s.hub.BroadcastDecision(ctx, rec)
	}
	s.metrics.RecordEvaluation(ctx, outcome.Decision, rec.Sigma, rec.ElapsedMS)

	return EvalResult{TaskID: taskID, Outcome: outcome, Record: rec}, outcome.Applied()
}

// markApplied records undo bookkeeping for an applied candidate. The
// pre-apply snapshot is only captured for fully reversible actions and
// is skipped when the preview phase is ablated.
func (s *GateService) markApplied(taskID string, signals gate.Signals) {
	st := &applyState{reversible: signals.Reversibility == 1.0}
	st.snapshotted = st.reversible && !s.opts.AblatePreview

	s.mu.Lock()
	s.applied[taskID] = st
	s.mu.Unlock()
}

// Undo reverts a previously applied, reversible decision. It reports
// failure with a reason when the task was never applied, was already
// undone, was irreversible, or had no pre-apply snapshot. Never fatal.
func (s *GateService) Undo(ctx context.Context, taskID string) (bool, string) {
	_, span := sgotel.StartUndoSpan(ctx, taskID)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.applied[taskID]
	switch {
	case !ok:
		s.metrics.RecordUndo(ctx, false)
		return false, "task was never applied"
	case st.undone:
		s.metrics.RecordUndo(ctx, false)
		return false, "task was already undone"
	case !st.reversible:
		s.metrics.RecordUndo(ctx, false)
		return false, "action was irreversible"
	case !st.snapshotted:
		s.metrics.RecordUndo(ctx, false)
		return false, "no pre-apply snapshot (preview ablated)"
	}

	st.undone = true
	s.metrics.RecordUndo(ctx, true)
	return true, ""
}
