package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kestrelops/sigmagate/internal/domain/gate"
)

// memSink collects appended records in memory.
type memSink struct {
	mu      sync.Mutex
	records []*gate.DecisionRecord
	fail    bool
}

func (m *memSink) Append(_ context.Context, rec *gate.DecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("sink unavailable")
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memSink) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memSink) last() *gate.DecisionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil
	}
	return m.records[len(m.records)-1]
}

func passV() gate.Validator {
	return gate.Func(func(gate.Candidate) gate.Verdict { return gate.Verdict{Pass: true} })
}

func failV(reason string, critical bool) gate.Validator {
	return gate.Func(func(gate.Candidate) gate.Verdict {
		return gate.Verdict{Pass: false, Reason: reason, Critical: critical}
	})
}

func f(v float64) *float64 { return &v }

func TestEvaluateAppliesAboveThreshold(t *testing.T) {
	sink := &memSink{}
	svc := NewGateService(gate.DefaultOptions(), sink, nil, nil)

	res, applied := svc.Evaluate(context.Background(), EvalRequest{
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{passV(), passV()},
		Overrides:  gate.Overrides{UncertaintyMargin: f(0.5)},
	})

	if !applied || res.Outcome.Decision != gate.DecisionApply {
		t.Fatalf("expected APPLY, got %s (%s)", res.Outcome.Decision, res.Outcome.Explanation)
	}
	if res.Record.Sigma != 0.75 {
		t.Errorf("sigma = %v, want 0.75", res.Record.Sigma)
	}
	if sink.len() != 1 {
		t.Errorf("expected 1 record in sink, got %d", sink.len())
	}
	if res.TaskID == "" {
		t.Error("task id should be generated")
	}
}

func TestEvaluateRefusesOnFailingValidators(t *testing.T) {
	sink := &memSink{}
	svc := NewGateService(gate.Options{Threshold: 0.55}, sink, nil, nil)

	res, applied := svc.Evaluate(context.Background(), EvalRequest{
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{failV("bad", false), failV("worse", false)},
		Overrides:  gate.Overrides{UncertaintyMargin: f(0.5)},
	})

	if applied || res.Outcome.Decision != gate.DecisionRefuse {
		t.Fatalf("expected REFUSE, got %s", res.Outcome.Decision)
	}
	if res.Record.Sigma != 0.40 {
		t.Errorf("sigma = %v, want 0.40", res.Record.Sigma)
	}
}

func TestEvaluateAsksInBandWithMissingFields(t *testing.T) {
	sink := &memSink{}
	svc := NewGateService(gate.DefaultOptions(), sink, nil, nil)

	// pass rate 1.0, uncertainty 0, reversibility 1, consistency 0.5:
	// sigma = 0.35 + 0 + 0.15 + 0.075 = 0.575, inside [0.45, 0.6).
	res, applied := svc.Evaluate(context.Background(), EvalRequest{
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{passV()},
		Overrides: gate.Overrides{
			UncertaintyMargin: f(0.0),
			Consistency:       f(0.5),
		},
		MissingFields: []gate.MissingField{{Name: "date", Format: "YYYY-MM-DD"}},
	})

	if applied {
		t.Error("ASK must not apply the candidate")
	}
	if res.Outcome.Decision != gate.DecisionAsk {
		t.Fatalf("expected ASK, got %s (%s)", res.Outcome.Decision, res.Outcome.Explanation)
	}
	if res.Outcome.AskMessage == "" {
		t.Error("ASK outcome should carry a message")
	}
	if rec := sink.last(); rec.Phase != gate.DecisionAsk {
		t.Errorf("record phase = %s, want ask", rec.Phase)
	}
}

func TestEvaluateCriticalValidatorForcesRefuse(t *testing.T) {
	svc := NewGateService(gate.DefaultOptions(), &memSink{}, nil, nil)

	res, applied := svc.Evaluate(context.Background(), EvalRequest{
		Candidate:  gate.Candidate{"dose_mg": 9000},
		Validators: []gate.Validator{passV(), failV("dose exceeds limit", true)},
		Overrides: gate.Overrides{
			ValidatorPassRate: f(1.0),
			UncertaintyMargin: f(1.0),
		},
	})

	if applied || res.Outcome.Decision != gate.DecisionRefuse {
		t.Fatalf("critical failure must refuse regardless of sigma, got %s", res.Outcome.Decision)
	}
}

func TestEvaluateSinkFailureDoesNotChangeDecision(t *testing.T) {
	sink := &memSink{fail: true}
	svc := NewGateService(gate.DefaultOptions(), sink, nil, nil)

	res, applied := svc.Evaluate(context.Background(), EvalRequest{
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{passV()},
		Overrides:  gate.Overrides{UncertaintyMargin: f(0.5)},
	})

	if !applied || res.Outcome.Decision != gate.DecisionApply {
		t.Errorf("sink failure must not change the decision, got %s", res.Outcome.Decision)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	svc := NewGateService(gate.DefaultOptions(), &memSink{}, nil, nil)
	req := EvalRequest{
		TaskID:     "fixed",
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{passV(), failV("x", false)},
		Overrides:  gate.Overrides{UncertaintyMargin: f(0.5)},
	}

	first, _ := svc.Evaluate(context.Background(), req)
	second, _ := svc.Evaluate(context.Background(), req)

	if first.Record.Sigma != second.Record.Sigma || first.Outcome.Decision != second.Outcome.Decision {
		t.Errorf("same inputs must yield identical sigma and decision: %v/%s vs %v/%s",
			first.Record.Sigma, first.Outcome.Decision, second.Record.Sigma, second.Outcome.Decision)
	}
}

func TestEvaluateAblateGate(t *testing.T) {
	opts := gate.DefaultOptions()
	opts.AblateGate = true
	sink := &memSink{}
	svc := NewGateService(opts, sink, nil, nil)

	res, applied := svc.Evaluate(context.Background(), EvalRequest{
		Candidate:  gate.Candidate{"anything": true},
		Validators: []gate.Validator{failV("broken", true)},
		Overrides:  gate.Overrides{PolicyFlags: f(1.0)},
	})

	if !applied || res.Outcome.Decision != gate.DecisionApply {
		t.Fatalf("ablated gate must always apply, got %s", res.Outcome.Decision)
	}
	if rec := sink.last(); rec.Explanation != "Ablation: gate disabled" {
		t.Errorf("unexpected explanation: %q", rec.Explanation)
	}
}

func TestEvaluateAblateValidators(t *testing.T) {
	opts := gate.DefaultOptions()
	opts.AblateValidators = true
	svc := NewGateService(opts, &memSink{}, nil, nil)

	called := false
	spy := gate.Func(func(gate.Candidate) gate.Verdict {
		called = true
		return gate.Verdict{Pass: true}
	})

	res, _ := svc.Evaluate(context.Background(), EvalRequest{
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{spy},
	})

	if called {
		t.Error("ablated validators must not run")
	}
	if res.Record.Signals.ValidatorPassRate != 0 {
		t.Errorf("pass rate = %v, want forced 0", res.Record.Signals.ValidatorPassRate)
	}
}

func TestUndoLifecycle(t *testing.T) {
	svc := NewGateService(gate.DefaultOptions(), &memSink{}, nil, nil)

	res, applied := svc.Evaluate(context.Background(), EvalRequest{
		TaskID:     "undoable",
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{passV()},
		Overrides: gate.Overrides{
			UncertaintyMargin: f(0.5),
			Reversibility:     f(1.0),
		},
	})
	if !applied {
		t.Fatalf("setup: expected APPLY, got %s", res.Outcome.Decision)
	}

	ok, reason := svc.Undo(context.Background(), "undoable")
	if !ok {
		t.Fatalf("undo of applied reversible task should succeed: %s", reason)
	}

	ok, reason = svc.Undo(context.Background(), "undoable")
	if ok || reason != "task was already undone" {
		t.Errorf("second undo should fail with already-undone, got %v %q", ok, reason)
	}
}

func TestUndoFailures(t *testing.T) {
	svc := NewGateService(gate.DefaultOptions(), &memSink{}, nil, nil)

	if ok, reason := svc.Undo(context.Background(), "ghost"); ok || reason != "task was never applied" {
		t.Errorf("undo of unknown task: %v %q", ok, reason)
	}

	// Applied but irreversible.
	_, applied := svc.Evaluate(context.Background(), EvalRequest{
		TaskID:     "permanent",
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{passV()},
		Overrides: gate.Overrides{
			UncertaintyMargin: f(1.0),
			Reversibility:     f(0.0),
		},
	})
	if !applied {
		t.Fatal("setup: candidate should apply")
	}
	if ok, reason := svc.Undo(context.Background(), "permanent"); ok || reason != "action was irreversible" {
		t.Errorf("undo of irreversible task: %v %q", ok, reason)
	}

	// Refused candidates are never applied, so undo fails.
	svc.Evaluate(context.Background(), EvalRequest{
		TaskID:     "refused",
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{failV("bad", false)},
		Overrides:  gate.Overrides{UncertaintyMargin: f(0.0), Consistency: f(0.0)},
	})
	if ok, _ := svc.Undo(context.Background(), "refused"); ok {
		t.Error("undo of refused task should fail")
	}
}

func TestUndoBlockedWhenPreviewAblated(t *testing.T) {
	opts := gate.DefaultOptions()
	opts.AblatePreview = true
	svc := NewGateService(opts, &memSink{}, nil, nil)

	_, applied := svc.Evaluate(context.Background(), EvalRequest{
		TaskID:     "no-preview",
		Candidate:  gate.Candidate{"name": "Jane"},
		Validators: []gate.Validator{passV()},
		Overrides:  gate.Overrides{UncertaintyMargin: f(0.5), Reversibility: f(1.0)},
	})
	if !applied {
		t.Fatal("setup: candidate should apply")
	}
	if ok, reason := svc.Undo(context.Background(), "no-preview"); ok || reason != "no pre-apply snapshot (preview ablated)" {
		t.Errorf("undo without snapshot: %v %q", ok, reason)
	}
}
