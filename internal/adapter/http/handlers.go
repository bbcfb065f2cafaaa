// Package http exposes the decision gate over a chi-routed REST
// surface. Validators are requested by preset name so callers never
// ship code across the wire.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kestrelops/sigmagate/internal/adapter/ristretto"
	"github.com/kestrelops/sigmagate/internal/domain/gate"
	"github.com/kestrelops/sigmagate/internal/service"
)

// RecordReader is the read side of the decision log, backed by the
// Postgres store in production.
type RecordReader interface {
	GetByTaskID(ctx context.Context, taskID string) (*gate.DecisionRecord, error)
	ListRecent(ctx context.Context, limit int) ([]gate.DecisionRecord, error)
}

// Handlers holds the HTTP handler dependencies. Store and Cache may be
// nil when the corresponding backends are disabled.
type Handlers struct {
	Gate  *service.GateService
	Store RecordReader
	Cache *ristretto.RecordCache
}

// validatorSpec names a preset validator and its parameters.
type validatorSpec struct {
	Name     string         `json:"name"`
	Params   map[string]any `json:"params"`
	Critical bool           `json:"critical"`
}

type evaluateRequest struct {
	TaskID        string              `json:"task_id"`
	TaskCard      gate.TaskCard       `json:"task_card"`
	Candidate     gate.Candidate      `json:"candidate"`
	Validators    []validatorSpec     `json:"validators"`
	Overrides     gate.Overrides      `json:"overrides"`
	MissingFields []gate.MissingField `json:"missing_fields"`
}

type evaluateResponse struct {
	TaskID  string               `json:"task_id"`
	Applied bool                 `json:"applied"`
	Outcome gate.Outcome         `json:"outcome"`
	Record  *gate.DecisionRecord `json:"record"`
}

// Evaluate handles POST /v1/evaluate.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[evaluateRequest](w, r)
	if !ok {
		return
	}
	if req.Candidate == nil {
		writeError(w, http.StatusBadRequest, "candidate is required")
		return
	}

	validators, err := buildValidators(req.Validators)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, applied := h.Gate.Evaluate(r.Context(), service.EvalRequest{
		TaskID:        req.TaskID,
		TaskCard:      req.TaskCard,
		Candidate:     req.Candidate,
		Validators:    validators,
		Overrides:     req.Overrides,
		MissingFields: req.MissingFields,
	})

	if h.Cache != nil {
		h.Cache.Put(res.Record)
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		TaskID:  res.TaskID,
		Applied: applied,
		Outcome: res.Outcome,
		Record:  res.Record,
	})
}

func buildValidators(specs []validatorSpec) ([]gate.Validator, error) {
	validators := make([]gate.Validator, 0, len(specs))
	for _, spec := range specs {
		v, err := gate.PresetByName(spec.Name, spec.Params, spec.Critical)
		if err != nil {
			return nil, fmt.Errorf("validator %d: %w", len(validators), err)
		}
		validators = append(validators, v)
	}
	return validators, nil
}

type undoResponse struct {
	TaskID string `json:"task_id"`
	Undone bool   `json:"undone"`
	Reason string `json:"reason,omitempty"`
}

// Undo handles POST /v1/undo/{task_id}.
func (h *Handlers) Undo(w http.ResponseWriter, r *http.Request) {
	taskID := urlParam(r, "task_id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	ok, reason := h.Gate.Undo(r.Context(), taskID)
	status := http.StatusOK
	if !ok {
		status = http.StatusConflict
	}
	writeJSON(w, status, undoResponse{TaskID: taskID, Undone: ok, Reason: reason})
}

// GetDecision handles GET /v1/decisions/{task_id}. The cache fronts
// the durable store.
func (h *Handlers) GetDecision(w http.ResponseWriter, r *http.Request) {
	taskID := urlParam(r, "task_id")
	if taskID == "" {
		writeError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	if h.Cache != nil {
		if rec, ok := h.Cache.Get(taskID); ok {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}

	if h.Store == nil {
		writeError(w, http.StatusNotFound, "decision record not found")
		return
	}

	rec, err := h.Store.GetByTaskID(r.Context(), taskID)
	if err != nil {
		writeDomainError(w, err, "decision record not found")
		return
	}
	if h.Cache != nil {
		h.Cache.Put(rec)
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListDecisions handles GET /v1/decisions?limit=N.
func (h *Handlers) ListDecisions(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "decision store not configured")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer up to 1000")
			return
		}
		limit = n
	}

	records, err := h.Store.ListRecent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err, "decision records not found")
		return
	}
	if records == nil {
		records = []gate.DecisionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": records})
}

// ListValidators handles GET /v1/validators.
func (h *Handlers) ListValidators(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"validators": gate.PresetNames()})
}

type sweepRequest struct {
	Thresholds []float64   `json:"thresholds"`
	Cases      []sweepCase `json:"cases"`
}

type sweepCase struct {
	Name          string              `json:"name"`
	TaskCard      gate.TaskCard       `json:"task_card"`
	Candidate     gate.Candidate      `json:"candidate"`
	Validators    []validatorSpec     `json:"validators"`
	Overrides     gate.Overrides      `json:"overrides"`
	MissingFields []gate.MissingField `json:"missing_fields"`
}

// Sweep handles POST /v1/sweep.
func (h *Handlers) Sweep(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[sweepRequest](w, r)
	if !ok {
		return
	}

	cases := make([]service.SweepCase, 0, len(req.Cases))
	for _, c := range req.Cases {
		validators, err := buildValidators(c.Validators)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("case %q: %s", c.Name, err))
			return
		}
		cases = append(cases, service.SweepCase{
			Name:          c.Name,
			TaskCard:      c.TaskCard,
			Candidate:     c.Candidate,
			Validators:    validators,
			Overrides:     c.Overrides,
			MissingFields: c.MissingFields,
		})
	}

	points, err := h.Gate.Sweep(r.Context(), req.Thresholds, cases)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}
