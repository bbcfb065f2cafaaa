package service

import (
	"context"
	"strings"
	"time"

	"github.com/kestrelops/sigmagate/internal/domain/gate"
)

// BaselineResult summarizes an always-apply control run.
type BaselineResult struct {
	Applied         bool    `json:"applied"`
	ViolationsCount int     `json:"violations_count"`
	SafetyViolation bool    `json:"safety_violation"`
	ElapsedMS       float64 `json:"elapsed_ms"`
}

// safetyKeywords mark a failing validator reason as safety-critical in
// baseline violation counting.
var safetyKeywords = []string{"safety", "max", "limit", "critical", "dose"}

// Baseline applies the candidate unconditionally, bypassing the gate.
// Validators are still run so the caller can count the violations the
// gate would have caught. Used as the control arm when measuring the
// gate's marginal benefit.
func (s *GateService) Baseline(_ context.Context, candidate gate.Candidate, apply func(gate.Candidate) error, validators []gate.Validator) BaselineResult {
	start := time.Now()

	res := BaselineResult{Applied: true}
	if apply != nil {
		if err := apply(candidate); err != nil {
			res.Applied = false
		}
	}
	res.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000

	vres := gate.RunValidators(candidate, validators, false)
	res.ViolationsCount = vres.Total - vres.Passed
	if vres.CriticalFailed {
		res.SafetyViolation = true
	}
	for _, reason := range vres.FailReasons {
		lower := strings.ToLower(reason)
		for _, kw := range safetyKeywords {
			if strings.Contains(lower, kw) {
				res.SafetyViolation = true
			}
		}
	}

	return res
}
