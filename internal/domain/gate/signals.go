package gate

import "math"

// Signal weights. Fixed constants of the design, not configurable per
// call. The two penalty signals subtract; the weighted sum is clamped
// into [0,1].
const (
	weightValidatorPassRate = 0.35
	weightUncertaintyMargin = 0.20
	weightReversibility     = 0.15
	weightConsistency       = 0.15
	weightPolicyFlags       = -0.10
	weightDiffRisk          = -0.10
)

// Signals is the fixed record of six normalized reliability signals,
// each in [0,1]. PolicyFlags and DiffRisk are penalty signals.
type Signals struct {
	ValidatorPassRate float64 `json:"validator_pass_rate"`
	UncertaintyMargin float64 `json:"uncertainty_margin"`
	Reversibility     float64 `json:"reversibility"`
	Consistency       float64 `json:"consistency_across_modalities"`
	PolicyFlags       float64 `json:"policy_flags"`
	DiffRisk          float64 `json:"diff_risk"`
}

// Clamped returns a copy with every field clamped into [0,1].
// Out-of-range input is clamped silently, never rejected.
func (s Signals) Clamped() Signals {
	return Signals{
		ValidatorPassRate: clamp01(s.ValidatorPassRate),
		UncertaintyMargin: clamp01(s.UncertaintyMargin),
		Reversibility:     clamp01(s.Reversibility),
		Consistency:       clamp01(s.Consistency),
		PolicyFlags:       clamp01(s.PolicyFlags),
		DiffRisk:          clamp01(s.DiffRisk),
	}
}

// Rounded returns a copy with every field rounded to three decimals,
// the precision used in decision records.
func (s Signals) Rounded() Signals {
	return Signals{
		ValidatorPassRate: round3(s.ValidatorPassRate),
		UncertaintyMargin: round3(s.UncertaintyMargin),
		Reversibility:     round3(s.Reversibility),
		Consistency:       round3(s.Consistency),
		PolicyFlags:       round3(s.PolicyFlags),
		DiffRisk:          round3(s.DiffRisk),
	}
}

// Sigma computes the composite reliability score as the weighted sum of
// the clamped signals, clamped again to [0,1]. Pure and deterministic.
func Sigma(s Signals) float64 {
	c := s.Clamped()
	sigma := weightValidatorPassRate*c.ValidatorPassRate +
		weightUncertaintyMargin*c.UncertaintyMargin +
		weightReversibility*c.Reversibility +
		weightConsistency*c.Consistency +
		weightPolicyFlags*c.PolicyFlags +
		weightDiffRisk*c.DiffRisk
	return clamp01(sigma)
}

// Overrides holds caller-supplied signal values. A nil field means the
// gate derives or defaults that signal itself.
type Overrides struct {
	ValidatorPassRate *float64 `json:"validator_pass_rate,omitempty"`
	UncertaintyMargin *float64 `json:"uncertainty_margin,omitempty"`
	Reversibility     *float64 `json:"reversibility,omitempty"`
	Consistency       *float64 `json:"consistency_across_modalities,omitempty"`
	PolicyFlags       *float64 `json:"policy_flags,omitempty"`
	DiffRisk          *float64 `json:"diff_risk,omitempty"`
}

// AssembleSignals builds a complete Signals record for a candidate.
// passRate is the validator-derived pass rate; overrides win for any
// field the caller supplied. Defaults when nothing is known:
// uncertainty 0.5, consistency 1.0, policy flags 0, and
// reversibility/diff risk auto-detected from candidate size.
func AssembleSignals(candidate Candidate, passRate float64, ov Overrides) Signals {
	s := Signals{
		ValidatorPassRate: passRate,
		UncertaintyMargin: 0.5,
		Consistency:       1.0,
	}

	if candidate.Small() {
		s.Reversibility = 1.0
		s.DiffRisk = 0.0
	} else {
		s.Reversibility = 0.5
		s.DiffRisk = 0.3
	}

	if ov.ValidatorPassRate != nil {
		s.ValidatorPassRate = *ov.ValidatorPassRate
	}
	if ov.UncertaintyMargin != nil {
		s.UncertaintyMargin = *ov.UncertaintyMargin
	}
	if ov.Reversibility != nil {
		s.Reversibility = *ov.Reversibility
	}
	if ov.Consistency != nil {
		s.Consistency = *ov.Consistency
	}
	if ov.PolicyFlags != nil {
		s.PolicyFlags = *ov.PolicyFlags
	}
	if ov.DiffRisk != nil {
		s.DiffRisk = *ov.DiffRisk
	}

	return s.Clamped()
}

// clamp01 clamps v into [0,1]. NaN is treated as 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
