// Package gate defines the domain model for SigmaGate's decision gate.
// A gate evaluates a candidate output proposed by an automated agent,
// combines six normalized reliability signals into a composite score
// sigma, and decides whether to apply, ask for clarification, or refuse.
package gate

import "encoding/json"

// Decision is the three-way outcome of a gate evaluation.
type Decision string

const (
	DecisionApply  Decision = "apply"
	DecisionAsk    Decision = "ask"
	DecisionRefuse Decision = "refuse"
)

// Candidate is the proposed output under evaluation. It has no fixed
// schema; validators interpret its shape.
type Candidate map[string]any

// Size returns the serialized size of the candidate in bytes. Used by
// the auto-detection heuristics for reversibility and diff risk.
func (c Candidate) Size() int {
	data, err := json.Marshal(c)
	if err != nil {
		return 0
	}
	return len(data)
}

// smallCandidateBytes is the cutoff below which a candidate is treated
// as small enough to be trivially reversible.
const smallCandidateBytes = 1000

// Small reports whether the candidate is below the reversibility cutoff.
func (c Candidate) Small() bool {
	return c.Size() < smallCandidateBytes
}

// MissingField names a required field absent from the candidate, with a
// hint describing the expected type or format. Used to build ASK prompts.
type MissingField struct {
	Name   string `json:"name"`
	Format string `json:"format"`
}

// Outcome is the result of running the decision policy.
type Outcome struct {
	Decision    Decision `json:"decision"`
	Sigma       float64  `json:"sigma"`
	Explanation string   `json:"explanation"`
	AskMessage  string   `json:"ask_message,omitempty"`
}

// Applied reports whether the outcome permits applying the candidate.
func (o Outcome) Applied() bool {
	return o.Decision == DecisionApply
}
