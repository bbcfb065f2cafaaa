package gate

import "fmt"

// DefaultThreshold is the default tau cutoff for APPLY.
const DefaultThreshold = 0.6

// DefaultAskBand is the width of the ASK band below tau.
const DefaultAskBand = 0.15

// boundaryEps absorbs float error in the weighted sum so that sigma
// landing on tau (or the ASK floor) compares as on the boundary. The
// boundary convention is sigma == tau -> APPLY.
const boundaryEps = 1e-9

// Options configures a gate. Ablation toggles are explicit construction
// state rather than process-wide flags, so multiple gates with different
// configurations can run concurrently without interference.
type Options struct {
	// Threshold is tau; sigma >= tau means APPLY.
	Threshold float64
	// AskBand is the width of the half-open ASK interval [tau-AskBand, tau).
	AskBand float64
	// CriticalValidators treats any validator failure as critical,
	// forcing REFUSE and making the pass rate binary.
	CriticalValidators bool
	// AblatePreview skips the pre-apply snapshot, disabling undo.
	AblatePreview bool
	// AblateValidators forces validator_pass_rate to 0 and skips
	// running validators entirely.
	AblateValidators bool
	// AblateGate bypasses the policy and always applies.
	AblateGate bool
}

// DefaultOptions returns Options with the standard defaults.
func DefaultOptions() Options {
	return Options{
		Threshold: DefaultThreshold,
		AskBand:   DefaultAskBand,
	}
}

// withDefaults fills zero values with the standard defaults.
func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.AskBand == 0 {
		o.AskBand = DefaultAskBand
	}
	return o
}

// PolicyInput carries everything the decision policy looks at besides
// sigma itself.
type PolicyInput struct {
	Signals        Signals
	MissingFields  []MissingField
	CriticalFailed bool
	FailReasons    []string
}

// Decide maps sigma and the ancillary conditions to a Decision.
//
// Order of rules:
//  1. Any critical validator failure refuses unconditionally.
//  2. A policy violation (policy_flags >= 1) on an irreversible action
//     (reversibility == 0) refuses regardless of sigma.
//  3. sigma >= tau applies. The boundary sigma == tau is APPLY, not ASK.
//  4. sigma in [tau-AskBand, tau) with 1-2 missing fields asks.
//  5. Everything else refuses. ASK is reserved for small resolvable
//     gaps: 0 or 3+ missing fields in the band fall through to REFUSE.
func (o Options) Decide(sigma float64, in PolicyInput) Outcome {
	o = o.withDefaults()

	if o.AblateGate {
		return Outcome{
			Decision:    DecisionApply,
			Sigma:       1.0,
			Explanation: "Ablation: gate disabled",
		}
	}

	if in.CriticalFailed {
		reason := "critical validator failed"
		if len(in.FailReasons) > 0 {
			reason = fmt.Sprintf("critical validator failed: %s", in.FailReasons[0])
		}
		return Outcome{
			Decision:    DecisionRefuse,
			Sigma:       sigma,
			Explanation: fmt.Sprintf("%s. Sigma %.3f.", reason, sigma),
		}
	}

	if in.Signals.PolicyFlags >= 1.0 && in.Signals.Reversibility == 0.0 {
		return Outcome{
			Decision:    DecisionRefuse,
			Sigma:       sigma,
			Explanation: fmt.Sprintf("Policy violation with irreversible action. Sigma %.3f.", sigma),
		}
	}

	if sigma >= o.Threshold-boundaryEps {
		return Outcome{
			Decision:    DecisionApply,
			Sigma:       sigma,
			Explanation: "Sigma above threshold",
		}
	}

	askFloor := o.Threshold - o.AskBand
	n := len(in.MissingFields)
	if sigma >= askFloor-boundaryEps && n >= 1 && n <= 2 {
		msg := AskMessage(in.MissingFields)
		return Outcome{
			Decision:    DecisionAsk,
			Sigma:       sigma,
			Explanation: fmt.Sprintf("Sigma %.3f in ASK range [%.2f, %.2f). %s", sigma, askFloor, o.Threshold, msg),
			AskMessage:  msg,
		}
	}

	return Outcome{
		Decision:    DecisionRefuse,
		Sigma:       sigma,
		Explanation: fmt.Sprintf("Sigma %.3f below threshold %.2f", sigma, o.Threshold),
	}
}

// AskMessage renders the clarification prompt for 1-2 missing fields
// using a fixed template.
func AskMessage(fields []MissingField) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("I need %s to proceed safely. Provide %s.", fields[0].Name, fields[0].Format)
	case 2:
		return fmt.Sprintf("I need %s (%s) and %s (%s) to proceed safely.",
			fields[0].Name, fields[0].Format, fields[1].Name, fields[1].Format)
	default:
		names := fields[0].Name
		for _, f := range fields[1:] {
			names += ", " + f.Name
		}
		return fmt.Sprintf("I need %s to proceed safely.", names)
	}
}
