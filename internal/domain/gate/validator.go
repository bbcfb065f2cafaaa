package gate

// Verdict is the result of running one validator against a candidate.
type Verdict struct {
	Pass     bool   `json:"pass"`
	Reason   string `json:"reason,omitempty"`
	Critical bool   `json:"critical,omitempty"`
}

// Validator is the capability interface callers implement to judge a
// candidate. Validators must be pure; the gate gives no re-invocation
// guarantees if they are not.
type Validator interface {
	Evaluate(candidate Candidate) Verdict
}

// Func adapts a plain function to the Validator interface.
type Func func(candidate Candidate) Verdict

// Evaluate calls f.
func (f Func) Evaluate(candidate Candidate) Verdict {
	return f(candidate)
}

// ValidationResult aggregates the verdicts of a validator run.
type ValidationResult struct {
	Total          int
	Passed         int
	CriticalFailed bool
	FailReasons    []string
}

// PassRate returns the fraction of validators that passed, or 0.5 when
// no validators were given (neutral).
func (r ValidationResult) PassRate() float64 {
	if r.Total == 0 {
		return 0.5
	}
	return float64(r.Passed) / float64(r.Total)
}

// RunValidators evaluates every validator against the candidate. A
// validator that panics is recovered and counted as a failing,
// non-critical verdict; the gate never crashes on a faulty validator.
// When allCritical is set, any failure is treated as critical and the
// pass rate becomes binary all-or-nothing.
func RunValidators(candidate Candidate, validators []Validator, allCritical bool) ValidationResult {
	res := ValidationResult{Total: len(validators)}
	for _, v := range validators {
		verdict := safeEvaluate(v, candidate)
		if verdict.Pass {
			res.Passed++
			continue
		}
		if verdict.Reason != "" {
			res.FailReasons = append(res.FailReasons, verdict.Reason)
		}
		if verdict.Critical || allCritical {
			res.CriticalFailed = true
		}
	}
	if allCritical && res.Total > 0 && res.Passed < res.Total {
		res.Passed = 0
	}
	return res
}

func safeEvaluate(v Validator, candidate Candidate) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{Pass: false, Reason: "validator panicked"}
		}
	}()
	return v.Evaluate(candidate)
}
