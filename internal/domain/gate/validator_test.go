package gate

import "testing"

func passV() Validator {
	return Func(func(Candidate) Verdict { return Verdict{Pass: true} })
}

func failV(reason string, critical bool) Validator {
	return Func(func(Candidate) Verdict {
		return Verdict{Pass: false, Reason: reason, Critical: critical}
	})
}

func TestRunValidatorsPassRate(t *testing.T) {
	c := Candidate{"name": "x"}

	res := RunValidators(c, []Validator{passV(), passV(), failV("bad date", false), failV("bad email", false)}, false)
	if got := res.PassRate(); got != 0.5 {
		t.Errorf("pass rate = %v, want 0.5", got)
	}
	if res.CriticalFailed {
		t.Error("no critical validator failed")
	}
	if len(res.FailReasons) != 2 {
		t.Errorf("fail reasons = %v, want 2 entries", res.FailReasons)
	}
}

func TestRunValidatorsNoValidatorsIsNeutral(t *testing.T) {
	res := RunValidators(Candidate{}, nil, false)
	if got := res.PassRate(); got != 0.5 {
		t.Errorf("pass rate with no validators = %v, want neutral 0.5", got)
	}
}

func TestRunValidatorsCriticalTag(t *testing.T) {
	res := RunValidators(Candidate{}, []Validator{passV(), failV("over limit", true)}, false)
	if !res.CriticalFailed {
		t.Error("critical verdict failure should set CriticalFailed")
	}
}

func TestRunValidatorsAllCriticalMode(t *testing.T) {
	// CriticalValidators mode: any failure is critical and the pass
	// rate collapses to binary.
	res := RunValidators(Candidate{}, []Validator{passV(), passV(), failV("nope", false)}, true)
	if !res.CriticalFailed {
		t.Error("all-critical mode should mark any failure critical")
	}
	if got := res.PassRate(); got != 0.0 {
		t.Errorf("all-critical pass rate = %v, want binary 0.0", got)
	}

	res = RunValidators(Candidate{}, []Validator{passV(), passV()}, true)
	if got := res.PassRate(); got != 1.0 {
		t.Errorf("all-critical pass rate = %v, want 1.0", got)
	}
}

func TestRunValidatorsRecoversPanic(t *testing.T) {
	boom := Func(func(Candidate) Verdict { panic("broken validator") })
	res := RunValidators(Candidate{}, []Validator{boom, passV()}, false)
	if got := res.PassRate(); got != 0.5 {
		t.Errorf("panicking validator should count as failing: rate = %v, want 0.5", got)
	}
	if res.CriticalFailed {
		t.Error("panic is a non-critical failure")
	}
}
