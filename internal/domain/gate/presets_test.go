package gate

import "testing"

func TestPresetRequiredKeys(t *testing.T) {
	v, err := PresetByName("required_keys", map[string]any{"keys": []any{"name", "email", "date", "plan"}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c := Candidate{"name": "Jane Doe", "email": "jane.d@example.com", "date": "2025-11-08"}
	verdict := v.Evaluate(c)
	if verdict.Pass {
		t.Error("candidate missing 'plan' should fail")
	}

	c["plan"] = "basic"
	if verdict := v.Evaluate(c); !verdict.Pass {
		t.Errorf("complete candidate should pass, got %q", verdict.Reason)
	}
}

func TestPresetISODateAndEmail(t *testing.T) {
	tests := []struct {
		preset string
		field  string
		value  string
		pass   bool
	}{
		{"iso_date", "date", "2025-11-08", true},
		{"iso_date", "date", "08/11/2025", false},
		{"email", "email", "jane.d@example.com", true},
		{"email", "email", "not-an-email", false},
	}

	for _, tt := range tests {
		t.Run(tt.preset+"/"+tt.value, func(t *testing.T) {
			v, err := PresetByName(tt.preset, map[string]any{"field": tt.field}, false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := v.Evaluate(Candidate{tt.field: tt.value})
			if got.Pass != tt.pass {
				t.Errorf("pass = %v, want %v (%s)", got.Pass, tt.pass, got.Reason)
			}
		})
	}
}

func TestPresetNoExtraKeys(t *testing.T) {
	v, err := PresetByName("no_extra_keys", map[string]any{"keys": []any{"name"}}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.Evaluate(Candidate{"name": "x", "extra": 1}); got.Pass {
		t.Error("extra key should fail")
	}
	if got := v.Evaluate(Candidate{"name": "x"}); !got.Pass {
		t.Errorf("exact keys should pass, got %q", got.Reason)
	}
}

func TestPresetCriticalWrapping(t *testing.T) {
	v, err := PresetByName("max_length", map[string]any{"field": "note", "limit": float64(5)}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	verdict := v.Evaluate(Candidate{"note": "way too long"})
	if verdict.Pass || !verdict.Critical {
		t.Errorf("critical preset failure should carry the critical tag: %+v", verdict)
	}
	verdict = v.Evaluate(Candidate{"note": "ok"})
	if !verdict.Pass || verdict.Critical {
		t.Errorf("critical preset pass should not be critical: %+v", verdict)
	}
}

func TestPresetErrors(t *testing.T) {
	if _, err := PresetByName("nope", nil, false); err == nil {
		t.Error("unknown preset should error")
	}
	if _, err := PresetByName("regex_field", map[string]any{"field": "x", "pattern": "("}, false); err == nil {
		t.Error("bad regex should error")
	}
	if _, err := PresetByName("required_keys", map[string]any{}, false); err == nil {
		t.Error("missing keys param should error")
	}
}

func TestPresetNamesSorted(t *testing.T) {
	names := PresetNames()
	if len(names) != 6 {
		t.Fatalf("expected 6 presets, got %d: %v", len(names), names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}
}
