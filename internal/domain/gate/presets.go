package gate

import (
	"fmt"
	"regexp"
	"sort"
)

// Preset validators available to callers that cannot supply code, such
// as the HTTP surface. Each preset is constructed by name with a params
// map and returns a Validator. The set mirrors the checks used by the
// common extraction checks (strict JSON keys, ISO dates, email format).

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type presetCtor func(params map[string]any) (Validator, error)

var presets = map[string]presetCtor{
	"required_keys": newRequiredKeys,
	"no_extra_keys": newNoExtraKeys,
	"regex_field":   newRegexField,
	"iso_date":      newISODate,
	"email":         newEmail,
	"max_length":    newMaxLength,
}

// PresetNames returns the names of all preset validators, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetByName constructs a preset validator. critical marks the
// resulting validator's failures as critical.
func PresetByName(name string, params map[string]any, critical bool) (Validator, error) {
	ctor, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset validator %q", name)
	}
	v, err := ctor(params)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	if critical {
		inner := v
		v = Func(func(c Candidate) Verdict {
			verdict := inner.Evaluate(c)
			verdict.Critical = !verdict.Pass
			return verdict
		})
	}
	return v, nil
}

func newRequiredKeys(params map[string]any) (Validator, error) {
	keys, err := stringSlice(params, "keys")
	if err != nil {
		return nil, err
	}
	return Func(func(c Candidate) Verdict {
		for _, k := range keys {
			if _, ok := c[k]; !ok {
				return Verdict{Pass: false, Reason: fmt.Sprintf("missing key %q", k)}
			}
		}
		return Verdict{Pass: true}
	}), nil
}

func newNoExtraKeys(params map[string]any) (Validator, error) {
	keys, err := stringSlice(params, "keys")
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	return Func(func(c Candidate) Verdict {
		for k := range c {
			if _, ok := allowed[k]; !ok {
				return Verdict{Pass: false, Reason: fmt.Sprintf("unexpected key %q", k)}
			}
		}
		return Verdict{Pass: true}
	}), nil
}

func newRegexField(params map[string]any) (Validator, error) {
	field, err := stringParam(params, "field")
	if err != nil {
		return nil, err
	}
	pattern, err := stringParam(params, "pattern")
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	return fieldMatch(field, re), nil
}

func newISODate(params map[string]any) (Validator, error) {
	field, err := stringParam(params, "field")
	if err != nil {
		return nil, err
	}
	return fieldMatch(field, isoDateRe), nil
}

func newEmail(params map[string]any) (Validator, error) {
	field, err := stringParam(params, "field")
	if err != nil {
		return nil, err
	}
	return fieldMatch(field, emailRe), nil
}

func newMaxLength(params map[string]any) (Validator, error) {
	field, err := stringParam(params, "field")
	if err != nil {
		return nil, err
	}
	limit, ok := params["limit"].(float64)
	if !ok || limit <= 0 {
		return nil, fmt.Errorf("param %q must be a positive number", "limit")
	}
	return Func(func(c Candidate) Verdict {
		s, ok := c[field].(string)
		if !ok {
			return Verdict{Pass: false, Reason: fmt.Sprintf("field %q is not a string", field)}
		}
		if len(s) > int(limit) {
			return Verdict{Pass: false, Reason: fmt.Sprintf("field %q exceeds %d chars", field, int(limit))}
		}
		return Verdict{Pass: true}
	}), nil
}

func fieldMatch(field string, re *regexp.Regexp) Validator {
	return Func(func(c Candidate) Verdict {
		s, ok := c[field].(string)
		if !ok {
			return Verdict{Pass: false, Reason: fmt.Sprintf("field %q missing or not a string", field)}
		}
		if !re.MatchString(s) {
			return Verdict{Pass: false, Reason: fmt.Sprintf("field %q does not match %s", field, re.String())}
		}
		return Verdict{Pass: true}
	})
}

func stringParam(params map[string]any, key string) (string, error) {
	s, ok := params[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("param %q is required", key)
	}
	return s, nil
}

func stringSlice(params map[string]any, key string) ([]string, error) {
	raw, ok := params[key].([]any)
	if !ok {
		if ss, ok := params[key].([]string); ok && len(ss) > 0 {
			return ss, nil
		}
		return nil, fmt.Errorf("param %q must be a list of strings", key)
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("param %q must be a list of strings", key)
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("param %q must not be empty", key)
	}
	return out, nil
}
