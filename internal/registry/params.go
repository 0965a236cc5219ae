package registry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type ParamKind string

const (
	KindInt    ParamKind = "int"
	KindFloat  ParamKind = "float"
	KindString ParamKind = "string"
	KindBool   ParamKind = "bool"
	KindDate   ParamKind = "date"
)

// ParamSpec declares one parameter a generator method accepts. Min and Max
// bound numeric kinds and the length of string kinds.
type ParamSpec struct {
	Name        string    `json:"name"`
	Kind        ParamKind `json:"kind"`
	Default     string    `json:"default,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Description string    `json:"description,omitempty"`
}

func bound(v float64) *float64 { return &v }

// Params holds parameters that already passed validation, with defaults
// applied, so accessors never fail.
type Params struct {
	values map[string]string
}

func (p Params) String(name string) string { return p.values[name] }

func (p Params) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

func (p Params) Int(name string) int64 {
	v, _ := strconv.ParseInt(p.values[name], 10, 64)
	return v
}

func (p Params) Float(name string) float64 {
	v, _ := strconv.ParseFloat(p.values[name], 64)
	return v
}

func (p Params) Bool(name string) bool {
	v, _ := strconv.ParseBool(p.values[name])
	return v
}

func (p Params) Date(name string) time.Time {
	v, _ := time.Parse("2006-01-02", p.values[name])
	return v
}

// List splits a "a|b|c" parameter into its trimmed, non-empty parts.
func (p Params) List(name string) []string {
	var out []string
	for _, part := range strings.Split(p.values[name], "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// bindParams checks raw against the method's parameter schema and returns the
// validated set with defaults filled in.
func bindParams(provider string, m *Method, raw map[string]string) (Params, error) {
	invalid := func(param, reason string, args ...any) error {
		return &InvalidParameterError{
			Provider: provider,
			Method:   m.Name,
			Param:    param,
			Reason:   fmt.Sprintf(reason, args...),
		}
	}

	specs := make(map[string]ParamSpec, len(m.Params))
	for _, spec := range m.Params {
		specs[spec.Name] = spec
	}

	// Deterministic order so the first reported error is stable.
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]string, len(m.Params))
	for _, name := range names {
		spec, ok := specs[name]
		if !ok {
			return Params{}, invalid(name, "unknown parameter")
		}
		value := strings.TrimSpace(raw[name])
		if err := checkValue(spec, value); err != nil {
			return Params{}, invalid(name, "%v", err)
		}
		values[name] = value
	}

	for _, spec := range m.Params {
		if _, ok := values[spec.Name]; ok {
			continue
		}
		if spec.Required {
			return Params{}, invalid(spec.Name, "parameter is required")
		}
		if spec.Default != "" {
			values[spec.Name] = spec.Default
		}
	}

	params := Params{values: values}
	if m.check != nil {
		if err := m.check(params); err != nil {
			return Params{}, invalid(err.param, "%s", err.reason)
		}
	}
	return params, nil
}

func checkValue(spec ParamSpec, value string) error {
	var n float64

	switch spec.Kind {
	case KindInt:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", value)
		}
		n = float64(i)
	case KindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("expected a number, got %q", value)
		}
		n = f
	case KindBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("expected true or false, got %q", value)
		}
		return nil
	case KindDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return fmt.Errorf("expected a date as YYYY-MM-DD, got %q", value)
		}
		return nil
	case KindString:
		n = float64(len(value))
	}

	if spec.Min != nil && n < *spec.Min {
		if spec.Kind == KindString {
			return fmt.Errorf("must be at least %g characters", *spec.Min)
		}
		return fmt.Errorf("%s is below the minimum %g", value, *spec.Min)
	}
	if spec.Max != nil && n > *spec.Max {
		if spec.Kind == KindString {
			return fmt.Errorf("must be at most %g characters", *spec.Max)
		}
		return fmt.Errorf("%s is above the maximum %g", value, *spec.Max)
	}
	return nil
}

// paramError is what a method's Check hook reports.
type paramError struct {
	param  string
	reason string
}

func rangeCheck(lo, hi string) func(Params) *paramError {
	return func(p Params) *paramError {
		if p.Float(lo) > p.Float(hi) {
			return &paramError{param: lo, reason: fmt.Sprintf("%s must not exceed %s", lo, hi)}
		}
		return nil
	}
}

// intRangeCheck compares as integers; large int64 bounds are not exact as
// floats.
func intRangeCheck(lo, hi string) func(Params) *paramError {
	return func(p Params) *paramError {
		if p.Int(lo) > p.Int(hi) {
			return &paramError{param: lo, reason: fmt.Sprintf("%s must not exceed %s", lo, hi)}
		}
		return nil
	}
}
