package testgen

import (
	"fmt"
	"strings"
)

// Violation is one problem found in a description.
type Violation struct {
	Field  string `json:"field,omitempty" yaml:"field,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Reason
	}
	return v.Field + ": " + v.Reason
}

// InvalidDescriptionError is returned when a parameter or class description
// cannot be decoded or breaks a constraint. It lists every violation found.
type InvalidDescriptionError struct {
	Kind       string // "parameter ranges" or "equivalence classes"
	Violations []Violation
	Err        error // decode error, when the text itself is unreadable
}

// Error implements the error interface.
func (e *InvalidDescriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", e.Kind, e.Err)
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(parts, "; "))
}

// Location names the first offending field.
func (e *InvalidDescriptionError) Location() string {
	if len(e.Violations) > 0 {
		return e.Violations[0].Field
	}
	return ""
}

// Unwrap returns the decode error, if any.
func (e *InvalidDescriptionError) Unwrap() error {
	return e.Err
}

// EmptyClassSetError is returned when an equivalence description has no
// valid and no invalid classes.
type EmptyClassSetError struct{}

// Error implements the error interface.
func (e *EmptyClassSetError) Error() string {
	return "equivalence class set is empty: provide at least one valid or invalid class"
}

// RangeOverflowWarning flags a generated value outside its type's range.
// It is advisory: the case is still generated and the caller must check the
// value is representable before using it.
type RangeOverflowWarning struct {
	Parameter string    `json:"parameter" yaml:"parameter"`
	Type      ParamType `json:"type" yaml:"type"`
	Value     string    `json:"value" yaml:"value"`
	Bound     string    `json:"bound" yaml:"bound"`
}

// Error implements the error interface so warnings can travel as errors.
func (w *RangeOverflowWarning) Error() string {
	return fmt.Sprintf("potential overflow: %s=%s is outside the %s range (bound %s)", w.Parameter, w.Value, w.Type, w.Bound)
}
