// Package testgen generates specification-based test skeletons.
//
// Callers describe a method's inputs declaratively, either as parameter
// ranges for boundary value analysis or as labelled equivalence classes, and
// get back ordered test cases that a renderer turns into JUnit code.
// Descriptions are decoded from JSON or YAML and validated before any
// generator sees them.
package testgen

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ParamType is a Java parameter type understood by the generators.
type ParamType string

const (
	TypeInt     ParamType = "int"
	TypeLong    ParamType = "long"
	TypeDouble  ParamType = "double"
	TypeString  ParamType = "String"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
)

// typeAliases maps accepted spellings to canonical types. Narrower Java
// numerics (short, byte, float) are not aliased, since the int and double
// bounds would hide their overflow.
var typeAliases = map[string]ParamType{
	"int":     TypeInt,
	"integer": TypeInt,
	"long":    TypeLong,
	"double":  TypeDouble,
	"string":  TypeString,
	"boolean": TypeBoolean,
	"bool":    TypeBoolean,
	"object":  TypeObject,
	"array":   TypeObject,
}

// NormalizeType maps a type spelling to its canonical form. Unknown
// spellings are returned unchanged so validation can report them.
func NormalizeType(s string) ParamType {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return ParamType(s)
}

// IsNumeric reports whether the type takes the seven-point partition.
func (t ParamType) IsNumeric() bool {
	return t == TypeInt || t == TypeLong || t == TypeDouble
}

// IsIntegral reports whether values of the type are whole numbers.
func (t ParamType) IsIntegral() bool {
	return t == TypeInt || t == TypeLong
}

// ParameterRange describes one method parameter.
// Min and Max are exact so boundary arithmetic never loses precision.
type ParameterRange struct {
	Name    string    `json:"name" yaml:"name" validate:"required,javaident"`
	Type    ParamType `json:"type" yaml:"type" validate:"required,oneof=int long double String boolean object"`
	Min     *big.Rat  `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *big.Rat  `json:"max,omitempty" yaml:"max,omitempty"`
	Default any       `json:"default,omitempty" yaml:"default,omitempty"`
}

// Ranged reports whether both bounds are set.
func (p ParameterRange) Ranged() bool {
	return p.Min != nil && p.Max != nil
}

// ParameterRanges is an ordered parameter list, in declaration order.
type ParameterRanges []ParameterRange

// Names returns the parameter names in order.
func (ps ParameterRanges) Names() []string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name)
	}
	return names
}

// EquivalenceClassSet holds the valid and invalid class labels for a method.
type EquivalenceClassSet struct {
	Valid   []string `json:"valid" yaml:"valid" validate:"unique,dive,required"`
	Invalid []string `json:"invalid" yaml:"invalid" validate:"unique,dive,required"`
}

// Int returns an exact bound for an integer value.
func Int(v int64) *big.Rat {
	return new(big.Rat).SetInt64(v)
}

// Float returns an exact bound for a float value.
func Float(v float64) *big.Rat {
	r, ok := new(big.Rat).SetString(fmt.Sprintf("%v", v))
	if !ok {
		return new(big.Rat).SetFloat64(v)
	}
	return r
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("javaident", func(fl validator.FieldLevel) bool {
		return isJavaIdentifier(fl.Field().String())
	})
	return v
}

// isJavaIdentifier reports whether s can name a Java parameter.
func isJavaIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Validate checks a parameter list: field constraints per parameter,
// unique names, and bounds that match the type.
func (ps ParameterRanges) Validate() error {
	if len(ps) == 0 {
		return &InvalidDescriptionError{Kind: "parameter ranges", Violations: []Violation{{Field: "", Reason: "at least one parameter is required"}}}
	}

	var violations []Violation
	seen := make(map[string]bool, len(ps))
	for i, p := range ps {
		prefix := p.Name
		if prefix == "" {
			prefix = fmt.Sprintf("[%d]", i)
		}
		violations = append(violations, structViolations(prefix, p)...)

		if p.Name != "" {
			if seen[p.Name] {
				violations = append(violations, Violation{Field: prefix, Reason: "duplicate parameter name"})
			}
			seen[p.Name] = true
		}

		switch {
		case !p.Type.IsNumeric() && (p.Min != nil || p.Max != nil):
			violations = append(violations, Violation{Field: prefix + ".min", Reason: fmt.Sprintf("type %s takes no range", p.Type)})
		case (p.Min == nil) != (p.Max == nil):
			violations = append(violations, Violation{Field: prefix, Reason: "min and max must be given together"})
		case p.Ranged():
			if p.Min.Cmp(p.Max) > 0 {
				violations = append(violations, Violation{Field: prefix + ".max", Reason: "must be greater than or equal to min"})
			}
			if p.Type.IsIntegral() && (!p.Min.IsInt() || !p.Max.IsInt()) {
				violations = append(violations, Violation{Field: prefix, Reason: fmt.Sprintf("bounds of a %s parameter must be whole numbers", p.Type)})
			}
			if p.Type == TypeDouble && (!finiteDouble(p.Min) || !finiteDouble(p.Max)) {
				violations = append(violations, Violation{Field: prefix, Reason: "bounds of a double parameter must be finite doubles"})
			}
		}
	}

	if len(violations) > 0 {
		return &InvalidDescriptionError{Kind: "parameter ranges", Violations: violations}
	}
	return nil
}

// Validate checks label constraints and that the two sets are disjoint.
// Both sets being empty is left to the generator.
func (s EquivalenceClassSet) Validate() error {
	violations := structViolations("", s)

	valid := make(map[string]bool, len(s.Valid))
	for _, l := range s.Valid {
		valid[l] = true
	}
	for _, l := range s.Invalid {
		if valid[l] {
			violations = append(violations, Violation{Field: "invalid", Reason: fmt.Sprintf("label %q is also listed as valid", l)})
		}
	}

	if len(violations) > 0 {
		return &InvalidDescriptionError{Kind: "equivalence classes", Violations: violations}
	}
	return nil
}

func finiteDouble(r *big.Rat) bool {
	f, _ := r.Float64()
	return !math.IsInf(f, 0)
}

// structViolations runs the validator tags on v and converts the result.
func structViolations(prefix string, v any) []Violation {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Field: prefix, Reason: err.Error()}}
	}

	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if ns := fe.Namespace(); strings.Contains(ns, ".") {
			field = ns[strings.Index(ns, ".")+1:]
		}
		if prefix != "" {
			field = prefix + "." + field
		}
		out = append(out, Violation{Field: field, Reason: describeTag(fe)})
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "unique":
		return "contains duplicate labels"
	case "javaident":
		return fmt.Sprintf("%q is not a valid Java identifier", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// rangeFields are the keys accepted in a parameter description.
var rangeFields = map[string]bool{"name": true, "type": true, "min": true, "max": true, "default": true}

// rawRange is the wire shape of a parameter before bounds are parsed.
type rawRange struct {
	Name    string    `yaml:"name"`
	Type    string    `yaml:"type"`
	Min     *string   `yaml:"min"`
	Max     *string   `yaml:"max"`
	Default yaml.Node `yaml:"default"`
}

// DecodeParameterRanges parses a parameter description and validates it.
//
// Two shapes are accepted, in JSON or YAML:
//
//	{"index": {"type": "int", "min": 0, "max": 100}, "name": {"type": "String"}}
//	[{"name": "index", "type": "int", "min": 0, "max": 100}]
//
// Object keys keep their document order. A missing type defaults to int.
func DecodeParameterRanges(data []byte) (ParameterRanges, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &InvalidDescriptionError{Kind: "parameter ranges", Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &InvalidDescriptionError{Kind: "parameter ranges", Violations: []Violation{{Reason: "description is empty"}}}
	}

	root := doc.Content[0]
	var (
		ranges     ParameterRanges
		violations []Violation
	)
	add := func(name string, node *yaml.Node) {
		p, vs := decodeRange(name, node)
		violations = append(violations, vs...)
		ranges = append(ranges, p)
	}

	switch root.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			add(root.Content[i].Value, root.Content[i+1])
		}
	case yaml.SequenceNode:
		for _, item := range root.Content {
			add("", item)
		}
	default:
		return nil, &InvalidDescriptionError{Kind: "parameter ranges", Violations: []Violation{{Reason: "expected an object or a list of parameters"}}}
	}

	if len(violations) > 0 {
		return nil, &InvalidDescriptionError{Kind: "parameter ranges", Violations: violations}
	}
	if err := ranges.Validate(); err != nil {
		return nil, err
	}
	return ranges, nil
}

func decodeRange(key string, node *yaml.Node) (ParameterRange, []Violation) {
	field := key
	if field == "" {
		field = fmt.Sprintf("line %d", node.Line)
	}
	if node.Kind != yaml.MappingNode {
		return ParameterRange{Name: key}, []Violation{{Field: field, Reason: "expected an object with type, min and max"}}
	}

	var violations []Violation
	var keys []string
	for i := 0; i < len(node.Content); i += 2 {
		k := node.Content[i].Value
		if !rangeFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		violations = append(violations, Violation{Field: field + "." + k, Reason: "unknown field"})
	}

	var raw rawRange
	if err := node.Decode(&raw); err != nil {
		return ParameterRange{Name: key}, append(violations, Violation{Field: field, Reason: err.Error()})
	}

	p := ParameterRange{Name: raw.Name, Type: NormalizeType(raw.Type)}
	if key != "" {
		if raw.Name != "" && raw.Name != key {
			violations = append(violations, Violation{Field: field + ".name", Reason: fmt.Sprintf("conflicts with key %q", key)})
		}
		p.Name = key
	}
	if raw.Type == "" {
		p.Type = TypeInt
	}

	for _, b := range []struct {
		name string
		text *string
		dst  **big.Rat
	}{{"min", raw.Min, &p.Min}, {"max", raw.Max, &p.Max}} {
		if b.text == nil {
			continue
		}
		r, ok := new(big.Rat).SetString(strings.TrimSpace(*b.text))
		if !ok {
			violations = append(violations, Violation{Field: field + "." + b.name, Reason: fmt.Sprintf("%q is not a number", *b.text)})
			continue
		}
		*b.dst = r
	}

	if !raw.Default.IsZero() {
		var def any
		if err := raw.Default.Decode(&def); err != nil {
			violations = append(violations, Violation{Field: field + ".default", Reason: err.Error()})
		}
		p.Default = def
	}
	return p, violations
}

// DecodeEquivalenceClasses parses {"valid": [...], "invalid": [...]} in JSON
// or YAML, rejecting unknown keys, and validates the result.
func DecodeEquivalenceClasses(data []byte) (EquivalenceClassSet, error) {
	var set EquivalenceClassSet
	if len(bytes.TrimSpace(data)) == 0 {
		return set, &InvalidDescriptionError{Kind: "equivalence classes", Violations: []Violation{{Reason: "description is empty"}}}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil {
		return EquivalenceClassSet{}, &InvalidDescriptionError{Kind: "equivalence classes", Err: err}
	}
	if err := set.Validate(); err != nil {
		return EquivalenceClassSet{}, err
	}
	return set, nil
}
