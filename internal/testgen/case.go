package testgen

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Tag classifies a generated case.
type Tag string

const (
	TagBelowMin     Tag = "BELOW_MIN"
	TagAtMin        Tag = "AT_MIN"
	TagJustAboveMin Tag = "JUST_ABOVE_MIN"
	TagNominal      Tag = "NOMINAL"
	TagJustBelowMax Tag = "JUST_BELOW_MAX"
	TagAtMax        Tag = "AT_MAX"
	TagAboveMax     Tag = "ABOVE_MAX"
	TagEmpty        Tag = "EMPTY"
	TagNull         Tag = "NULL"
	TagValid        Tag = "VALID"
	TagInvalid      Tag = "INVALID"
)

// Placeholder is an input a human or downstream tool must fill in.
type Placeholder string

// Input is one named argument of a test case.
type Input struct {
	Name  string    `json:"name" yaml:"name"`
	Type  ParamType `json:"type,omitempty" yaml:"type,omitempty"`
	Value any       `json:"value" yaml:"value"`
}

// Inputs is an ordered argument list. It serializes as an object keyed by
// name, in parameter order.
type Inputs []Input

// Get returns the value for name.
func (in Inputs) Get(name string) (any, bool) {
	for _, i := range in {
		if i.Name == name {
			return i.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the inputs as an ordered JSON object.
func (in Inputs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, input := range in {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(input.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(input.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes the inputs as an ordered mapping.
func (in Inputs) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, input := range in {
		var val yaml.Node
		if err := val.Encode(input.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: input.Name},
			&val,
		)
	}
	return node, nil
}

// TestCase is one generated test skeleton.
type TestCase struct {
	Label               string                `json:"label" yaml:"label"`
	Tag                 Tag                   `json:"tag" yaml:"tag"`
	Parameter           string                `json:"parameter,omitempty" yaml:"parameter,omitempty"`
	Inputs              Inputs                `json:"inputs" yaml:"inputs"`
	ExpectedOutcomeHint string                `json:"expected_outcome_hint" yaml:"expected_outcome_hint"`
	Warning             *RangeOverflowWarning `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// caseLabel builds "test<Method>_<param>_<Suffix>".
func caseLabel(method, param, suffix string) string {
	var b strings.Builder
	b.WriteString("test")
	b.WriteString(capitalize(identifier(method)))
	if param != "" {
		b.WriteString("_")
		b.WriteString(identifier(param))
	}
	if suffix != "" {
		b.WriteString("_")
		b.WriteString(suffix)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// identifier turns a free-form label into a Java identifier fragment,
// e.g. "non-empty list" becomes "nonEmptyList".
func identifier(s string) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$':
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		default:
			upper = b.Len() > 0
		}
	}
	return b.String()
}
