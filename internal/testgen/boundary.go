package testgen

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
)

// typeBounds holds the representable range of a numeric type.
type typeBounds struct {
	lo, hi *big.Rat
}

var numericBounds = map[ParamType]typeBounds{
	TypeInt:    {lo: Int(math.MinInt32), hi: Int(math.MaxInt32)},
	TypeLong:   {lo: Int(math.MinInt64), hi: Int(math.MaxInt64)},
	TypeDouble: {lo: new(big.Rat).SetFloat64(-math.MaxFloat64), hi: new(big.Rat).SetFloat64(math.MaxFloat64)},
}

// boundaryPoint is one of the seven positions of the partition.
type boundaryPoint struct {
	suffix string
	tag    Tag
	value  func(min, max, mid *big.Rat) *big.Rat
}

var one = big.NewRat(1, 1)

var boundaryPoints = []boundaryPoint{
	{"BelowMin", TagBelowMin, func(min, _, _ *big.Rat) *big.Rat { return new(big.Rat).Sub(min, one) }},
	{"AtMin", TagAtMin, func(min, _, _ *big.Rat) *big.Rat { return new(big.Rat).Set(min) }},
	{"JustAboveMin", TagJustAboveMin, func(min, _, _ *big.Rat) *big.Rat { return new(big.Rat).Add(min, one) }},
	{"Nominal", TagNominal, func(_, _, mid *big.Rat) *big.Rat { return mid }},
	{"JustBelowMax", TagJustBelowMax, func(_, max, _ *big.Rat) *big.Rat { return new(big.Rat).Sub(max, one) }},
	{"AtMax", TagAtMax, func(_, max, _ *big.Rat) *big.Rat { return new(big.Rat).Set(max) }},
	{"AboveMax", TagAboveMax, func(_, max, _ *big.Rat) *big.Rat { return new(big.Rat).Add(max, one) }},
}

// BoundaryOptions configures GenerateBoundaryCases.
type BoundaryOptions struct {
	// MethodName is used in case labels, e.g. testAbbreviate_maxWidth_AtMin.
	MethodName string
}

// BoundaryResult holds generated cases and the advisory warnings raised
// while generating them.
type BoundaryResult struct {
	Method     string                 `json:"method,omitempty" yaml:"method,omitempty"`
	Parameters []string               `json:"parameters" yaml:"parameters"`
	Cases      []TestCase             `json:"cases" yaml:"cases"`
	Warnings   []RangeOverflowWarning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// GenerateBoundaryCases applies boundary value analysis to each parameter in
// turn while the others stay at their nominal value.
//
// A parameter with both bounds gets seven cases, in order: min-1, min,
// min+1, the midpoint, max-1, max, max+1. Any other parameter gets three:
// nominal, empty or zero, and null. Values outside the type's range are
// still generated and carry a RangeOverflowWarning. Parameters are never
// combined, so the case count grows linearly.
func GenerateBoundaryCases(ranges ParameterRanges, opts BoundaryOptions) (*BoundaryResult, error) {
	if err := ranges.Validate(); err != nil {
		return nil, err
	}

	nominals := make(map[string]any, len(ranges))
	for _, p := range ranges {
		nominals[p.Name] = nominalValue(p)
	}

	result := &BoundaryResult{
		Method:     opts.MethodName,
		Parameters: ranges.Names(),
		Cases:      []TestCase{},
	}
	for _, p := range ranges {
		var cases []TestCase
		if p.Type.IsNumeric() && p.Ranged() {
			cases = rangedCases(p, ranges, nominals, opts)
		} else {
			cases = tripleCases(p, ranges, nominals, opts)
		}
		for _, c := range cases {
			if c.Warning != nil {
				result.Warnings = append(result.Warnings, *c.Warning)
			}
		}
		result.Cases = append(result.Cases, cases...)
	}
	return result, nil
}

func rangedCases(p ParameterRange, all ParameterRanges, nominals map[string]any, opts BoundaryOptions) []TestCase {
	mid := midpoint(p)
	bounds := numericBounds[p.Type]

	cases := make([]TestCase, 0, len(boundaryPoints))
	for _, pt := range boundaryPoints {
		v := pt.value(p.Min, p.Max, mid)
		value := ratValue(p.Type, v)

		hint := "Valid"
		if v.Cmp(p.Min) < 0 || v.Cmp(p.Max) > 0 {
			hint = "Exception or rejection"
		}
		hint = fmt.Sprintf("%s: %s %s", hint, p.Name, describePoint(pt.tag))

		tc := TestCase{
			Label:     caseLabel(opts.MethodName, p.Name, pt.suffix),
			Tag:       pt.tag,
			Parameter: p.Name,
			Inputs:    withVaried(all, nominals, p.Name, value),
		}
		switch {
		case v.Cmp(bounds.lo) < 0:
			tc.Warning = &RangeOverflowWarning{Parameter: p.Name, Type: p.Type, Value: ratString(p.Type, v), Bound: ratString(p.Type, bounds.lo)}
		case v.Cmp(bounds.hi) > 0:
			tc.Warning = &RangeOverflowWarning{Parameter: p.Name, Type: p.Type, Value: ratString(p.Type, v), Bound: ratString(p.Type, bounds.hi)}
		}
		if tc.Warning != nil {
			hint += fmt.Sprintf(" [potential overflow: %s is outside the %s range; verify it is representable]", tc.Warning.Value, p.Type)
		} else if bound, ok := roundsOntoBound(p, v); ok {
			hint += fmt.Sprintf(" [indistinguishable: rounds to the bound %s as a double; widen the step or narrow the range]", ratString(p.Type, bound))
		}
		tc.ExpectedOutcomeHint = hint
		cases = append(cases, tc)
	}
	return cases
}

func describePoint(tag Tag) string {
	switch tag {
	case TagBelowMin:
		return "below minimum"
	case TagAtMin:
		return "at minimum"
	case TagJustAboveMin:
		return "just above minimum"
	case TagNominal:
		return "at nominal midpoint"
	case TagJustBelowMax:
		return "just below maximum"
	case TagAtMax:
		return "at maximum"
	case TagAboveMax:
		return "above maximum"
	}
	return string(tag)
}

func tripleCases(p ParameterRange, all ParameterRanges, nominals map[string]any, opts BoundaryOptions) []TestCase {
	nominal := nominals[p.Name]
	empty := emptyValue(p.Type)

	nullHint := "Exception or special handling: " + p.Name + " is null"
	if p.Type.IsNumeric() || p.Type == TypeBoolean {
		nullHint += " (boxed type only; a primitive cannot be null)"
	}

	return []TestCase{
		{
			Label:               caseLabel(opts.MethodName, p.Name, "Nominal"),
			Tag:                 TagNominal,
			Parameter:           p.Name,
			Inputs:              withVaried(all, nominals, p.Name, nominal),
			ExpectedOutcomeHint: "Valid: " + p.Name + " at a nominal value",
		},
		{
			Label:               caseLabel(opts.MethodName, p.Name, "Empty"),
			Tag:                 TagEmpty,
			Parameter:           p.Name,
			Inputs:              withVaried(all, nominals, p.Name, empty),
			ExpectedOutcomeHint: "Valid or special handling: " + p.Name + " is " + describeEmpty(p.Type),
		},
		{
			Label:               caseLabel(opts.MethodName, p.Name, "Null"),
			Tag:                 TagNull,
			Parameter:           p.Name,
			Inputs:              withVaried(all, nominals, p.Name, nil),
			ExpectedOutcomeHint: nullHint,
		},
	}
}

// withVaried returns inputs for every parameter, with name set to value and
// the rest at their nominal values.
func withVaried(all ParameterRanges, nominals map[string]any, name string, value any) Inputs {
	inputs := make(Inputs, 0, len(all))
	for _, p := range all {
		v := nominals[p.Name]
		if p.Name == name {
			v = value
		}
		inputs = append(inputs, Input{Name: p.Name, Type: p.Type, Value: v})
	}
	return inputs
}

// midpoint is (min+max)/2, floored for integral types.
func midpoint(p ParameterRange) *big.Rat {
	sum := new(big.Rat).Add(p.Min, p.Max)
	mid := sum.Quo(sum, big.NewRat(2, 1))
	if p.Type.IsIntegral() && !mid.IsInt() {
		// Floor division: round toward negative infinity.
		q := new(big.Int).Div(mid.Num(), mid.Denom())
		return new(big.Rat).SetInt(q)
	}
	return mid
}

// nominalValue is the value a parameter holds while another one varies.
func nominalValue(p ParameterRange) any {
	if p.Type.IsNumeric() && p.Ranged() {
		return ratValue(p.Type, midpoint(p))
	}
	if p.Default != nil {
		return p.Default
	}
	switch p.Type {
	case TypeInt, TypeLong:
		return int64(1)
	case TypeDouble:
		return 1.0
	case TypeString:
		return "a"
	case TypeBoolean:
		return true
	default:
		return Placeholder("<representative " + p.Name + ">")
	}
}

func emptyValue(t ParamType) any {
	switch t {
	case TypeInt, TypeLong:
		return int64(0)
	case TypeDouble:
		return 0.0
	case TypeString:
		return ""
	case TypeBoolean:
		return false
	default:
		return Placeholder("<empty instance>")
	}
}

func describeEmpty(t ParamType) string {
	switch t {
	case TypeInt, TypeLong, TypeDouble:
		return "zero"
	case TypeString:
		return "empty"
	case TypeBoolean:
		return "false"
	default:
		return "an empty instance"
	}
}

// roundsOntoBound reports whether a double value that is not exactly a bound
// becomes equal to one once converted to float64.
func roundsOntoBound(p ParameterRange, v *big.Rat) (*big.Rat, bool) {
	if p.Type != TypeDouble {
		return nil, false
	}
	f, _ := v.Float64()
	for _, b := range []*big.Rat{p.Min, p.Max} {
		if v.Cmp(b) == 0 {
			continue
		}
		if bf, _ := b.Float64(); bf == f {
			return b, true
		}
	}
	return nil, false
}

// ratValue converts an exact value to the input representation for t:
// int64 for integral types (json.Number when it does not fit), float64
// for double.
func ratValue(t ParamType, v *big.Rat) any {
	if t.IsIntegral() {
		n := new(big.Int).Quo(v.Num(), v.Denom())
		if n.IsInt64() {
			return n.Int64()
		}
		return json.Number(n.String())
	}
	f, _ := v.Float64()
	return f
}

func ratString(t ParamType, v *big.Rat) string {
	if t.IsIntegral() {
		return new(big.Int).Quo(v.Num(), v.Denom()).String()
	}
	f, _ := v.Float64()
	return fmt.Sprintf("%g", f)
}
