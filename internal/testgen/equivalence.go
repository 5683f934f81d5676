package testgen

import "fmt"

// EquivalenceOptions configures GenerateEquivalenceCases.
type EquivalenceOptions struct {
	MethodName string
	// Parameter names the input the placeholder is bound to. Defaults to "input".
	Parameter string
}

// GenerateEquivalenceCases emits one skeleton per class label: every valid
// label in order, then every invalid one. Inputs are placeholders because a
// label such as "negative" names a category, not a value.
func GenerateEquivalenceCases(set EquivalenceClassSet, opts EquivalenceOptions) ([]TestCase, error) {
	if len(set.Valid) == 0 && len(set.Invalid) == 0 {
		return nil, &EmptyClassSetError{}
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	param := opts.Parameter
	if param == "" {
		param = "input"
	}

	cases := make([]TestCase, 0, len(set.Valid)+len(set.Invalid))
	for _, label := range set.Valid {
		cases = append(cases, classCase(opts.MethodName, param, label, TagValid,
			fmt.Sprintf("Valid: %s input is accepted and handled normally", label)))
	}
	for _, label := range set.Invalid {
		cases = append(cases, classCase(opts.MethodName, param, label, TagInvalid,
			fmt.Sprintf("Exception or rejection: %s input is refused", label)))
	}
	return cases, nil
}

func classCase(method, param, label string, tag Tag, hint string) TestCase {
	suffix := "Valid_"
	if tag == TagInvalid {
		suffix = "Invalid_"
	}
	return TestCase{
		Label: caseLabel(method, "", suffix+capitalize(identifier(label))),
		Tag:   tag,
		Inputs: Inputs{{
			Name:  param,
			Type:  TypeObject,
			Value: Placeholder(fmt.Sprintf("<representative of %q>", label)),
		}},
		ExpectedOutcomeHint: hint,
	}
}
