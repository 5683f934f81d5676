package workflow

import (
	"github.com/testforge/covagent/internal/testgen"
)

// BoundaryRequest asks for boundary value skeletons for one method.
type BoundaryRequest struct {
	ClassPath  string
	MethodName string
	// Ranges is the parameter description in JSON or YAML.
	Ranges    []byte
	Framework string
	// Render adds a JUnit class containing the cases.
	Render bool
}

// BoundaryResponse carries the generated cases and advisory warnings.
type BoundaryResponse struct {
	Class                  string `json:"class" yaml:"class"`
	testgen.BoundaryResult `yaml:",inline"`
	Template               *testgen.Template `json:"template,omitempty" yaml:"template,omitempty"`
}

// Boundary decodes the parameter description and generates boundary cases.
func (s *Service) Boundary(req BoundaryRequest) (*BoundaryResponse, error) {
	if err := required("class_path", req.ClassPath); err != nil {
		return nil, err
	}
	if err := required("method_name", req.MethodName); err != nil {
		return nil, err
	}
	framework, err := s.framework(req.Framework)
	if err != nil {
		return nil, err
	}
	ranges, err := testgen.DecodeParameterRanges(req.Ranges)
	if err != nil {
		return nil, err
	}
	result, err := testgen.GenerateBoundaryCases(ranges, testgen.BoundaryOptions{MethodName: req.MethodName})
	if err != nil {
		return nil, err
	}

	resp := &BoundaryResponse{Class: testgen.ClassNameFromPath(req.ClassPath), BoundaryResult: *result}
	if req.Render {
		resp.Template, err = testgen.RenderJUnit(testgen.TemplateData{
			ClassPath:  req.ClassPath,
			MethodName: req.MethodName,
			Framework:  framework,
			Cases:      result.Cases,
		})
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// EquivalenceRequest asks for one skeleton per equivalence class.
type EquivalenceRequest struct {
	ClassPath  string
	MethodName string
	// Classes is {"valid": [...], "invalid": [...]} in JSON or YAML.
	Classes []byte
	// Parameter names the input the class placeholder binds to.
	Parameter string
	Framework string
	Render    bool
}

// EquivalenceResponse carries the generated cases.
type EquivalenceResponse struct {
	Class    string             `json:"class" yaml:"class"`
	Method   string             `json:"method" yaml:"method"`
	Cases    []testgen.TestCase `json:"cases" yaml:"cases"`
	Template *testgen.Template  `json:"template,omitempty" yaml:"template,omitempty"`
}

// Equivalence decodes the class labels and generates their skeletons.
func (s *Service) Equivalence(req EquivalenceRequest) (*EquivalenceResponse, error) {
	if err := required("class_path", req.ClassPath); err != nil {
		return nil, err
	}
	if err := required("method_name", req.MethodName); err != nil {
		return nil, err
	}
	framework, err := s.framework(req.Framework)
	if err != nil {
		return nil, err
	}
	set, err := testgen.DecodeEquivalenceClasses(req.Classes)
	if err != nil {
		return nil, err
	}
	cases, err := testgen.GenerateEquivalenceCases(set, testgen.EquivalenceOptions{
		MethodName: req.MethodName,
		Parameter:  req.Parameter,
	})
	if err != nil {
		return nil, err
	}

	resp := &EquivalenceResponse{
		Class:  testgen.ClassNameFromPath(req.ClassPath),
		Method: req.MethodName,
		Cases:  cases,
	}
	if req.Render {
		resp.Template, err = testgen.RenderJUnit(testgen.TemplateData{
			ClassPath:  req.ClassPath,
			MethodName: req.MethodName,
			Framework:  framework,
			Cases:      cases,
		})
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// TemplateRequest asks for a JUnit skeleton class for one method.
type TemplateRequest struct {
	ClassPath  string
	MethodName string
	Framework  string
}

// Template renders the standard normal, edge case and exception tests.
func (s *Service) Template(req TemplateRequest) (*testgen.Template, error) {
	framework, err := s.framework(req.Framework)
	if err != nil {
		return nil, err
	}
	return testgen.RenderJUnit(testgen.TemplateData{
		ClassPath:  req.ClassPath,
		MethodName: req.MethodName,
		Framework:  framework,
	})
}

func (s *Service) framework(name string) (testgen.Framework, error) {
	if name == "" {
		name = s.cfg.Testgen.Framework
	}
	f, err := testgen.ParseFramework(name)
	if err != nil {
		return "", &ArgumentError{Name: "framework", Reason: err.Error()}
	}
	return f, nil
}
