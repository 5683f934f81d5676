package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/testforge/covagent/internal/extract"
	"github.com/testforge/covagent/internal/output"
)

// ClassRequest names one Java source of a project.
type ClassRequest struct {
	ProjectPath string
	// ClassPath is relative to src/main/java or to the project.
	ClassPath string
}

// ClassOverview is the test-relevant shape of one class.
type ClassOverview struct {
	Name          string   `json:"name" yaml:"name"`
	Kind          string   `json:"kind" yaml:"kind"`
	Visibility    string   `json:"visibility" yaml:"visibility"`
	Extends       string   `json:"extends,omitempty" yaml:"extends,omitempty"`
	Implements    []string `json:"implements,omitempty" yaml:"implements,omitempty"`
	Lines         int      `json:"lines" yaml:"lines"`
	Methods       int      `json:"methods" yaml:"methods"`
	Fields        int      `json:"fields" yaml:"fields"`
	PublicMethods []string `json:"public_methods" yaml:"public_methods"`
}

// ClassAnalysis describes a source file for test generation.
type ClassAnalysis struct {
	File            string          `json:"file" yaml:"file"`
	Package         string          `json:"package,omitempty" yaml:"package,omitempty"`
	Classes         []ClassOverview `json:"classes" yaml:"classes"`
	PublicMethods   int             `json:"public_method_count" yaml:"public_method_count"`
	SyntaxErrors    []string        `json:"syntax_errors,omitempty" yaml:"syntax_errors,omitempty"`
	Recommendations []string        `json:"recommendations" yaml:"recommendations"`
}

// Table implements output.Tabular.
func (a *ClassAnalysis) Table() *output.Table {
	t := &output.Table{
		Title:  fmt.Sprintf("%s (%d public methods)", a.File, a.PublicMethods),
		Header: []string{"Class", "Kind", "Method"},
	}
	for _, c := range a.Classes {
		if len(c.PublicMethods) == 0 {
			t.Rows = append(t.Rows, []string{c.Name, c.Kind, "-"})
			continue
		}
		for _, m := range c.PublicMethods {
			t.Rows = append(t.Rows, []string{c.Name, c.Kind, m})
		}
	}
	t.Notes = append(t.Notes, a.Recommendations...)
	return t
}

func (s *Service) javaFile(ctx context.Context, req ClassRequest) (*extract.JavaFile, error) {
	if err := required("class_path", req.ClassPath); err != nil {
		return nil, err
	}
	project, err := s.Project(req.ProjectPath)
	if err != nil {
		return nil, err
	}
	path, err := extract.ResolveClassPath(project, req.ClassPath)
	if err != nil {
		return nil, err
	}
	return extract.ExtractJavaFile(ctx, path)
}

// AnalyzeClass lists the classes and public method signatures of a file
// with hints on what to test.
func (s *Service) AnalyzeClass(ctx context.Context, req ClassRequest) (*ClassAnalysis, error) {
	f, err := s.javaFile(ctx, req)
	if err != nil {
		return nil, err
	}

	a := &ClassAnalysis{
		File:         req.ClassPath,
		Package:      f.Package,
		Classes:      []ClassOverview{},
		SyntaxErrors: f.SyntaxErrors,
	}
	var public []extract.JavaMethod
	for _, c := range f.Classes {
		o := ClassOverview{
			Name:          c.BinaryName,
			Kind:          c.Kind,
			Visibility:    string(c.Visibility),
			Extends:       c.Extends,
			Implements:    c.Implements,
			Lines:         c.EndLine - c.StartLine + 1,
			Methods:       len(c.Methods),
			Fields:        len(c.Fields),
			PublicMethods: []string{},
		}
		if c.Exposed {
			for _, m := range c.PublicMethods() {
				o.PublicMethods = append(o.PublicMethods, m.Signature())
				public = append(public, m)
			}
		}
		a.Classes = append(a.Classes, o)
	}
	a.PublicMethods = len(public)
	a.Recommendations = recommendations(public)
	return a, nil
}

// recommendations suggests test inputs from the public parameter types.
func recommendations(methods []extract.JavaMethod) []string {
	recs := []string{fmt.Sprintf("Found %d public methods to test", len(methods))}

	var strs, nums, colls, objs, throws bool
	for _, m := range methods {
		if len(m.Throws) > 0 {
			throws = true
		}
		for _, p := range m.Params {
			t := strings.TrimSpace(p.Type)
			switch {
			case p.VarArgs || strings.HasSuffix(t, "[]") || isCollection(t):
				colls = true
			case t == "String" || t == "CharSequence":
				strs = true
			case isNumeric(t):
				nums = true
			case t == "boolean" || t == "char":
			default:
				objs = true
			}
		}
	}
	if strs {
		recs = append(recs, "String parameters: test null, empty, blank and very long values")
	}
	if nums {
		recs = append(recs, "Numeric parameters: test boundary values with generate_boundary_value_tests")
	}
	if colls {
		recs = append(recs, "Array and collection parameters: test null, empty and single-element inputs")
	}
	if objs {
		recs = append(recs, "Object parameters: test null and partition inputs with generate_equivalence_class_tests")
	}
	if throws {
		recs = append(recs, "Declared exceptions: assert each throws clause is reachable")
	}
	recs = append(recs, "Verify return values and state changes")
	return recs
}

func isNumeric(t string) bool {
	switch t {
	case "int", "long", "short", "byte", "float", "double",
		"Integer", "Long", "Short", "Byte", "Float", "Double", "BigDecimal", "BigInteger":
		return true
	}
	return false
}

func isCollection(t string) bool {
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	switch t {
	case "List", "Set", "Map", "Collection", "Iterable", "Queue", "Deque":
		return true
	}
	return false
}

// SmellReport lists the smells found in one file.
type SmellReport struct {
	File   string          `json:"file" yaml:"file"`
	Count  int             `json:"count" yaml:"count"`
	Smells []extract.Smell `json:"smells" yaml:"smells"`
}

// DetectSmells runs the code smell heuristics on one file.
func (s *Service) DetectSmells(ctx context.Context, req ClassRequest) (*SmellReport, error) {
	f, err := s.javaFile(ctx, req)
	if err != nil {
		return nil, err
	}
	smells := extract.DetectSmells(f)
	return &SmellReport{File: req.ClassPath, Count: len(smells), Smells: smells}, nil
}
