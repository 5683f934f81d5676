package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/testforge/covagent/internal/output"
	"github.com/testforge/covagent/internal/workflow"
)

// readDocument resolves a description flag: "-" reads stdin, an existing
// file is read, anything else is taken as inline JSON or YAML.
func readDocument(cmd *cobra.Command, name, value string) ([]byte, error) {
	switch {
	case strings.TrimSpace(value) == "":
		return nil, &workflow.ArgumentError{Name: name, Reason: "is required"}
	case value == "-":
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(value)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return []byte(value), nil
}

func newBoundaryCmd(a *app) *cobra.Command {
	var (
		req    workflow.BoundaryRequest
		ranges string
	)

	cmd := &cobra.Command{
		Use:   "boundary <class-path> <method>",
		Short: "Generate boundary value test cases",
		Long: `Generate boundary value test cases from parameter ranges.

Each parameter is described by a type and optional bounds:
  int, long, double           min and max (both, or neither)
  String, boolean, object     an optional default

A bounded numeric parameter gets min-1, min, min+1, midpoint, max-1, max
and max+1 cases; any other parameter gets nominal, empty and null cases.
Each parameter varies alone while the rest stay nominal.

The description may be JSON or YAML, given inline, as a file or on stdin.
Parameters keep their declared order.`,
		Example: `  covagent boundary StringUtils.java abbreviate --ranges '{"maxWidth": {"type": "int", "min": 4, "max": 100}}'
  covagent boundary org/acme/Range.java contains --ranges ranges.yaml --render
  cat ranges.yaml | covagent boundary Range.java of --ranges -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readDocument(cmd, "param_ranges", ranges)
			if err != nil {
				return err
			}
			req.ClassPath, req.MethodName, req.Ranges = args[0], args[1], data
			res, err := a.svc.Boundary(req)
			if err != nil {
				return err
			}
			return a.write(cmd, res, &res.BoundaryResult)
		},
	}
	cmd.Flags().StringVar(&ranges, "ranges", "", "Parameter ranges: inline JSON/YAML, a file, or - for stdin")
	cmd.Flags().StringVar(&req.Framework, "framework", "", "Test framework: junit4 or junit5 (default: testgen.framework)")
	cmd.Flags().BoolVar(&req.Render, "render", false, "Include a JUnit class with one test per case")
	_ = cmd.MarkFlagRequired("ranges")
	return cmd
}

func newEquivalenceCmd(a *app) *cobra.Command {
	var (
		req     workflow.EquivalenceRequest
		classes string
	)

	cmd := &cobra.Command{
		Use:   "equivalence <class-path> <method>",
		Short: "Generate one test case per equivalence class",
		Long: `Generate one test case per valid and invalid equivalence class.

The classes are given as {"valid": [...], "invalid": [...]}, where each
entry is a representative value or a label. Invalid classes expect an
exception.`,
		Example: `  covagent equivalence Validator.java isEmail --classes '{"valid": ["a@b.io"], "invalid": ["no-at", "a@"]}'
  covagent equivalence Validator.java isEmail --classes classes.yaml --parameter email --render`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readDocument(cmd, "equivalence_classes", classes)
			if err != nil {
				return err
			}
			req.ClassPath, req.MethodName, req.Classes = args[0], args[1], data
			res, err := a.svc.Equivalence(req)
			if err != nil {
				return err
			}
			return a.write(cmd, res, res.Cases)
		},
	}
	cmd.Flags().StringVar(&classes, "classes", "", "Equivalence classes: inline JSON/YAML, a file, or - for stdin")
	cmd.Flags().StringVar(&req.Parameter, "parameter", "", "Parameter the class values bind to")
	cmd.Flags().StringVar(&req.Framework, "framework", "", "Test framework: junit4 or junit5 (default: testgen.framework)")
	cmd.Flags().BoolVar(&req.Render, "render", false, "Include a JUnit class with one test per class")
	_ = cmd.MarkFlagRequired("classes")
	return cmd
}

func newTemplateCmd(a *app) *cobra.Command {
	var req workflow.TemplateRequest

	cmd := &cobra.Command{
		Use:   "template <class-path> <method>",
		Short: "Generate a JUnit test class skeleton",
		Long: `Generate a JUnit test class for one method with a normal case, an edge
case and an exception test. With --format table only the Java source is
printed, ready to redirect into a file.`,
		Example: `  covagent template org/acme/Parser.java parse
  covagent template Parser.java parse --framework junit5 --format table > ParserTest.java`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ClassPath, req.MethodName = args[0], args[1]
			tmpl, err := a.svc.Template(req)
			if err != nil {
				return err
			}
			if a.format == output.FormatTable {
				_, err := io.WriteString(cmd.OutOrStdout(), tmpl.Code)
				return err
			}
			return a.write(cmd, tmpl, nil)
		},
	}
	cmd.Flags().StringVar(&req.Framework, "framework", "", "Test framework: junit4 or junit5 (default: testgen.framework)")
	return cmd
}
