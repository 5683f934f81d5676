package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/testforge/covagent/internal/config"
	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/extract"
	"github.com/testforge/covagent/internal/parser"
	"github.com/testforge/covagent/internal/runner"
	"github.com/testforge/covagent/internal/testgen"
	"github.com/testforge/covagent/internal/vcs"
	"github.com/testforge/covagent/internal/workflow"
)

// ToolError is the structured failure returned to agents.
type ToolError struct {
	Kind     string `json:"kind" yaml:"kind"`
	Message  string `json:"message" yaml:"message"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s (at %s)", e.Kind, e.Message, e.Location)
	}
	return e.Kind + ": " + e.Message
}

// JSON renders the failure envelope {"error": {...}}.
func (e *ToolError) JSON() string {
	b, err := json.MarshalIndent(map[string]*ToolError{"error": e}, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": {"kind": %q, "message": %q}}`, e.Kind, e.Message)
	}
	return string(b)
}

// UnknownToolError is returned by CallTool for a tool that is not registered.
type UnknownToolError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s (run 'covagent call --list' to see available tools)", e.Name)
}

// Location returns the tool name.
func (e *UnknownToolError) Location() string {
	return e.Name
}

func is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// errorKinds maps typed errors to their kind, most specific first.
var errorKinds = []struct {
	kind  string
	match func(error) bool
}{
	{"MalformedReportError", is[*coverage.MalformedReportError]},
	{"MissingArtifactError", is[*coverage.MissingArtifactError]},
	{"StaleArtifactError", is[*coverage.StaleArtifactError]},
	{"InvalidPatternError", is[*coverage.InvalidPatternError]},
	{"InvalidDescriptionError", is[*testgen.InvalidDescriptionError]},
	{"EmptyClassSetError", is[*testgen.EmptyClassSetError]},
	{"SourceNotFoundError", is[*extract.SourceNotFoundError]},
	{"ParseError", is[*parser.ParseError]},
	{"FileReadError", is[*parser.FileReadError]},
	{"TimeoutError", is[*runner.TimeoutError]},
	{"ToolNotFoundError", is[*runner.ToolNotFoundError]},
	{"CommandError", is[*vcs.CommandError]},
	{"ProjectNotFoundError", is[*workflow.ProjectNotFoundError]},
	{"ArgumentError", is[*workflow.ArgumentError]},
	{"UnknownToolError", is[*UnknownToolError]},
	{"InvalidConfig", func(err error) bool { return errors.Is(err, config.ErrInvalidConfig) }},
	{"Canceled", func(err error) bool { return errors.Is(err, context.Canceled) }},
	{"Timeout", func(err error) bool { return errors.Is(err, context.DeadlineExceeded) }},
}

type located interface {
	Location() string
}

// Classify converts an error into its structured form. Errors carrying a
// location report it; unknown errors get kind "Error".
func Classify(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}

	te = &ToolError{Kind: "Error", Message: err.Error()}
	for _, k := range errorKinds {
		if k.match(err) {
			te.Kind = k.kind
			break
		}
	}
	var loc located
	if errors.As(err, &loc) {
		te.Location = loc.Location()
	}
	return te
}
