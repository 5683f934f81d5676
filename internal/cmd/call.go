package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/testforge/covagent/internal/mcp"
	"github.com/testforge/covagent/internal/output"
)

type callOptions struct {
	list bool
	pipe bool
}

// toolAliases maps command names to the tools they share logic with.
var toolAliases = map[string]string{
	"run":         "run_maven_tests",
	"analyze":     "analyze_coverage",
	"uncovered":   "identify_uncovered_code",
	"gaps":        "prioritize_gaps",
	"boundary":    "generate_boundary_value_tests",
	"equivalence": "generate_equivalence_class_tests",
	"template":    "generate_test_template",
	"class":       "analyze_java_class",
	"smells":      "detect_code_smells",
	"lint":        "run_static_analysis",
	"history":     "coverage_history",
	"status":      "git_status",
	"add":         "git_add_all",
	"commit":      "git_commit",
	"push":        "git_push",
	"pr":          "git_pull_request",
}

// normalizeToolName converts shorthand names to full tool names.
// "gaps" -> "prioritize_gaps", "analyze-coverage" -> "analyze_coverage"
func normalizeToolName(name string) string {
	name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	if full, ok := toolAliases[name]; ok {
		return full
	}
	return name
}

func newCallCmd(a *app) *cobra.Command {
	var opts callOptions

	cmd := &cobra.Command{
		Use:   "call [tool] [json-args]",
		Short: "Call any MCP tool with JSON input and output",
		Long: `Call a covagent tool exactly as an agent would over MCP, without
starting a server. Tools accept JSON arguments and return JSON results;
failures print a structured error of the form
{"error": {"kind": ..., "message": ..., "location": ...}}.

Modes:
  covagent call --list                          List all tools and parameters
  covagent call <tool> '{"key":"value"}'        Call a tool with JSON args
  covagent call --pipe                          Read JSON lines from stdin

Tool names accept the command name as shorthand: "gaps" is equivalent to
"prioritize_gaps".`,
		Example: `  covagent call --list
  covagent call analyze_coverage '{"project_path":"."}'
  covagent call gaps '{"limit":5,"classifier":"naming"}'
  covagent call boundary '{"class_path":"Range.java","method_name":"of","param_ranges":"{\"lo\":{\"type\":\"int\",\"min\":0,\"max\":9}}"}'
  echo '{"tool":"git_status","args":{}}' | covagent call --pipe`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.list:
				return runCallList(a, cmd)
			case opts.pipe:
				return runCallPipe(a, cmd)
			case len(args) == 0:
				return fmt.Errorf("tool name required (run 'covagent call --list' to see available tools)")
			}
			return runCallSingle(a, cmd, args)
		},
	}
	cmd.Flags().BoolVar(&opts.list, "list", false, "List all available tools and their parameters")
	cmd.Flags().BoolVar(&opts.pipe, "pipe", false, "Read JSON lines from stdin (pipe mode)")
	return cmd
}

func (a *app) newToolServer() (*mcp.Server, error) {
	srv, err := mcp.New(mcp.Config{Tools: mcp.AllTools, Version: Version, Settings: a.settings, Exec: a.exec})
	if err != nil {
		return nil, fmt.Errorf("create server: %w", err)
	}
	return srv, nil
}

func runCallList(a *app, cmd *cobra.Command) error {
	srv, err := a.newToolServer()
	if err != nil {
		return err
	}
	schemas := srv.GetToolSchemas()

	if a.format == output.FormatTable {
		t := &output.Table{Header: []string{"Tool", "Parameters", "Description"}}
		for _, s := range schemas {
			var params []string
			for _, p := range s.Parameters {
				name := p.Name
				if p.Required {
					name += "*"
				}
				params = append(params, name)
			}
			t.Rows = append(t.Rows, []string{s.Name, strings.Join(params, ", "), firstLine(s.Description)})
		}
		t.Notes = []string{"* required"}
		return a.write(cmd, t, nil)
	}
	return a.write(cmd, schemas, nil)
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, ".\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// errToolFailed signals a failure whose details were already printed.
var errToolFailed = errors.New("tool call failed")

func runCallSingle(a *app, cmd *cobra.Command, args []string) error {
	toolName := normalizeToolName(args[0])

	toolArgs := map[string]any{}
	if len(args) >= 2 && strings.TrimSpace(args[1]) != "" {
		if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
			return fmt.Errorf("invalid JSON args: %w", err)
		}
	}

	srv, err := a.newToolServer()
	if err != nil {
		return err
	}

	result, err := srv.CallTool(a.context(cmd), toolName, toolArgs)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), mcp.Classify(err).JSON())
		return fmt.Errorf("%w: %s", errToolFailed, toolName)
	}

	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

// pipeRequest is the JSON format for pipe mode input.
type pipeRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// pipeResponse is the JSON format for pipe mode output.
type pipeResponse struct {
	Tool   string          `json:"tool,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *mcp.ToolError  `json:"error,omitempty"`
}

func runCallPipe(a *app, cmd *cobra.Command) error {
	srv, err := a.newToolServer()
	if err != nil {
		return err
	}

	ctx := a.context(cmd)
	enc := json.NewEncoder(cmd.OutOrStdout())
	scanner := bufio.NewScanner(cmd.InOrStdin())
	// Allow larger lines (1MB)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req pipeRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			_ = enc.Encode(pipeResponse{Error: &mcp.ToolError{Kind: "ArgumentError", Message: fmt.Sprintf("invalid JSON: %v", err)}})
			continue
		}

		toolName := normalizeToolName(req.Tool)
		if req.Args == nil {
			req.Args = make(map[string]any)
		}

		result, err := srv.CallTool(ctx, toolName, req.Args)
		if err != nil {
			_ = enc.Encode(pipeResponse{Tool: toolName, Error: mcp.Classify(err)})
			continue
		}
		_ = enc.Encode(pipeResponse{Tool: toolName, Result: json.RawMessage(result)})
	}

	return scanner.Err()
}
