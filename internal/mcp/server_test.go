package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/testforge/covagent/internal/config"
	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/runner"
)

// stubExec fails every command as if the executable were missing.
type stubExec struct{}

func (stubExec) Run(ctx context.Context, dir, name string, args ...string) (runner.Result, error) {
	return runner.Result{ExitCode: 128, Stderr: "fatal: not a git repository"}, nil
}

func (stubExec) LookPath(name string) (string, error) {
	return "", &runner.ToolNotFoundError{Tool: name}
}

func newTestServer(t *testing.T, withReport bool) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	if withReport {
		data, err := os.ReadFile("../coverage/testdata/jacoco.xml")
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, coverage.DefaultReportPath)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	settings := config.DefaultConfig()
	settings.Project.Path = dir
	s, err := New(Config{Settings: settings, Exec: stubExec{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, dir
}

func TestNew_RegistersAllToolsByDefault(t *testing.T) {
	s, _ := newTestServer(t, false)

	got := s.ListTools()
	if len(got) != len(AllTools) {
		t.Fatalf("registered %d tools, want %d", len(got), len(AllTools))
	}
	for i, name := range AllTools {
		if got[i] != name {
			t.Errorf("tool %d = %s, want %s", i, got[i], name)
		}
	}
	if len(s.GetToolSchemas()) != len(AllTools) {
		t.Errorf("GetToolSchemas returned %d schemas", len(s.GetToolSchemas()))
	}
}

func TestNew_SubsetAndUnknown(t *testing.T) {
	s, err := New(Config{Tools: []string{"analyze_coverage", "prioritize_gaps"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.ListTools(); len(got) != 2 {
		t.Errorf("ListTools = %v", got)
	}

	if _, err := New(Config{Tools: []string{"cx_find"}}); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestCallTool_AnalyzeCoverage(t *testing.T) {
	s, dir := newTestServer(t, true)

	out, err := s.CallTool(context.Background(), "analyze_coverage", map[string]any{"project_path": dir})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}

	var res struct {
		Path   string                 `json:"path"`
		Report string                 `json:"report"`
		Totals []coverage.MetricTotal `json:"totals"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, out)
	}
	if res.Report != "commons-lang3" {
		t.Errorf("report = %q", res.Report)
	}
	if len(res.Totals) == 0 {
		t.Error("no totals")
	}
}

func TestCallTool_ProjectPathFallsBackToSettings(t *testing.T) {
	s, _ := newTestServer(t, true)

	out, err := s.CallTool(context.Background(), "prioritize_gaps", map[string]any{
		"limit":      float64(3),
		"classifier": "naming",
		"exclude":    []any{"org/acme/math/**"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	var res coverage.GapsReport
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Summary.Shown != 3 {
		t.Errorf("shown = %d, want 3", res.Summary.Shown)
	}
	for _, g := range res.Gaps {
		if strings.Contains(g.QualifiedName, "math") {
			t.Errorf("excluded gap returned: %s", g.QualifiedName)
		}
	}
}

func TestCallTool_Errors(t *testing.T) {
	s, dir := newTestServer(t, false)
	ctx := context.Background()

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		kind     string
		location string
	}{
		{
			name:     "missing report",
			tool:     "analyze_coverage",
			args:     map[string]any{},
			kind:     "MissingArtifactError",
			location: filepath.Join(dir, coverage.DefaultReportPath),
		},
		{
			name:     "missing project",
			tool:     "identify_uncovered_code",
			args:     map[string]any{"project_path": filepath.Join(dir, "nope")},
			kind:     "ProjectNotFoundError",
			location: filepath.Join(dir, "nope"),
		},
		{
			name:     "bad number",
			tool:     "identify_uncovered_code",
			args:     map[string]any{"threshold": "lots"},
			kind:     "ArgumentError",
			location: "threshold",
		},
		{
			name:     "invalid ranges",
			tool:     "generate_boundary_value_tests",
			args:     map[string]any{"class_path": "A.java", "method_name": "m", "param_ranges": `{"x": {"type": "int", "min": 9, "max": 1}}`},
			kind:     "InvalidDescriptionError",
			location: "x.max",
		},
		{
			name:     "missing ranges",
			tool:     "generate_boundary_value_tests",
			args:     map[string]any{"class_path": "A.java", "method_name": "m"},
			kind:     "ArgumentError",
			location: "param_ranges",
		},
		{
			name:     "empty classes",
			tool:     "generate_equivalence_class_tests",
			args:     map[string]any{"class_path": "A.java", "method_name": "m", "equivalence_classes": `{"valid": [], "invalid": []}`},
			kind:     "EmptyClassSetError",
		},
		{
			name:     "missing source",
			tool:     "analyze_java_class",
			args:     map[string]any{"class_path": "org/acme/Nope.java"},
			kind:     "SourceNotFoundError",
			location: "org/acme/Nope.java",
		},
		{
			name: "git failure",
			tool: "git_status",
			args: map[string]any{},
			kind: "CommandError",
		},
		{
			name: "gh missing",
			tool: "git_pull_request",
			args: map[string]any{"title": "Add tests"},
			kind: "ToolNotFoundError",
		},
		{
			name:     "unknown tool",
			tool:     "cx_find",
			args:     map[string]any{},
			kind:     "UnknownToolError",
			location: "cx_find",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CallTool(ctx, tt.tool, tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			te := Classify(err)
			if te.Kind != tt.kind {
				t.Errorf("kind = %s, want %s (%v)", te.Kind, tt.kind, err)
			}
			if tt.location != "" && te.Location != tt.location {
				t.Errorf("location = %q, want %q", te.Location, tt.location)
			}
		})
	}
}

func TestHandler_ReturnsStructuredErrorResult(t *testing.T) {
	s, _ := newTestServer(t, false)

	req := mcp.CallToolRequest{}
	req.Params.Name = "analyze_coverage"
	req.Params.Arguments = map[string]any{}

	res, err := s.handler("analyze_coverage")(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}

	var envelope struct {
		Error ToolError `json:"error"`
	}
	if err := json.Unmarshal([]byte(text.Text), &envelope); err != nil {
		t.Fatalf("error result is not JSON: %v\n%s", err, text.Text)
	}
	if envelope.Error.Kind != "MissingArtifactError" {
		t.Errorf("kind = %s", envelope.Error.Kind)
	}
	if !strings.Contains(envelope.Error.Message, "run_maven_tests") {
		t.Errorf("message should point at run_maven_tests: %s", envelope.Error.Message)
	}
}

func TestHandler_Success(t *testing.T) {
	s, _ := newTestServer(t, false)

	req := mcp.CallToolRequest{}
	req.Params.Name = "generate_boundary_value_tests"
	req.Params.Arguments = map[string]any{
		"class_path":   "org/apache/commons/lang3/StringUtils.java",
		"method_name":  "abbreviate",
		"param_ranges": map[string]any{"maxWidth": map[string]any{"type": "int", "min": 4, "max": 100}},
	}

	res, err := s.handler("generate_boundary_value_tests")(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %v", res.Content)
	}
	text := res.Content[0].(mcp.TextContent).Text
	var out struct {
		Class string            `json:"class"`
		Cases []json.RawMessage `json:"cases"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatal(err)
	}
	if out.Class != "StringUtils" || len(out.Cases) != 7 {
		t.Errorf("class = %s, cases = %d", out.Class, len(out.Cases))
	}
}

func TestUpdateActivity(t *testing.T) {
	s, _ := newTestServer(t, false)
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	if s.idleFor() < time.Hour {
		t.Fatal("expected an hour of inactivity")
	}
	s.updateActivity()
	if s.idleFor() > time.Minute {
		t.Error("activity not recorded")
	}
}

func TestTimeoutChecker_FiresOnIdle(t *testing.T) {
	s, _ := newTestServer(t, false)
	s.timeout = 20 * time.Millisecond
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-time.Second)
	s.mu.Unlock()

	fired := make(chan struct{})
	go s.timeoutChecker(context.Background(), func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout checker did not fire")
	}
}

func TestTimeoutChecker_StopsWithContext(t *testing.T) {
	s, _ := newTestServer(t, false)
	s.timeout = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.timeoutChecker(ctx, func() { t.Error("should not fire") })
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout checker did not stop")
	}
}

func TestTimeoutChecker_TinyTimeout(t *testing.T) {
	s, _ := newTestServer(t, false)
	s.timeout = time.Nanosecond
	if got := s.checkInterval(); got != minCheckInterval {
		t.Errorf("checkInterval = %s, want %s", got, minCheckInterval)
	}

	fired := make(chan struct{})
	go s.timeoutChecker(context.Background(), func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout checker did not fire")
	}
}
