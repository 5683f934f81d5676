package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/covagent/internal/config"
	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/extract"
	"github.com/testforge/covagent/internal/runner"
	"github.com/testforge/covagent/internal/testgen"
)

const (
	mvnTest   = "mvn clean test -Dmaven.test.failure.ignore=true"
	mvnReport = "mvn jacoco:report"
)

// fakeExec returns scripted results keyed by "name arg1 arg2..." and runs
// an optional hook first, e.g. to write the report jacoco:report produces.
type fakeExec struct {
	mu      sync.Mutex
	results map[string]runner.Result
	hooks   map[string]func()
	paths   map[string]string
	calls   []string
}

func (f *fakeExec) Run(ctx context.Context, dir, name string, args ...string) (runner.Result, error) {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.mu.Lock()
	f.calls = append(f.calls, key)
	hook := f.hooks[key]
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.results[key], nil
}

func (f *fakeExec) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", &runner.ToolNotFoundError{Tool: name}
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// newProject lays out a Maven project with the coverage fixture report and
// the StringUtils source.
func newProject(t *testing.T, withReport bool) string {
	t.Helper()
	dir := t.TempDir()
	if withReport {
		writeFile(t, filepath.Join(dir, coverage.DefaultReportPath), readFixture(t, "../coverage/testdata/jacoco.xml"))
	}
	writeFile(t, filepath.Join(dir, extract.DefaultSourceRoot, "org/acme/util/StringUtils.java"),
		readFixture(t, "../extract/testdata/StringUtils.java"))
	return dir
}

func newService(t *testing.T, project string, ex runner.Executor) *Service {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Project.Path = project
	return New(cfg, ex)
}

func TestProject(t *testing.T) {
	dir := t.TempDir()
	svc := newService(t, dir, &fakeExec{})

	got, err := svc.Project("")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = svc.Project(filepath.Join(dir, "missing"))
	var notFound *ProjectNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, filepath.Join(dir, "missing"), notFound.Location())
}

func TestAnalyze(t *testing.T) {
	dir := newProject(t, true)
	svc := newService(t, dir, &fakeExec{})

	res, err := svc.Analyze(context.Background(), ReportRequest{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, coverage.DefaultReportPath), res.Path)
	assert.Equal(t, "commons-lang3", res.Report)
	assert.NotEmpty(t, res.Totals)
	assert.Equal(t, 4, res.Classes)
}

func TestAnalyze_MissingReport(t *testing.T) {
	dir := newProject(t, false)
	svc := newService(t, dir, &fakeExec{})

	_, err := svc.Analyze(context.Background(), ReportRequest{ProjectPath: dir})
	var missing *coverage.MissingArtifactError
	require.ErrorAs(t, err, &missing)
}

func TestUncovered(t *testing.T) {
	dir := newProject(t, true)
	svc := newService(t, dir, &fakeExec{})

	limit := 2
	res, err := svc.Uncovered(context.Background(), UncoveredRequest{Limit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Found)
	assert.Len(t, res.Methods, 2)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, 0.0, res.Methods[0].Coverage)

	bad := 120.0
	_, err = svc.Uncovered(context.Background(), UncoveredRequest{Threshold: &bad})
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "threshold", argErr.Name)
}

func findGap(r *coverage.GapsReport, line int) (coverage.Gap, bool) {
	for _, g := range r.Gaps {
		if g.Line == line && g.Kind == coverage.KindMethod {
			return g, true
		}
	}
	return coverage.Gap{}, false
}

func TestPrioritize_Classifiers(t *testing.T) {
	dir := newProject(t, true)
	svc := newService(t, dir, &fakeExec{})
	ctx := context.Background()

	none := 0
	source, err := svc.Prioritize(ctx, PrioritizeRequest{Limit: &none})
	require.NoError(t, err)
	g, ok := findGap(source, 40)
	require.True(t, ok, "abbreviate(String,int,int) should be a gap")
	assert.True(t, g.PublicAPI)
	assert.Equal(t, coverage.ReasonZeroCoverage, g.Reason)

	plain, err := svc.Prioritize(ctx, PrioritizeRequest{Limit: &none, Classifier: config.ClassifierNone})
	require.NoError(t, err)
	g, ok = findGap(plain, 40)
	require.True(t, ok)
	assert.False(t, g.PublicAPI)
	assert.Equal(t, source.Summary.TotalGaps, plain.Summary.TotalGaps)
}

func TestPrioritize_InvalidArguments(t *testing.T) {
	dir := newProject(t, true)
	svc := newService(t, dir, &fakeExec{})
	ctx := context.Background()

	tests := []struct {
		name string
		req  PrioritizeRequest
		arg  string
	}{
		{"metric", PrioritizeRequest{Metric: "STATEMENT"}, "metric"},
		{"scope", PrioritizeRequest{Scope: "packages"}, "scope"},
		{"classifier", PrioritizeRequest{Classifier: "magic"}, "classifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Prioritize(ctx, tt.req)
			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, tt.arg, argErr.Location())
		})
	}

	_, err := svc.Prioritize(ctx, PrioritizeRequest{Exclude: []string{"org/[acme"}})
	var patErr *coverage.InvalidPatternError
	require.ErrorAs(t, err, &patErr)
}

func TestBoundary(t *testing.T) {
	svc := newService(t, t.TempDir(), &fakeExec{})

	res, err := svc.Boundary(BoundaryRequest{
		ClassPath:  "org/apache/commons/lang3/StringUtils.java",
		MethodName: "abbreviate",
		Ranges:     []byte(`{"maxWidth": {"type": "int", "min": 4, "max": 100}}`),
		Render:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "StringUtils", res.Class)
	assert.Len(t, res.Cases, 7)
	require.NotNil(t, res.Template)
	assert.Contains(t, res.Template.Code, "testAbbreviate_maxWidth_AtMin")

	_, err = svc.Boundary(BoundaryRequest{ClassPath: "A.java", Ranges: []byte(`{}`)})
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "method_name", argErr.Name)

	_, err = svc.Boundary(BoundaryRequest{ClassPath: "A.java", MethodName: "m", Ranges: []byte(`{"x": {"type": "int", "min": 5, "max": 1}}`)})
	var descErr *testgen.InvalidDescriptionError
	require.ErrorAs(t, err, &descErr)
}

func TestEquivalence(t *testing.T) {
	svc := newService(t, t.TempDir(), &fakeExec{})

	res, err := svc.Equivalence(EquivalenceRequest{
		ClassPath:  "StringUtils.java",
		MethodName: "isEmpty",
		Classes:    []byte(`{"valid": ["empty", "non-empty"], "invalid": ["null"]}`),
	})
	require.NoError(t, err)
	assert.Len(t, res.Cases, 3)
	assert.Nil(t, res.Template)

	_, err = svc.Equivalence(EquivalenceRequest{ClassPath: "A.java", MethodName: "m", Classes: []byte(`{"valid": [], "invalid": []}`)})
	var empty *testgen.EmptyClassSetError
	require.ErrorAs(t, err, &empty)
}

func TestTemplate_Framework(t *testing.T) {
	svc := newService(t, t.TempDir(), &fakeExec{})

	tpl, err := svc.Template(TemplateRequest{ClassPath: "org/acme/Foo.java", MethodName: "bar", Framework: "junit5"})
	require.NoError(t, err)
	assert.Equal(t, "org.acme", tpl.Package)
	assert.Contains(t, tpl.Code, "org.junit.jupiter.api.Test")

	_, err = svc.Template(TemplateRequest{ClassPath: "Foo.java", MethodName: "bar", Framework: "testng"})
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "framework", argErr.Name)
}

func TestAnalyzeClass(t *testing.T) {
	dir := newProject(t, false)
	svc := newService(t, dir, &fakeExec{})

	a, err := svc.AnalyzeClass(context.Background(), ClassRequest{ClassPath: "org/acme/util/StringUtils.java"})
	require.NoError(t, err)
	assert.Equal(t, "org.acme.util", a.Package)

	var names []string
	for _, c := range a.Classes {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "StringUtils")
	assert.Contains(t, names, "StringUtils$Hidden")

	for _, c := range a.Classes {
		if c.Name == "StringUtils$Hidden" {
			assert.Empty(t, c.PublicMethods, "private nested class exposes nothing")
		}
	}
	assert.Greater(t, a.PublicMethods, 0)
	assert.Contains(t, a.Recommendations[0], "public methods to test")
	assert.NotEmpty(t, a.Table().Rows)
}

func TestAnalyzeClass_NotFound(t *testing.T) {
	svc := newService(t, t.TempDir(), &fakeExec{})

	_, err := svc.AnalyzeClass(context.Background(), ClassRequest{ClassPath: "org/acme/Missing.java"})
	var notFound *extract.SourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "org/acme/Missing.java", notFound.Location())
}

func TestDetectSmells(t *testing.T) {
	dir := newProject(t, false)
	svc := newService(t, dir, &fakeExec{})

	r, err := svc.DetectSmells(context.Background(), ClassRequest{ClassPath: "org/acme/util/StringUtils.java"})
	require.NoError(t, err)
	assert.Equal(t, len(r.Smells), r.Count)
}

func TestRunTests_RecordsHistory(t *testing.T) {
	dir := newProject(t, false)
	report := readFixture(t, "../coverage/testdata/jacoco.xml")
	ex := &fakeExec{
		results: map[string]runner.Result{
			mvnTest:   {Stdout: "Tests run: 12, Failures: 1, Errors: 0, Skipped: 2\nBUILD SUCCESS"},
			mvnReport: {Stdout: "BUILD SUCCESS"},
		},
		hooks: map[string]func(){
			mvnReport: func() {
				path := filepath.Join(dir, coverage.DefaultReportPath)
				_ = os.MkdirAll(filepath.Dir(path), 0o755)
				_ = os.WriteFile(path, report, 0o644)
				now := time.Now().Add(time.Second)
				_ = os.Chtimes(path, now, now)
			},
		},
	}
	svc := newService(t, dir, ex)
	ctx := context.Background()

	res, err := svc.RunTests(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 12, res.Summary.Run)
	assert.NotEmpty(t, res.Coverage)
	assert.NotEmpty(t, res.SnapshotID)
	assert.Empty(t, res.Delta, "first snapshot has nothing to compare against")

	// Same report again: not recorded twice.
	again, err := svc.RunTests(ctx, dir)
	require.NoError(t, err)
	assert.Empty(t, again.SnapshotID)

	hist, err := svc.History(ctx, HistoryRequest{})
	require.NoError(t, err)
	require.Len(t, hist.Snapshots, 1)
	assert.Equal(t, res.SnapshotID, hist.Snapshots[0].ID)
	require.NotNil(t, hist.Snapshots[0].Tests)
	assert.Equal(t, 1, hist.Snapshots[0].Tests.Failures)

	cleared, err := svc.History(ctx, HistoryRequest{Clear: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared.Cleared)
}

func TestRunTests_StaleReportIsWarning(t *testing.T) {
	dir := newProject(t, true)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, coverage.DefaultReportPath), old, old))

	ex := &fakeExec{results: map[string]runner.Result{
		mvnTest:   {Stdout: "BUILD SUCCESS"},
		mvnReport: {Stdout: "BUILD SUCCESS"},
	}}
	svc := newService(t, dir, ex)

	res, err := svc.RunTests(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "stale")
	assert.Empty(t, res.Coverage)
	assert.Empty(t, res.SnapshotID)
}

func TestRunTests_ReportGoalFailed(t *testing.T) {
	dir := newProject(t, false)
	ex := &fakeExec{results: map[string]runner.Result{
		mvnTest:   {Stdout: "BUILD SUCCESS"},
		mvnReport: {ExitCode: 1, Stdout: "BUILD FAILURE"},
	}}
	svc := newService(t, dir, ex)

	res, err := svc.RunTests(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "jacoco:report exited with 1")
}

func TestStaticAnalysis(t *testing.T) {
	dir := t.TempDir()
	ex := &fakeExec{results: map[string]runner.Result{
		"mvn checkstyle:check": {Stdout: "BUILD SUCCESS"},
		"mvn pmd:check":        {ExitCode: 1, Stdout: "[ERROR] Foo.java:3 Avoid unused imports\nBUILD FAILURE"},
	}}
	svc := newService(t, dir, ex)

	r, err := svc.StaticAnalysis(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, r.Passed())
	require.Len(t, r.Checks, 2)
	assert.True(t, r.Checks[0].Passed)
}

func TestGit(t *testing.T) {
	dir := t.TempDir()
	ex := &fakeExec{results: map[string]runner.Result{
		"git status --porcelain": {Stdout: "M  a.go\n?? b.go\n"},
	}}
	svc := newService(t, dir, ex)
	ctx := context.Background()

	st, err := svc.GitStatus(ctx, "")
	require.NoError(t, err)
	assert.Len(t, st.Staged, 1)
	assert.Len(t, st.Untracked, 1)

	_, err = svc.GitCommit(ctx, "", "")
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "message", argErr.Name)

	_, err = svc.GitPullRequest(ctx, PullRequestRequest{Title: "Add tests"})
	var notFound *runner.ToolNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "gh", notFound.Tool)
}
