package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/history"
	"github.com/testforge/covagent/internal/metrics"
	"github.com/testforge/covagent/internal/output"
	"github.com/testforge/covagent/internal/runner"
)

// RunResult is a Maven test run with the coverage it produced.
type RunResult struct {
	runner.TestRun `yaml:",inline"`
	Coverage       []coverage.MetricTotal `json:"coverage,omitempty" yaml:"coverage,omitempty"`
	SnapshotID     string                 `json:"snapshot_id,omitempty" yaml:"snapshot_id,omitempty"`
	Delta          []history.MetricDelta  `json:"delta,omitempty" yaml:"delta,omitempty"`
	Warnings       []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Table implements output.Tabular.
func (r *RunResult) Table() *output.Table {
	status := "passed"
	if !r.Succeeded() {
		status = "failed"
	}
	t := &output.Table{
		Title:  fmt.Sprintf("Maven run %s in %s", status, r.Duration.Round(time.Millisecond)),
		Header: []string{"Metric", "Covered", "Missed", "Coverage", "Change"},
	}
	for _, m := range r.Coverage {
		change := "-"
		for _, d := range r.Delta {
			if d.Metric == m.Metric {
				change = fmt.Sprintf("%+.1f", d.Change)
			}
		}
		t.Rows = append(t.Rows, []string{string(m.Metric), fmt.Sprint(m.Covered), fmt.Sprint(m.Missed), fmt.Sprintf("%.1f%%", m.Percentage), change})
	}
	if s := r.Summary; s != nil {
		t.Notes = append(t.Notes, fmt.Sprintf("tests run: %d, failures: %d, errors: %d, skipped: %d", s.Run, s.Failures, s.Errors, s.Skipped))
	}
	for _, w := range r.Warnings {
		t.Notes = append(t.Notes, "warning: "+w)
	}
	return t
}

// RunTests runs the test suite and the JaCoCo report, then loads the fresh
// report. Coverage problems after a completed run are warnings, not
// failures, so the test outcome is never lost.
func (s *Service) RunTests(ctx context.Context, projectPath string) (*RunResult, error) {
	project, err := s.Project(projectPath)
	if err != nil {
		return nil, err
	}
	run, err := s.maven.RunTests(ctx, project)
	if err != nil {
		return nil, err
	}

	res := &RunResult{TestRun: *run}
	if run.ReportExitCode != 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("jacoco:report exited with %d; coverage not loaded", run.ReportExitCode))
		return res, nil
	}

	loader := &coverage.Loader{
		ProjectPath: project,
		ReportPath:  s.cfg.Project.ReportPath,
		NotBefore:   run.StartedAt.Truncate(time.Second),
	}
	loaded, err := loader.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.Warnings = append(res.Warnings, err.Error())
		return res, nil
	}
	summary := coverage.Summarize(loaded.Root)
	res.Coverage = summary.Totals

	if s.cfg.History.IsEnabled() {
		if err := s.record(ctx, project, loaded, summary, run.Summary, res); err != nil {
			slog.Warn("recording coverage history failed", "project", project, "error", err)
			res.Warnings = append(res.Warnings, "coverage history not recorded: "+err.Error())
		}
	}
	return res, nil
}

// record stores a snapshot unless the report is unchanged since the last
// one, and fills in the delta against the previous snapshot.
func (s *Service) record(ctx context.Context, project string, loaded *coverage.Loaded, summary *coverage.Summary, tests *runner.TestSummary, res *RunResult) error {
	hash, err := history.HashFile(loaded.Path)
	if err != nil {
		return fmt.Errorf("hash report: %w", err)
	}
	store, err := history.Open(s.cfg.HistoryPath(project))
	if err != nil {
		return err
	}
	defer store.Close()

	changed, err := store.Changed(ctx, project, hash)
	if err != nil {
		return err
	}
	if !changed {
		slog.Debug("coverage report unchanged, not recording", "project", project)
		return nil
	}

	prev, err := store.Latest(ctx, project)
	if err != nil && !errors.Is(err, history.ErrNoSnapshots) {
		return err
	}

	snap := history.NewSnapshot(project, loaded, summary, hash)
	snap.Tests = tests
	if err := store.Record(ctx, snap); err != nil {
		return err
	}
	metrics.SnapshotsRecorded.Inc()

	res.SnapshotID = snap.ID
	if prev != nil {
		res.Delta = history.Delta(prev, snap)
	}
	return nil
}

// StaticAnalysis runs Checkstyle and PMD.
func (s *Service) StaticAnalysis(ctx context.Context, projectPath string) (*runner.LintReport, error) {
	project, err := s.Project(projectPath)
	if err != nil {
		return nil, err
	}
	return s.maven.StaticAnalysis(ctx, project)
}

// HistoryRequest selects snapshots of one project.
type HistoryRequest struct {
	ProjectPath string
	// Limit caps the snapshots returned, newest first (0 = all).
	Limit int
	// Clear deletes the project's history instead of listing it.
	Clear bool
}

// HistoryResult lists snapshots and the change between the newest two.
type HistoryResult struct {
	Project   string                `json:"project" yaml:"project"`
	Snapshots []*history.Snapshot   `json:"snapshots" yaml:"snapshots"`
	Delta     []history.MetricDelta `json:"delta,omitempty" yaml:"delta,omitempty"`
	Cleared   int64                 `json:"cleared,omitempty" yaml:"cleared,omitempty"`
}

// History lists or clears the recorded snapshots of a project.
func (s *Service) History(ctx context.Context, req HistoryRequest) (*HistoryResult, error) {
	project, err := s.Project(req.ProjectPath)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, &ArgumentError{Name: "limit", Reason: "must not be negative"}
	}
	store, err := history.Open(s.cfg.HistoryPath(project))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	res := &HistoryResult{Project: project, Snapshots: []*history.Snapshot{}}
	if req.Clear {
		res.Cleared, err = store.Clear(ctx, project)
		return res, err
	}
	snaps, err := store.List(ctx, project, req.Limit)
	if err != nil {
		return nil, err
	}
	res.Snapshots = snaps
	if len(snaps) >= 2 {
		res.Delta = history.Delta(snaps[1], snaps[0])
	}
	return res, nil
}
