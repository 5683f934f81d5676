// Package history provides SQLite-backed storage of coverage snapshots.
// The database lives in .covagent/history.db and lets agents see whether
// coverage moved between test runs.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/runner"
)

// DefaultFile is the database file name inside the state directory.
const DefaultFile = "history.db"

// ErrNoSnapshots is returned by Latest when a project has no history.
var ErrNoSnapshots = errors.New("no coverage snapshots recorded")

// Store manages the history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the history database at path. A path without a
// .db suffix is taken as a directory holding DefaultFile.
func Open(path string) (*Store, error) {
	dbPath := path
	if filepath.Ext(path) != ".db" {
		dbPath = filepath.Join(path, DefaultFile)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// Enable WAL mode for concurrent readers
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Snapshot is the coverage of a project at one point in time.
type Snapshot struct {
	ID         string                 `json:"id" yaml:"id"`
	Project    string                 `json:"project" yaml:"project"`
	Report     string                 `json:"report" yaml:"report"`
	ReportHash string                 `json:"report_hash" yaml:"report_hash"`
	RecordedAt time.Time              `json:"recorded_at" yaml:"recorded_at"`
	Tests      *runner.TestSummary    `json:"tests,omitempty" yaml:"tests,omitempty"`
	Totals     []coverage.MetricTotal `json:"totals" yaml:"totals"`
}

// Total returns the counters of one metric.
func (s *Snapshot) Total(kind coverage.MetricKind) (coverage.MetricTotal, bool) {
	for _, t := range s.Totals {
		if t.Metric == kind {
			return t, true
		}
	}
	return coverage.MetricTotal{}, false
}

// NewSnapshot builds a snapshot from a loaded report and its summary.
func NewSnapshot(project string, loaded *coverage.Loaded, summary *coverage.Summary, hash string) *Snapshot {
	return &Snapshot{
		Project:    project,
		Report:     loaded.Path,
		ReportHash: hash,
		Totals:     summary.Totals,
	}
}

// HashFile returns the hex SHA-256 of a report file.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Record stores a snapshot, assigning its id and timestamp when unset.
func (s *Store) Record(ctx context.Context, snap *Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.RecordedAt.IsZero() {
		snap.RecordedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	var run, failed, errored, skipped sql.NullInt64
	if t := snap.Tests; t != nil {
		run = sql.NullInt64{Int64: int64(t.Run), Valid: true}
		failed = sql.NullInt64{Int64: int64(t.Failures), Valid: true}
		errored = sql.NullInt64{Int64: int64(t.Errors), Valid: true}
		skipped = sql.NullInt64{Int64: int64(t.Skipped), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, project, report, report_hash, recorded_at,
			tests_run, tests_failed, tests_errored, tests_skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Project, snap.Report, snap.ReportHash, snap.RecordedAt.Format(time.RFC3339Nano),
		run, failed, errored, skipped,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", snap.ID, err)
	}
	for _, t := range snap.Totals {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_metrics (run_id, metric, covered, missed) VALUES (?, ?, ?, ?)`,
			snap.ID, string(t.Metric), t.Covered, t.Missed,
		)
		if err != nil {
			return fmt.Errorf("insert metric %s: %w", t.Metric, err)
		}
	}
	return tx.Commit()
}

// List returns a project's snapshots, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, project string, limit int) ([]*Snapshot, error) {
	query := `
		SELECT id, project, report, report_hash, recorded_at,
			tests_run, tests_failed, tests_errored, tests_skipped
		FROM runs WHERE project = ?
		ORDER BY recorded_at DESC, rowid DESC`
	args := []any{project}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	snaps := []*Snapshot{}
	for rows.Next() {
		snap, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for _, snap := range snaps {
		if err := s.loadTotals(ctx, snap); err != nil {
			return nil, err
		}
	}
	return snaps, nil
}

// Latest returns the newest snapshot of a project, or ErrNoSnapshots.
func (s *Store) Latest(ctx context.Context, project string) (*Snapshot, error) {
	snaps, err := s.List(ctx, project, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNoSnapshots
	}
	return snaps[0], nil
}

// Changed reports whether hash differs from the newest recorded report of
// the project, or the project has no history.
func (s *Store) Changed(ctx context.Context, project, hash string) (bool, error) {
	latest, err := s.Latest(ctx, project)
	if errors.Is(err, ErrNoSnapshots) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return latest.ReportHash != hash, nil
}

// Clear removes every snapshot of a project and returns how many went.
func (s *Store) Clear(ctx context.Context, project string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM run_metrics WHERE run_id IN (SELECT id FROM runs WHERE project = ?)`, project)
	if err != nil {
		return 0, fmt.Errorf("clear metrics: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE project = ?", project)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var recordedAt string
	var run, failed, errored, skipped sql.NullInt64
	err := row.Scan(&snap.ID, &snap.Project, &snap.Report, &snap.ReportHash, &recordedAt,
		&run, &failed, &errored, &skipped)
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	snap.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
	if run.Valid {
		snap.Tests = &runner.TestSummary{
			Run:      int(run.Int64),
			Failures: int(failed.Int64),
			Errors:   int(errored.Int64),
			Skipped:  int(skipped.Int64),
		}
	}
	return &snap, nil
}

func (s *Store) loadTotals(ctx context.Context, snap *Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metric, covered, missed FROM run_metrics WHERE run_id = ?`, snap.ID)
	if err != nil {
		return fmt.Errorf("query metrics for %s: %w", snap.ID, err)
	}
	defer rows.Close()

	byKind := make(map[coverage.MetricKind]coverage.Counter)
	for rows.Next() {
		var metric string
		var c coverage.Counter
		if err := rows.Scan(&metric, &c.Covered, &c.Missed); err != nil {
			return fmt.Errorf("scan metric: %w", err)
		}
		byKind[coverage.MetricKind(metric)] = c
	}
	if err := rows.Err(); err != nil {
		return err
	}

	snap.Totals = []coverage.MetricTotal{}
	for _, kind := range coverage.AllMetricKinds {
		c, ok := byKind[kind]
		if !ok {
			continue
		}
		snap.Totals = append(snap.Totals, coverage.MetricTotal{
			Metric:     kind,
			Covered:    c.Covered,
			Missed:     c.Missed,
			Total:      c.Total(),
			Percentage: c.Percentage(),
		})
	}
	return nil
}

// MetricDelta is the change of one metric between two snapshots.
type MetricDelta struct {
	Metric   coverage.MetricKind `json:"metric" yaml:"metric"`
	Previous float64             `json:"previous" yaml:"previous"`
	Current  float64             `json:"current" yaml:"current"`
	Change   float64             `json:"change" yaml:"change"`
}

// Delta compares cur against prev for every metric present in cur. A metric
// missing from prev counts as 0%.
func Delta(prev, cur *Snapshot) []MetricDelta {
	deltas := []MetricDelta{}
	if cur == nil {
		return deltas
	}
	for _, t := range cur.Totals {
		d := MetricDelta{Metric: t.Metric, Current: t.Percentage}
		if prev != nil {
			if p, ok := prev.Total(t.Metric); ok {
				d.Previous = p.Percentage
			}
		}
		d.Change = d.Current - d.Previous
		deltas = append(deltas, d)
	}
	return deltas
}
