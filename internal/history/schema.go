package history

// schemaSQL defines the SQLite schema for the history database.
// Tables:
//   - runs: one row per recorded coverage report, with the surefire totals of
//     the test run that produced it when known
//   - run_metrics: per-metric counters of a run
const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    project TEXT NOT NULL,
    report TEXT NOT NULL,
    report_hash TEXT NOT NULL,
    recorded_at TEXT NOT NULL,
    tests_run INTEGER,
    tests_failed INTEGER,
    tests_errored INTEGER,
    tests_skipped INTEGER
);

CREATE TABLE IF NOT EXISTS run_metrics (
    run_id TEXT NOT NULL,
    metric TEXT NOT NULL,
    covered INTEGER NOT NULL,
    missed INTEGER NOT NULL,
    PRIMARY KEY (run_id, metric)
);

CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project, recorded_at DESC);
`

// initSchema creates the database tables and indexes if they don't exist.
func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}
