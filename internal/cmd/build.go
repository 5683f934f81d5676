package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testforge/covagent/internal/workflow"
)

func newRunCmd(a *app) *cobra.Command {
	var failOnTests bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the Maven tests and load the fresh coverage report",
		Long: `Run 'mvn clean test' with test failures ignored, then 'mvn jacoco:report',
and summarize the report they produced. A report older than the run is
never used.

Each run with a new report is recorded in the coverage history unless
history.enabled is false.`,
		Example: `  covagent run
  covagent run --project ../service --format table
  covagent run --fail-on-tests`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.RunTests(a.context(cmd), "")
			if err != nil {
				return err
			}
			if err := a.write(cmd, res, nil); err != nil {
				return err
			}
			if failOnTests && !res.Succeeded() {
				return fmt.Errorf("tests failed (exit code %d)", res.TestExitCode)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnTests, "fail-on-tests", false, "Exit non-zero when the tests fail")
	return cmd
}

func newLintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Run Checkstyle and PMD",
		Long: `Run 'mvn checkstyle:check' and 'mvn pmd:check' and report each check.
A missing plugin is reported as a failed check, not an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.StaticAnalysis(a.context(cmd), "")
			if err != nil {
				return err
			}
			return a.write(cmd, res, nil)
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var req workflow.HistoryRequest

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded coverage snapshots",
		Long: `List the coverage snapshots recorded by 'covagent run', newest first,
with the change between the two most recent.`,
		Example: `  covagent history
  covagent history --limit 5 --format table
  covagent history --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.History(a.context(cmd), req)
			if err != nil {
				return err
			}
			if req.Clear {
				return a.write(cmd, res, nil)
			}
			return a.write(cmd, res, res.Snapshots)
		},
	}
	cmd.Flags().IntVar(&req.Limit, "limit", 10, "Maximum snapshots to show, 0 for all")
	cmd.Flags().BoolVar(&req.Clear, "clear", false, "Delete the project's history")
	return cmd
}
