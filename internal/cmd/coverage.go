package cmd

import (
	"github.com/spf13/cobra"

	"github.com/testforge/covagent/internal/workflow"
)

func addReportFlags(cmd *cobra.Command, req *workflow.ReportRequest) {
	cmd.Flags().StringVar(&req.ReportPath, "report", "", "JaCoCo XML report, relative to the project (default: project.report_path)")
	cmd.Flags().BoolVar(&req.AllModules, "all-modules", false, "Merge the reports of every module matching project.report_glob")
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var req workflow.ReportRequest

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize the coverage report",
		Long: `Summarize the JaCoCo report of a project: totals per counter and
coverage per package, class and method.

Run 'covagent run' first to produce the report.`,
		Example: `  covagent analyze
  covagent analyze --all-modules --format table
  covagent analyze --report build/jacoco.xml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.svc.Analyze(a.context(cmd), req)
			if err != nil {
				return err
			}
			return a.write(cmd, res, &res.Summary)
		},
	}
	addReportFlags(cmd, &req)
	return cmd
}

func newUncoveredCmd(a *app) *cobra.Command {
	var (
		req       workflow.UncoveredRequest
		threshold float64
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "uncovered",
		Short: "List methods below a line coverage threshold",
		Example: `  covagent uncovered
  covagent uncovered --threshold 50 --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}
			if cmd.Flags().Changed("limit") {
				req.Limit = &limit
			}
			res, err := a.svc.Uncovered(a.context(cmd), req)
			if err != nil {
				return err
			}
			return a.write(cmd, res, nil)
		},
	}
	addReportFlags(cmd, &req.ReportRequest)
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Line coverage percentage below which a method is listed (default: coverage.threshold)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum methods to list, 0 for all (default: coverage.limit)")
	return cmd
}

func newGapsCmd(a *app) *cobra.Command {
	var (
		req       workflow.PrioritizeRequest
		threshold float64
		limit     int
		weight    float64
	)

	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "Rank coverage gaps by testing priority",
		Long: `Rank the classes and methods below the coverage threshold by how much
they need tests. The score grows with missed coverage and is boosted for
public API, which is recognized from the Java sources by default.

Classifiers:
  source   public members of public classes, read from src/main/java
  naming   the method and class naming convention only
  none     no public API boost`,
		Example: `  covagent gaps
  covagent gaps --limit 10 --metric branch
  covagent gaps --scope all --exclude 'org/acme/generated/**'
  covagent gaps --by-priority --format table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}
			if cmd.Flags().Changed("limit") {
				req.Limit = &limit
			}
			if cmd.Flags().Changed("public-api-weight") {
				req.PublicAPIWeight = &weight
			}
			res, err := a.svc.Prioritize(a.context(cmd), req)
			if err != nil {
				return err
			}
			return a.write(cmd, res, nil)
		},
	}
	addReportFlags(cmd, &req.ReportRequest)
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Coverage percentage below which an element is a gap (default: coverage.threshold)")
	cmd.Flags().StringVar(&req.Metric, "metric", "", "Counter to rank by: line, branch, instruction, method or complexity (default: coverage.metric)")
	cmd.Flags().StringVar(&req.Scope, "scope", "", "Elements to rank: leaves or all (default: coverage.scope)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum gaps to return, 0 for all (default: coverage.limit)")
	cmd.Flags().StringSliceVar(&req.Exclude, "exclude", nil, "Glob over slash paths such as org/acme/gen/** (repeatable)")
	cmd.Flags().Float64Var(&weight, "public-api-weight", 0, "Score multiplier for public API (default: coverage.public_api_weight)")
	cmd.Flags().StringVar(&req.Classifier, "classifier", "", "Public API classifier: source, naming or none (default: coverage.classifier)")
	cmd.Flags().BoolVar(&req.ByPriority, "by-priority", false, "Group the gaps into priority tiers")
	return cmd
}
