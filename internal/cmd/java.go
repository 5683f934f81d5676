package cmd

import (
	"github.com/spf13/cobra"

	"github.com/testforge/covagent/internal/workflow"
)

func newClassCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "class <class-path>",
		Short: "Analyze a Java class before writing its tests",
		Long: `Parse a Java source file and list its classes, public methods and
fields, with recommendations for what to test.

The class path may be absolute or relative to the project or to
src/main/java.`,
		Example: `  covagent class src/main/java/org/acme/Parser.java
  covagent class org/acme/Parser.java
  covagent class org/acme/Parser.java --format table`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.AnalyzeClass(a.context(cmd), workflow.ClassRequest{ClassPath: args[0]})
			if err != nil {
				return err
			}
			return a.write(cmd, res, nil)
		},
	}
}

func newSmellsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "smells <class-path>",
		Short: "Detect code smells in a Java class",
		Long: `Report long methods, large classes, long parameter lists, magic numbers
and duplicated lines in a Java source file.`,
		Example: `  covagent smells org/acme/Parser.java
  covagent smells org/acme/Parser.java --format table`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.DetectSmells(a.context(cmd), workflow.ClassRequest{ClassPath: args[0]})
			if err != nil {
				return err
			}
			return a.write(cmd, res, res.Smells)
		},
	}
}
