package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/testforge/covagent/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default .covagent/config.yaml",
		Long: `Create .covagent/config.yaml in the project directory with the default
settings. An existing file is never overwritten.`,
		Example: `  covagent init
  covagent init --project ../service`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := a.settings.ResolveProject("")
			if err != nil {
				return err
			}
			path, err := config.SaveDefault(project)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", path)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  covagent run     # run the tests and record coverage")
			fmt.Fprintln(out, "  covagent gaps    # rank what to test next")
			return nil
		},
	}
}
