// Package cmd contains all CLI commands for covagent.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/testforge/covagent/internal/config"
	"github.com/testforge/covagent/internal/output"
	"github.com/testforge/covagent/internal/runner"
	"github.com/testforge/covagent/internal/workflow"
)

// Version is the current version of covagent
var Version = "0.1.0"

const rootLongDescription = `covagent drives test coverage improvement for Maven projects.

It runs the tests with JaCoCo, reads the coverage report, ranks the gaps
that most need tests, generates JUnit skeletons from parameter ranges and
equivalence classes, and commits the result. Every operation is available
both as a command and as an MCP tool ('covagent serve').

Configuration:
  Settings are read from .covagent/config.yaml (see 'covagent init').
  Environment variables prefixed with COVAGENT_ override the file, e.g.
  COVAGENT_COVERAGE_THRESHOLD=70. Command flags override both.

Output Format:
  All commands output YAML by default. Use --format json for JSON or
  --format table for text tables.

Examples:
  covagent run                                  # Run tests and record coverage
  covagent gaps --limit 10                      # Rank the biggest gaps
  covagent class org/acme/Foo.java              # Inspect a class before writing tests
  covagent boundary Foo.java parse --ranges r.yaml
  covagent serve                                # Expose the tools over MCP stdio

See 'covagent <command> --help' for command-specific options.`

// app holds the state shared by every command of one invocation.
type app struct {
	v *viper.Viper

	configPath   string
	projectPath  string
	outputFormat string
	logFile      string
	verbose      bool
	forAgents    bool

	settings *config.Config
	format   output.Format
	svc      *workflow.Service

	// exec overrides the process runner, for tests.
	exec runner.Executor
	// closeLog releases the log file.
	closeLog func() error
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{v: newViper()})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "covagent",
		Short:         "Coverage-driven test generation for Maven projects",
		Long:          rootLongDescription,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(a, rootCmd)

	// Set custom help function to intercept --for-agents flag
	originalHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if a.forAgents {
			outputAgentHelp(cmd.OutOrStdout(), cmd)
			return
		}
		originalHelp(cmd, args)
	})

	rootCmd.AddCommand(
		newAnalyzeCmd(a),
		newUncoveredCmd(a),
		newGapsCmd(a),
		newBoundaryCmd(a),
		newEquivalenceCmd(a),
		newTemplateCmd(a),
		newClassCmd(a),
		newSmellsCmd(a),
		newRunCmd(a),
		newLintCmd(a),
		newGitCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newCallCmd(a),
		newInitCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func configureRootFlags(a *app, cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.configPath, "config", "", "Path to config file (default: .covagent/config.yaml)")
	flags.StringVarP(&a.projectPath, "project", "p", "", "Maven project directory (default: project.path or .)")
	bindFlagToConfig(a.v, flags.Lookup("project"), projectPathKey)
	flags.StringVarP(&a.outputFormat, "format", "f", string(output.DefaultFormat), "Output format (yaml|json|table)")
	flags.StringVar(&a.logFile, "log-file", "", "Log file (default: log.file)")
	bindFlagToConfig(a.v, flags.Lookup("log-file"), logFileKey)
	cmd.Flags().BoolVar(&a.forAgents, "for-agents", false, "Output machine-readable capability discovery JSON")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so env values and the
// flag land on the same setting.
func bindFlagToConfig(v *viper.Viper, flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(v.BindPFlag(key, flag))
}

// setup loads settings, applies env and flag overrides and starts logging.
func (a *app) setup(cmd *cobra.Command) error {
	format, err := output.ParseFormat(a.outputFormat)
	if err != nil {
		return err
	}
	a.format = format

	settings, err := a.loadSettings()
	if err != nil {
		return err
	}
	applyOverrides(a.v, settings)
	if err := config.Validate(settings); err != nil {
		return err
	}
	a.settings = settings

	project, err := settings.ResolveProject("")
	if err != nil {
		return err
	}
	a.closeLog = configureLogger(settings.Log, project, a.verbose)
	a.svc = workflow.New(settings, a.exec)
	return nil
}

func (a *app) loadSettings() (*config.Config, error) {
	if a.configPath != "" {
		return config.LoadFromPath(a.configPath)
	}
	start := a.v.GetString(projectPathKey)
	if start == "" {
		start = "."
	}
	return config.Load(start)
}

// write renders v in the selected format. For --format table, tabular is
// rendered instead when it is non-nil.
func (a *app) write(cmd *cobra.Command, v, tabular any) error {
	if a.format == output.FormatTable && tabular != nil {
		v = tabular
	}
	return output.Write(cmd.OutOrStdout(), a.format, v)
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// CommandInfo represents a command for agent discovery
type CommandInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Usage       string        `json:"usage"`
	Flags       []FlagInfo    `json:"flags,omitempty"`
	Subcommands []CommandInfo `json:"subcommands,omitempty"`
	Examples    []string      `json:"examples,omitempty"`
}

// FlagInfo represents a command flag for agent discovery
type FlagInfo struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
}

// outputAgentHelp outputs machine-readable JSON describing all commands
func outputAgentHelp(w io.Writer, cmd *cobra.Command) {
	root := buildCommandInfo(cmd.Root())

	out := map[string]any{
		"version":      Version,
		"commands":     root.Subcommands,
		"global_flags": root.Flags,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

// buildCommandInfo recursively builds command information for agent discovery
func buildCommandInfo(cmd *cobra.Command) CommandInfo {
	info := CommandInfo{
		Name:        cmd.Name(),
		Description: cmd.Short,
		Usage:       cmd.UseLine(),
	}

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		info.Flags = append(info.Flags, FlagInfo{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Description: f.Usage,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
		})
	})

	for _, sub := range cmd.Commands() {
		if !sub.Hidden {
			info.Subcommands = append(info.Subcommands, buildCommandInfo(sub))
		}
	}

	if cmd.Example != "" {
		for _, line := range strings.Split(cmd.Example, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				info.Examples = append(info.Examples, trimmed)
			}
		}
	}

	return info
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the covagent version",
		Args:  cobra.NoArgs,
		// Skips config loading so a broken config file cannot hide the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "covagent %s\n", Version)
		},
	}
}
