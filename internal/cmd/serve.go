package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/testforge/covagent/internal/config"
	"github.com/testforge/covagent/internal/mcp"
	"github.com/testforge/covagent/internal/metrics"
)

type serveOptions struct {
	tools     string
	status    bool
	stop      bool
	listTools bool
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server for AI agent integration",
		Long: `Start an MCP (Model Context Protocol) server exposing every covagent
operation as a tool, so an agent can run the tests, read coverage, generate
tests and commit them without spawning CLI commands.

Transports:
  stdio   the agent launches 'covagent serve' and talks over stdin/stdout
  sse     HTTP server-sent events on --addr

Tools default to the project set by --project or project.path; every tool
also accepts project_path (or repo_path) per call.

Examples:
  covagent serve                                  # stdio, all tools
  covagent serve --transport sse --addr :8000     # HTTP/SSE
  covagent serve --tools analyze_coverage,prioritize_gaps
  covagent serve --metrics-addr :9090             # Prometheus /metrics
  covagent serve --status                         # Check if server is running
  covagent serve --stop                           # Stop running server
  covagent serve --list-tools                     # Show available tools`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(a, cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.String("transport", "", "Transport: stdio or sse (default: server.transport)")
	bindFlagToConfig(a.v, flags.Lookup("transport"), serverTransportKey)
	flags.String("addr", "", "Listen address for sse (default: server.addr)")
	bindFlagToConfig(a.v, flags.Lookup("addr"), serverAddrKey)
	flags.String("timeout", "", "Inactivity timeout, 0 for none (default: server.timeout)")
	bindFlagToConfig(a.v, flags.Lookup("timeout"), serverTimeoutKey)
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (default: server.metrics_addr)")
	bindFlagToConfig(a.v, flags.Lookup("metrics-addr"), serverMetricsKey)
	flags.StringVar(&opts.tools, "tools", "", "Comma-separated list of tools to expose (default: all)")
	flags.BoolVar(&opts.status, "status", false, "Check if server is running")
	flags.BoolVar(&opts.stop, "stop", false, "Stop running server")
	flags.BoolVar(&opts.listTools, "list-tools", false, "List available tools")
	return cmd
}

func runServe(a *app, cmd *cobra.Command, opts serveOptions) error {
	out := cmd.OutOrStdout()

	if opts.listTools {
		fmt.Fprintln(out, "Available MCP tools:")
		fmt.Fprintln(out)
		for _, name := range mcp.AllTools {
			fmt.Fprintf(out, "  %s\n", name)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Run 'covagent call --list' for parameters.")
		return nil
	}

	project, err := a.settings.ResolveProject("")
	if err != nil {
		return err
	}
	pidPath := pidFilePath(project)

	if opts.status {
		return checkServerStatus(cmd, pidPath)
	}
	if opts.stop {
		return stopServer(cmd, pidPath)
	}

	server, err := mcp.New(mcp.Config{
		Tools:    splitList(opts.tools),
		Timeout:  a.settings.Server.Timeout,
		Version:  Version,
		Settings: a.settings,
		Exec:     a.exec,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := writePIDFile(pidPath); err != nil {
		slog.Warn("could not write PID file", "path", pidPath, "error", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(a.context(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := a.settings.Server.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				slog.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
	}

	slog.Info("starting MCP server",
		"transport", a.settings.Server.Transport,
		"tools", server.ListTools(),
		"timeout", a.settings.Server.Timeout,
		"project", project)

	// stdout is reserved for the protocol under stdio.
	if a.settings.Server.Transport == "sse" {
		fmt.Fprintf(cmd.ErrOrStderr(), "covagent serve: listening on %s\n", a.settings.Server.Addr)
		return server.ServeSSE(ctx, a.settings.Server.Addr)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "covagent serve: MCP over stdio, %d tools\n", len(server.ListTools()))
	return server.ServeStdio()
}

func pidFilePath(project string) string {
	return filepath.Join(project, config.ConfigDirName, "serve.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removePIDFile(path string) {
	_ = os.Remove(path)
}

// readPID returns 0 when the file is missing or invalid.
func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

func checkServerStatus(cmd *cobra.Command, pidPath string) error {
	out := cmd.OutOrStdout()
	pid := readPID(pidPath)
	if pid == 0 {
		fmt.Fprintln(out, "Status: not running")
		return nil
	}

	// On Unix, FindProcess always succeeds, so we need to send signal 0 to check
	process, err := os.FindProcess(pid)
	if err == nil {
		err = process.Signal(syscall.Signal(0))
	}
	if err != nil {
		fmt.Fprintln(out, "Status: not running (stale PID file)")
		removePIDFile(pidPath)
		return nil
	}

	fmt.Fprintf(out, "Status: running (PID %d)\n", pid)
	return nil
}

func stopServer(cmd *cobra.Command, pidPath string) error {
	out := cmd.OutOrStdout()
	pid := readPID(pidPath)
	if pid == 0 {
		removePIDFile(pidPath)
		fmt.Fprintln(out, "No server running")
		return nil
	}

	process, err := os.FindProcess(pid)
	if err == nil {
		err = process.Signal(syscall.SIGTERM)
	}
	if err != nil {
		removePIDFile(pidPath)
		fmt.Fprintln(out, "Server already stopped")
		return nil
	}

	fmt.Fprintf(out, "Stopped server (PID %d)\n", pid)
	return nil
}
