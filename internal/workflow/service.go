// Package workflow implements the operations covagent exposes as MCP tools
// and CLI commands. Every call resolves its own project path, so one
// process can serve several Maven projects.
package workflow

import (
	"fmt"
	"os"

	"github.com/testforge/covagent/internal/config"
	"github.com/testforge/covagent/internal/metrics"
	"github.com/testforge/covagent/internal/runner"
	"github.com/testforge/covagent/internal/vcs"
)

// Service runs workflow operations against the configured defaults.
type Service struct {
	cfg   *config.Config
	maven *runner.Maven
	git   *vcs.Git
}

// New builds a service. A nil cfg uses config.DefaultConfig and a nil
// executor runs real processes.
func New(cfg *config.Config, ex runner.Executor) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if ex == nil {
		ex = runner.OSExecutor{}
	}

	m := runner.NewMaven(ex)
	if cfg.Runner.Maven != "" {
		m.Binary = cfg.Runner.Maven
	}
	if cfg.Runner.TestTimeout > 0 {
		m.TestTimeout = cfg.Runner.TestTimeout
	}
	if cfg.Runner.ReportTimeout > 0 {
		m.ReportTimeout = cfg.Runner.ReportTimeout
	}
	if cfg.Runner.LintTimeout > 0 {
		m.LintTimeout = cfg.Runner.LintTimeout
	}
	m.Observe = metrics.ObserveMaven

	return &Service{cfg: cfg, maven: m, git: vcs.New(ex)}
}

// Config returns the settings the service falls back to.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// ProjectNotFoundError is returned when a project path is not a directory.
type ProjectNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("project directory %s not found", e.Path)
}

// Location returns the resolved path.
func (e *ProjectNotFoundError) Location() string {
	return e.Path
}

// ArgumentError is returned for a call argument that cannot be used.
type ArgumentError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Name, e.Reason)
}

// Location names the argument.
func (e *ArgumentError) Location() string {
	return e.Name
}

// Project resolves override against the configured project path and
// checks the directory exists.
func (s *Service) Project(override string) (string, error) {
	p, err := s.cfg.ResolveProject(override)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return "", &ProjectNotFoundError{Path: p}
	}
	return p, nil
}

func required(name, value string) error {
	if value == "" {
		return &ArgumentError{Name: name, Reason: "is required"}
	}
	return nil
}
