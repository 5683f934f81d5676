package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/testgen"
)

// Public API classifier names.
const (
	ClassifierSource = "source"
	ClassifierNaming = "naming"
	ClassifierNone   = "none"
)

// ValidClassifiers lists the accepted coverage.classifier values
var ValidClassifiers = []string{ClassifierSource, ClassifierNaming, ClassifierNone}

// ValidLogLevels lists the accepted log.level values
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// ValidTransports lists the accepted server.transport values
var ValidTransports = []string{"stdio", "sse"}

func oneOf(v string, valid []string) bool {
	for _, s := range valid {
		if v == s {
			return true
		}
	}
	return false
}

// Validate checks that config values are valid.
// Returns an error wrapping ErrInvalidConfig if validation fails.
func Validate(cfg *Config) error {
	c := cfg.Coverage
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("%w: coverage.threshold must be between 0 and 100, got %g",
			ErrInvalidConfig, c.Threshold)
	}
	if _, ok := coverage.ParseMetricKind(c.Metric); !ok {
		return fmt.Errorf("%w: coverage.metric must be one of %v, got %q",
			ErrInvalidConfig, coverage.AllMetricKinds, c.Metric)
	}
	if c.PublicAPIWeight < 1 {
		return fmt.Errorf("%w: coverage.public_api_weight must be at least 1, got %g",
			ErrInvalidConfig, c.PublicAPIWeight)
	}
	if _, ok := coverage.ParseScope(c.Scope); !ok {
		return fmt.Errorf("%w: coverage.scope must be leaves, all, classes or methods, got %q",
			ErrInvalidConfig, c.Scope)
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: coverage.limit must be non-negative, got %d",
			ErrInvalidConfig, c.Limit)
	}
	if err := coverage.ValidateExcludes(c.Exclude); err != nil {
		return fmt.Errorf("%w: coverage.exclude: %v", ErrInvalidConfig, err)
	}
	if !oneOf(c.Classifier, ValidClassifiers) {
		return fmt.Errorf("%w: coverage.classifier must be one of %v, got %q",
			ErrInvalidConfig, ValidClassifiers, c.Classifier)
	}

	if _, err := testgen.ParseFramework(cfg.Testgen.Framework); err != nil {
		return fmt.Errorf("%w: testgen.framework: %v", ErrInvalidConfig, err)
	}

	r := cfg.Runner
	if r.TestTimeout <= 0 || r.ReportTimeout <= 0 || r.LintTimeout <= 0 {
		return fmt.Errorf("%w: runner timeouts must be positive", ErrInvalidConfig)
	}

	if !oneOf(strings.ToLower(cfg.Log.Level), ValidLogLevels) {
		return fmt.Errorf("%w: log.level must be one of %v, got %q",
			ErrInvalidConfig, ValidLogLevels, cfg.Log.Level)
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("%w: log rotation limits must be non-negative", ErrInvalidConfig)
	}

	if !oneOf(cfg.Server.Transport, ValidTransports) {
		return fmt.Errorf("%w: server.transport must be one of %v, got %q",
			ErrInvalidConfig, ValidTransports, cfg.Server.Transport)
	}
	if cfg.Server.Timeout < 0 {
		return fmt.Errorf("%w: server.timeout must be non-negative, got %s",
			ErrInvalidConfig, cfg.Server.Timeout)
	}

	return nil
}

// RankOptions converts the coverage section. The classifier is left for
// the caller, which knows whether sources are available.
func (cfg *Config) RankOptions() coverage.RankOptions {
	opts := coverage.DefaultRankOptions()
	opts.Threshold = cfg.Coverage.Threshold
	if m, ok := coverage.ParseMetricKind(cfg.Coverage.Metric); ok {
		opts.Metric = m
	}
	opts.PublicAPIWeight = cfg.Coverage.PublicAPIWeight
	if s, ok := coverage.ParseScope(cfg.Coverage.Scope); ok {
		opts.Scope = s
	}
	opts.Exclude = cfg.Coverage.Exclude
	opts.Limit = cfg.Coverage.Limit
	return opts
}

// ResolveProject returns override when set, otherwise the configured
// project path, made absolute.
func (cfg *Config) ResolveProject(override string) (string, error) {
	p := override
	if p == "" {
		p = cfg.Project.Path
	}
	if p == "" {
		p = "."
	}
	return filepath.Abs(p)
}

// HistoryPath returns the history database location for a project.
func (cfg *Config) HistoryPath(projectPath string) string {
	if p := cfg.History.Path; p != "" {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(projectPath, p)
	}
	return filepath.Join(projectPath, ConfigDirName)
}
