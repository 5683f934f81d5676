package config

import (
	"path/filepath"
	"time"

	"github.com/testforge/covagent/internal/coverage"
	"github.com/testforge/covagent/internal/extract"
	"github.com/testforge/covagent/internal/runner"
)

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
func DefaultConfig() *Config {
	enabled, compress := true, true
	return &Config{
		Project: ProjectConfig{
			Path:       ".",
			ReportPath: coverage.DefaultReportPath,
			ReportGlob: coverage.DefaultReportGlob,
			SourceGlob: extract.DefaultSourceGlob,
		},
		Coverage: CoverageConfig{
			Threshold:       coverage.DefaultThreshold,
			Metric:          string(coverage.MetricLine),
			PublicAPIWeight: coverage.DefaultPublicAPIWeight,
			Scope:           string(coverage.ScopeLeaves),
			Limit:           20,
			Classifier:      ClassifierSource,
		},
		Testgen: TestgenConfig{
			Framework: "junit4",
		},
		Runner: RunnerConfig{
			Maven:         "mvn",
			TestTimeout:   runner.DefaultTestTimeout,
			ReportTimeout: runner.DefaultReportTimeout,
			LintTimeout:   runner.DefaultLintTimeout,
		},
		History: HistoryConfig{
			Enabled: &enabled,
		},
		Log: LogConfig{
			File:       filepath.Join(ConfigDirName, "covagent.log"),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   &compress,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Addr:      ":8000",
			Timeout:   30 * time.Minute,
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	return &Config{
		Project:  mergeProjectConfig(loaded.Project, defaults.Project),
		Coverage: mergeCoverageConfig(loaded.Coverage, defaults.Coverage),
		Testgen:  TestgenConfig{Framework: pick(loaded.Testgen.Framework, defaults.Testgen.Framework)},
		Runner:   mergeRunnerConfig(loaded.Runner, defaults.Runner),
		History:  mergeHistoryConfig(loaded.History, defaults.History),
		Log:      mergeLogConfig(loaded.Log, defaults.Log),
		Server:   mergeServerConfig(loaded.Server, defaults.Server),
	}
}

// pick returns loaded unless it is the zero value.
func pick[T comparable](loaded, def T) T {
	var zero T
	if loaded != zero {
		return loaded
	}
	return def
}

func mergeProjectConfig(loaded, defaults ProjectConfig) ProjectConfig {
	return ProjectConfig{
		Path:       pick(loaded.Path, defaults.Path),
		ReportPath: pick(loaded.ReportPath, defaults.ReportPath),
		ReportGlob: pick(loaded.ReportGlob, defaults.ReportGlob),
		SourceGlob: pick(loaded.SourceGlob, defaults.SourceGlob),
	}
}

func mergeCoverageConfig(loaded, defaults CoverageConfig) CoverageConfig {
	result := CoverageConfig{
		Threshold:       pick(loaded.Threshold, defaults.Threshold),
		Metric:          pick(loaded.Metric, defaults.Metric),
		PublicAPIWeight: pick(loaded.PublicAPIWeight, defaults.PublicAPIWeight),
		Scope:           pick(loaded.Scope, defaults.Scope),
		Limit:           pick(loaded.Limit, defaults.Limit),
		Classifier:      pick(loaded.Classifier, defaults.Classifier),
	}

	// Use loaded exclude patterns if provided, otherwise defaults
	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}

	return result
}

func mergeRunnerConfig(loaded, defaults RunnerConfig) RunnerConfig {
	return RunnerConfig{
		Maven:         pick(loaded.Maven, defaults.Maven),
		TestTimeout:   pick(loaded.TestTimeout, defaults.TestTimeout),
		ReportTimeout: pick(loaded.ReportTimeout, defaults.ReportTimeout),
		LintTimeout:   pick(loaded.LintTimeout, defaults.LintTimeout),
	}
}

func mergeHistoryConfig(loaded, defaults HistoryConfig) HistoryConfig {
	result := HistoryConfig{Path: pick(loaded.Path, defaults.Path)}
	if loaded.Enabled != nil {
		result.Enabled = loaded.Enabled
	} else {
		result.Enabled = defaults.Enabled
	}
	return result
}

func mergeLogConfig(loaded, defaults LogConfig) LogConfig {
	result := LogConfig{
		File:       pick(loaded.File, defaults.File),
		Level:      pick(loaded.Level, defaults.Level),
		MaxSizeMB:  pick(loaded.MaxSizeMB, defaults.MaxSizeMB),
		MaxBackups: pick(loaded.MaxBackups, defaults.MaxBackups),
		MaxAgeDays: pick(loaded.MaxAgeDays, defaults.MaxAgeDays),
	}
	if loaded.Compress != nil {
		result.Compress = loaded.Compress
	} else {
		result.Compress = defaults.Compress
	}
	return result
}

func mergeServerConfig(loaded, defaults ServerConfig) ServerConfig {
	return ServerConfig{
		Transport:   pick(loaded.Transport, defaults.Transport),
		Addr:        pick(loaded.Addr, defaults.Addr),
		Timeout:     pick(loaded.Timeout, defaults.Timeout),
		MetricsAddr: pick(loaded.MetricsAddr, defaults.MetricsAddr),
	}
}
