package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/testforge/covagent/internal/config"
)

const (
	envPrefix = "COVAGENT"

	projectPathKey       = "project.path"
	projectReportKey     = "project.report_path"
	coverageThresholdKey = "coverage.threshold"
	coverageMetricKey    = "coverage.metric"
	coverageScopeKey     = "coverage.scope"
	coverageLimitKey     = "coverage.limit"
	coverageWeightKey    = "coverage.public_api_weight"
	coverageClassKey     = "coverage.classifier"
	coverageExcludeKey   = "coverage.exclude"
	testgenFrameworkKey  = "testgen.framework"
	runnerMavenKey       = "runner.maven"
	runnerTestTimeoutKey = "runner.test_timeout"
	historyEnabledKey    = "history.enabled"
	historyPathKey       = "history.path"
	logFileKey           = "log.file"
	logLevelKey          = "log.level"
	serverTransportKey   = "server.transport"
	serverAddrKey        = "server.addr"
	serverTimeoutKey     = "server.timeout"
	serverMetricsKey     = "server.metrics_addr"
)

// newViper reads COVAGENT_* variables, e.g. COVAGENT_COVERAGE_THRESHOLD for
// coverage.threshold. The YAML file itself is loaded by the config package.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// applyOverrides copies every env or flag value that is set onto cfg.
func applyOverrides(v *viper.Viper, cfg *config.Config) {
	setString(v, projectPathKey, &cfg.Project.Path)
	setString(v, projectReportKey, &cfg.Project.ReportPath)

	if v.IsSet(coverageThresholdKey) {
		cfg.Coverage.Threshold = v.GetFloat64(coverageThresholdKey)
	}
	setString(v, coverageMetricKey, &cfg.Coverage.Metric)
	setString(v, coverageScopeKey, &cfg.Coverage.Scope)
	if v.IsSet(coverageLimitKey) {
		cfg.Coverage.Limit = v.GetInt(coverageLimitKey)
	}
	if v.IsSet(coverageWeightKey) {
		cfg.Coverage.PublicAPIWeight = v.GetFloat64(coverageWeightKey)
	}
	setString(v, coverageClassKey, &cfg.Coverage.Classifier)
	if v.IsSet(coverageExcludeKey) {
		cfg.Coverage.Exclude = splitList(v.GetString(coverageExcludeKey))
	}

	setString(v, testgenFrameworkKey, &cfg.Testgen.Framework)
	setString(v, runnerMavenKey, &cfg.Runner.Maven)
	if v.IsSet(runnerTestTimeoutKey) {
		cfg.Runner.TestTimeout = v.GetDuration(runnerTestTimeoutKey)
	}

	if v.IsSet(historyEnabledKey) {
		enabled := v.GetBool(historyEnabledKey)
		cfg.History.Enabled = &enabled
	}
	setString(v, historyPathKey, &cfg.History.Path)

	setString(v, logFileKey, &cfg.Log.File)
	setString(v, logLevelKey, &cfg.Log.Level)

	setString(v, serverTransportKey, &cfg.Server.Transport)
	setString(v, serverAddrKey, &cfg.Server.Addr)
	if v.IsSet(serverTimeoutKey) {
		cfg.Server.Timeout = v.GetDuration(serverTimeoutKey)
	}
	setString(v, serverMetricsKey, &cfg.Server.MetricsAddr)
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger. Logs go to a rotated
// file because stdout carries results and, under 'serve', the protocol.
// "stderr" logs to standard error and an empty file discards logs.
func configureLogger(cfg config.LogConfig, projectPath string, verbose bool) func() error {
	logLevel := parseSlogLevel(cfg.Level, slog.LevelInfo)
	if verbose {
		logLevel = slog.LevelDebug
	}

	var (
		w       io.Writer
		closeFn = func() error { return nil }
	)
	switch file := strings.TrimSpace(cfg.File); file {
	case "":
		w = io.Discard
	case "stderr", "-":
		w = os.Stderr
	default:
		if !filepath.IsAbs(file) {
			file = filepath.Join(projectPath, file)
		}
		compress := cfg.Compress == nil || *cfg.Compress
		logWriter := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   compress,
		}
		w = logWriter
		closeFn = logWriter.Close
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: verbose,
		Level:     logLevel,
	})
	slog.SetDefault(slog.New(handler))
	return closeFn
}
