package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/testforge/covagent/internal/config"
)

func TestConfigKeyConstants(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{envPrefix, "COVAGENT"},
		{projectPathKey, "project.path"},
		{coverageThresholdKey, "coverage.threshold"},
		{serverMetricsKey, "server.metrics_addr"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestApplyOverrides_Env(t *testing.T) {
	t.Setenv("COVAGENT_COVERAGE_THRESHOLD", "65.5")
	t.Setenv("COVAGENT_COVERAGE_EXCLUDE", "org/acme/gen/**, **/*Dto")
	t.Setenv("COVAGENT_HISTORY_ENABLED", "false")
	t.Setenv("COVAGENT_SERVER_TIMEOUT", "5m")
	t.Setenv("COVAGENT_TESTGEN_FRAMEWORK", "junit5")

	cfg := config.DefaultConfig()
	applyOverrides(newViper(), cfg)

	if cfg.Coverage.Threshold != 65.5 {
		t.Errorf("threshold = %v, want 65.5", cfg.Coverage.Threshold)
	}
	if want := []string{"org/acme/gen/**", "**/*Dto"}; !reflect.DeepEqual(cfg.Coverage.Exclude, want) {
		t.Errorf("exclude = %v, want %v", cfg.Coverage.Exclude, want)
	}
	if cfg.History.IsEnabled() {
		t.Error("history should be disabled")
	}
	if cfg.Server.Timeout != 5*time.Minute {
		t.Errorf("timeout = %s, want 5m", cfg.Server.Timeout)
	}
	if cfg.Testgen.Framework != "junit5" {
		t.Errorf("framework = %q, want junit5", cfg.Testgen.Framework)
	}
}

func TestApplyOverrides_UnsetKeepsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Coverage.Limit = 7
	cfg.Server.Addr = ":9999"

	applyOverrides(newViper(), cfg)

	if cfg.Coverage.Limit != 7 {
		t.Errorf("limit = %d, want 7", cfg.Coverage.Limit)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %q, want :9999", cfg.Server.Addr)
	}
	if !cfg.History.IsEnabled() {
		t.Error("history should stay enabled")
	}
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"", slog.LevelWarn},
		{"chatty", slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := parseSlogLevel(tt.in, slog.LevelWarn); got != tt.want {
			t.Errorf("parseSlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigureLogger_File(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	closeLog := configureLogger(config.LogConfig{File: filepath.Join(".covagent", "test.log"), Level: "info", MaxSizeMB: 1}, dir, false)
	slog.Debug("hidden")
	slog.Info("written", "key", "value")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".covagent", "test.log"))
	if err != nil {
		t.Fatal(err)
	}
	log := string(data)
	for _, want := range []string{"msg=written", "key=value"} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q:\n%s", want, log)
		}
	}
	if strings.Contains(log, "hidden") {
		t.Errorf("debug line written at info level:\n%s", log)
	}
}

func TestConfigureLogger_Discard(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	closeLog := configureLogger(config.LogConfig{}, dir, true)
	slog.Info("nowhere")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("discard logger created files: %v", entries)
	}
}
