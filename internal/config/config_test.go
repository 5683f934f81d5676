package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/testforge/covagent/internal/coverage"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Coverage.Threshold != 50 {
		t.Errorf("expected threshold 50, got %g", cfg.Coverage.Threshold)
	}
	if cfg.Coverage.PublicAPIWeight != 2 {
		t.Errorf("expected public_api_weight 2, got %g", cfg.Coverage.PublicAPIWeight)
	}
	if cfg.Coverage.Metric != "LINE" {
		t.Errorf("expected metric LINE, got %s", cfg.Coverage.Metric)
	}
	if cfg.Project.ReportPath != "target/site/jacoco/jacoco.xml" {
		t.Errorf("unexpected report path %s", cfg.Project.ReportPath)
	}
	if cfg.Runner.TestTimeout != 300*time.Second {
		t.Errorf("expected test timeout 300s, got %s", cfg.Runner.TestTimeout)
	}
	if !cfg.History.IsEnabled() {
		t.Error("expected history enabled by default")
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("expected stdio transport, got %s", cfg.Server.Transport)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"threshold above 100", func(c *Config) { c.Coverage.Threshold = 101 }, "coverage.threshold"},
		{"negative threshold", func(c *Config) { c.Coverage.Threshold = -1 }, "coverage.threshold"},
		{"unknown metric", func(c *Config) { c.Coverage.Metric = "STATEMENT" }, "coverage.metric"},
		{"weight below one", func(c *Config) { c.Coverage.PublicAPIWeight = 0.5 }, "coverage.public_api_weight"},
		{"unknown scope", func(c *Config) { c.Coverage.Scope = "packages" }, "coverage.scope"},
		{"negative limit", func(c *Config) { c.Coverage.Limit = -1 }, "coverage.limit"},
		{"bad exclude", func(c *Config) { c.Coverage.Exclude = []string{"org/[acme"} }, "coverage.exclude"},
		{"unknown classifier", func(c *Config) { c.Coverage.Classifier = "magic" }, "coverage.classifier"},
		{"unknown framework", func(c *Config) { c.Testgen.Framework = "testng" }, "testgen.framework"},
		{"zero timeout", func(c *Config) { c.Runner.LintTimeout = 0 }, "runner timeouts"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad transport", func(c *Config) { c.Server.Transport = "http" }, "server.transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	disabled := false
	loaded := &Config{
		Coverage: CoverageConfig{Threshold: 80, Exclude: []string{"**/generated/**"}},
		History:  HistoryConfig{Enabled: &disabled},
		Runner:   RunnerConfig{TestTimeout: 10 * time.Minute},
	}
	merged := Merge(loaded, DefaultConfig())

	if merged.Coverage.Threshold != 80 {
		t.Errorf("expected threshold 80, got %g", merged.Coverage.Threshold)
	}
	if merged.Coverage.Metric != "LINE" {
		t.Errorf("expected default metric, got %s", merged.Coverage.Metric)
	}
	if len(merged.Coverage.Exclude) != 1 {
		t.Errorf("expected loaded excludes, got %v", merged.Coverage.Exclude)
	}
	if merged.History.IsEnabled() {
		t.Error("explicit history.enabled=false must survive the merge")
	}
	if merged.Runner.TestTimeout != 10*time.Minute || merged.Runner.ReportTimeout != 60*time.Second {
		t.Errorf("unexpected runner merge: %+v", merged.Runner)
	}
}

func TestFindConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, ConfigDirName)
	nested := filepath.Join(tmpDir, "module", "src")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfigDir(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found != configDir {
		t.Errorf("expected %s, got %s", configDir, found)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	tmpDir := t.TempDir()

	dir, err := EnsureConfigDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s", dir)
	}

	// A file in the way is an error.
	other := t.TempDir()
	if err := os.WriteFile(filepath.Join(other, ConfigDirName), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureConfigDir(other); err == nil {
		t.Error("expected error when .covagent is a file")
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("loads valid config file", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		content := `
coverage:
  threshold: 75
  metric: branch
  exclude:
    - "**/dto/**"
runner:
  test_timeout: 10m
history:
  enabled: false
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFromPath(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Coverage.Threshold != 75 {
			t.Errorf("expected threshold 75, got %g", cfg.Coverage.Threshold)
		}
		if cfg.Runner.TestTimeout != 10*time.Minute {
			t.Errorf("expected 10m test timeout, got %s", cfg.Runner.TestTimeout)
		}
		if cfg.History.IsEnabled() {
			t.Error("expected history disabled")
		}

		opts := cfg.RankOptions()
		if opts.Metric != coverage.MetricBranch {
			t.Errorf("expected BRANCH metric, got %s", opts.Metric)
		}
		if opts.Limit != 20 || opts.PublicAPIWeight != 2 {
			t.Errorf("expected default limit and weight, got %+v", opts)
		}
	})

	t.Run("returns defaults for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromPath(filepath.Join(tmpDir, "nonexistent.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Coverage.Threshold != DefaultConfig().Coverage.Threshold {
			t.Errorf("expected default threshold, got %g", cfg.Coverage.Threshold)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte("invalid: yaml: content"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFromPath(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("returns error for invalid config values", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "bad-values.yaml")
		if err := os.WriteFile(configPath, []byte("coverage:\n  scope: packages\n"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadFromPath(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("expected default config")
	}

	configDir := filepath.Join(tmpDir, ConfigDirName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "server:\n  transport: sse\n  addr: \":9000\"\n"
	if err := os.WriteFile(filepath.Join(configDir, ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err = Load(filepath.Join(tmpDir))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Transport != "sse" || cfg.Server.Addr != ":9000" {
		t.Errorf("expected sse on :9000, got %+v", cfg.Server)
	}
}

func TestSaveDefault(t *testing.T) {
	tmpDir := t.TempDir()

	path, err := SaveDefault(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("saved config does not load: %v", err)
	}
	if cfg.Runner.TestTimeout != 300*time.Second {
		t.Errorf("durations must round-trip, got %s", cfg.Runner.TestTimeout)
	}

	if _, err := SaveDefault(tmpDir); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestResolveProjectAndHistoryPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Project.Path = "/work/default"

	got, err := cfg.ResolveProject("")
	if err != nil || got != "/work/default" {
		t.Errorf("ResolveProject(\"\") = %q, %v", got, err)
	}
	got, err = cfg.ResolveProject("/work/other")
	if err != nil || got != "/work/other" {
		t.Errorf("ResolveProject(override) = %q, %v", got, err)
	}

	if p := cfg.HistoryPath("/work/app"); p != filepath.Join("/work/app", ".covagent") {
		t.Errorf("HistoryPath default = %s", p)
	}
	cfg.History.Path = "/var/covagent/history.db"
	if p := cfg.HistoryPath("/work/app"); p != "/var/covagent/history.db" {
		t.Errorf("HistoryPath absolute = %s", p)
	}
}
