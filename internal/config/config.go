package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the covagent configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the covagent state directory
const ConfigDirName = ".covagent"

// Config holds all covagent configuration
type Config struct {
	Project  ProjectConfig  `yaml:"project"`
	Coverage CoverageConfig `yaml:"coverage"`
	Testgen  TestgenConfig  `yaml:"testgen"`
	Runner   RunnerConfig   `yaml:"runner"`
	History  HistoryConfig  `yaml:"history"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// ProjectConfig locates the Maven project and its artifacts
type ProjectConfig struct {
	// Path is the project used when a call names none.
	Path       string `yaml:"path"`
	ReportPath string `yaml:"report_path"`
	ReportGlob string `yaml:"report_glob"`
	SourceGlob string `yaml:"source_glob"`
}

// CoverageConfig holds defaults for gap prioritization
type CoverageConfig struct {
	Threshold       float64  `yaml:"threshold"`
	Metric          string   `yaml:"metric"`
	PublicAPIWeight float64  `yaml:"public_api_weight"`
	Scope           string   `yaml:"scope"`
	Limit           int      `yaml:"limit"`
	Exclude         []string `yaml:"exclude"`
	// Classifier picks how public API is recognized: source, naming or none.
	Classifier string `yaml:"classifier"`
}

// TestgenConfig holds defaults for test generation
type TestgenConfig struct {
	Framework string `yaml:"framework"`
}

// RunnerConfig holds Maven settings
type RunnerConfig struct {
	Maven         string        `yaml:"maven"`
	TestTimeout   time.Duration `yaml:"test_timeout"`
	ReportTimeout time.Duration `yaml:"report_timeout"`
	LintTimeout   time.Duration `yaml:"lint_timeout"`
}

// HistoryConfig holds coverage history settings
type HistoryConfig struct {
	// Enabled is a pointer so an explicit false survives the merge.
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// IsEnabled reports whether snapshots are recorded.
func (h HistoryConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// LogConfig holds log file settings
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   *bool  `yaml:"compress"`
}

// ServerConfig holds tool server settings
type ServerConfig struct {
	Transport   string        `yaml:"transport"`
	Addr        string        `yaml:"addr"`
	Timeout     time.Duration `yaml:"timeout"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .covagent/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		// No config dir found, return defaults
		return DefaultConfig(), nil
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	return LoadFromPath(configPath)
}

// LoadFromPath reads config from a specific path.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Merge with defaults
	merged := Merge(loaded, DefaultConfig())

	if err := Validate(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// FindConfigDir locates the .covagent directory by walking up from startDir.
// Returns the path to the .covagent directory if found.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .covagent directory if it doesn't exist.
// Returns the path to the .covagent directory.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)

	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return configDir, nil
}

// SaveDefault writes the default configuration to .covagent/config.yaml in
// workDir. Creates the .covagent directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	header := "# covagent configuration\n# Tool arguments and command flags override these values.\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}
