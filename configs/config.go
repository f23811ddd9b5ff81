package configs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// OutputSpec names a code-generation backend and the directory its output
// lands in, rendered as --<kind>_out=<dir>. The kind is passed to the
// compiler unvalidated.
type OutputSpec struct {
	Kind string `yaml:"kind"`
	Dir  string `yaml:"dir"`
}

// FileConfig defines the structure loaded from the YAML configuration file.
type FileConfig struct {
	SourceDirs          []string     `yaml:"source_dirs"`
	Archives            []string     `yaml:"archives"`
	IncludeDirs         []string     `yaml:"include_dirs"`
	Outputs             []OutputSpec `yaml:"outputs"`
	DeterministicOutput bool         `yaml:"deterministic_output"`
	FatalWarnings       bool         `yaml:"fatal_warnings"`
}

// Config holds the final application configuration, merged from file and
// environment variables. Fields are loaded from environment variables with
// the prefix "PROTOSTAGE_", potentially overriding file settings.
type Config struct {
	// Config File Path (loaded first from env, flag can override)
	ConfigFilePath string `envconfig:"CONFIG_FILE" default:"configs/protostage.yaml"`

	// File-loaded fields (merged)
	SourceDirs          []string
	Archives            []string
	IncludeDirs         []string
	Outputs             []OutputSpec
	DeterministicOutput bool
	FatalWarnings       bool

	// Environment-overridable fields
	ProtocPath               string `envconfig:"PROTOC" default:"protoc"`
	BuildDir                 string `envconfig:"BUILD_DIR" default:"build"`
	SourceExtension          string `envconfig:"SOURCE_EXTENSION" default:".proto"`
	LogLevel                 string `envconfig:"LOG_LEVEL" default:"info"`
	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
}

// StagingDir returns the base directory archive sources are staged under,
// conventionally <build-dir>/protostage/extracted.
func (c *Config) StagingDir() string {
	return filepath.Join(c.BuildDir, "protostage", "extracted")
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration from the environment and the default config file.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration first from environment variables (to get the
// file path), then from the YAML file, and finally merges/overrides with
// environment variables again. A non-empty configFile wins over
// PROTOSTAGE_CONFIG_FILE.
func LoadFrom(configFile string) (*Config, error) {
	// 1. Load initial config from env (primarily for ConfigFilePath).
	var initialCfg Config
	if err := envconfig.Process("protostage", &initialCfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}
	if configFile != "" {
		initialCfg.ConfigFilePath = configFile
	}

	// 2. Load config from the YAML file if a path is specified.
	fileCfg := FileConfig{}
	if initialCfg.ConfigFilePath != "" {
		yamlFile, err := os.ReadFile(initialCfg.ConfigFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", initialCfg.ConfigFilePath, err)
		}
		if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", initialCfg.ConfigFilePath, err)
		}
		slog.Info("Loaded configuration from file.", "path", initialCfg.ConfigFilePath)
	} else {
		slog.Info("No config file path specified (PROTOSTAGE_CONFIG_FILE), using defaults/env vars only.")
	}

	// 3. Create the final config from the file values, then process env vars
	// again so the environment overrides file settings.
	finalCfg := initialCfg
	finalCfg.SourceDirs = fileCfg.SourceDirs
	finalCfg.Archives = fileCfg.Archives
	finalCfg.IncludeDirs = fileCfg.IncludeDirs
	finalCfg.Outputs = fileCfg.Outputs
	finalCfg.DeterministicOutput = fileCfg.DeterministicOutput
	finalCfg.FatalWarnings = fileCfg.FatalWarnings

	if err := envconfig.Process("protostage", &finalCfg); err != nil {
		return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
	}

	return &finalCfg, nil
}
