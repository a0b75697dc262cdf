// Package config handles configuration loading and management for Sprintloom.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Sprintloom.
type Config struct {
	Sprints      SprintsConfig      `mapstructure:"sprints"`
	Graph        GraphConfig        `mapstructure:"graph"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Scheduling   SchedulingConfig   `mapstructure:"scheduling"`
	Store        StoreConfig        `mapstructure:"store"`
	Log          LogConfig          `mapstructure:"log"`
}

// SprintsConfig holds decomposition limits.
type SprintsConfig struct {
	MaxDuration   time.Duration `mapstructure:"max_duration"`
	MaxPerProject int           `mapstructure:"max_per_project"`
}

// GraphConfig holds dependency graph settings.
type GraphConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// OrchestratorConfig holds retry and timeout settings.
type OrchestratorConfig struct {
	MaxRetries        int     `mapstructure:"max_retries"`
	TimeoutMultiplier float64 `mapstructure:"timeout_multiplier"`
}

// SchedulingConfig holds scheduling policy knobs.
type SchedulingConfig struct {
	// TieBreak selects among equal-duration critical paths:
	// "lexical" or "shortest".
	TieBreak string `mapstructure:"tie_break"`
	// AcceptanceThreshold is the minimum deliverable check pass rate
	// for a sprint to count as completed.
	AcceptanceThreshold float64 `mapstructure:"acceptance_threshold"`
}

// StoreConfig holds knowledge-store settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds debug log settings.
type LogConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (SPRINTLOOM_*)
// 2. Project config (.sprintloom.yaml in current directory or parent)
// 3. User config (~/.config/sprintloom/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("sprints.max_duration", "SPRINTLOOM_MAX_DURATION")
	v.BindEnv("sprints.max_per_project", "SPRINTLOOM_MAX_SPRINTS")
	v.BindEnv("orchestrator.max_retries", "SPRINTLOOM_MAX_RETRIES")
	v.BindEnv("scheduling.tie_break", "SPRINTLOOM_TIE_BREAK")
	v.BindEnv("store.path", "SPRINTLOOM_STORE_PATH")
	v.BindEnv("log.path", "SPRINTLOOM_LOG_PATH")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Store.Path = expandEnv(cfg.Store.Path)
	cfg.Log.Path = expandEnv(cfg.Log.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Store.Path = expandEnv(cfg.Store.Path)
	cfg.Log.Path = expandEnv(cfg.Log.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	if c.Sprints.MaxDuration <= 0 {
		return fmt.Errorf("sprints.max_duration must be positive, got %s", c.Sprints.MaxDuration)
	}
	if c.Sprints.MaxPerProject <= 0 {
		return fmt.Errorf("sprints.max_per_project must be positive, got %d", c.Sprints.MaxPerProject)
	}
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("orchestrator.max_retries must be non-negative, got %d", c.Orchestrator.MaxRetries)
	}
	if c.Orchestrator.TimeoutMultiplier <= 0 {
		return fmt.Errorf("orchestrator.timeout_multiplier must be positive, got %g", c.Orchestrator.TimeoutMultiplier)
	}
	switch c.Scheduling.TieBreak {
	case "lexical", "shortest":
	default:
		return fmt.Errorf("scheduling.tie_break must be lexical or shortest, got %q", c.Scheduling.TieBreak)
	}
	if c.Scheduling.AcceptanceThreshold < 0 || c.Scheduling.AcceptanceThreshold > 1 {
		return fmt.Errorf("scheduling.acceptance_threshold must be in [0,1], got %g", c.Scheduling.AcceptanceThreshold)
	}
	return nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("sprints.max_duration", cfg.Sprints.MaxDuration.String())
	v.Set("sprints.max_per_project", cfg.Sprints.MaxPerProject)
	v.Set("graph.max_depth", cfg.Graph.MaxDepth)
	v.Set("orchestrator.max_retries", cfg.Orchestrator.MaxRetries)
	v.Set("orchestrator.timeout_multiplier", cfg.Orchestrator.TimeoutMultiplier)
	v.Set("scheduling.tie_break", cfg.Scheduling.TieBreak)
	v.Set("scheduling.acceptance_threshold", cfg.Scheduling.AcceptanceThreshold)
	v.Set("store.path", cfg.Store.Path)
	v.Set("log.path", cfg.Log.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("sprints.max_duration", "30m")
	v.SetDefault("sprints.max_per_project", 50)

	v.SetDefault("graph.max_depth", 10)

	v.SetDefault("orchestrator.max_retries", 3)
	v.SetDefault("orchestrator.timeout_multiplier", 1.5)

	v.SetDefault("scheduling.tie_break", "lexical")
	v.SetDefault("scheduling.acceptance_threshold", 0.8)

	v.SetDefault("store.path", "")
	v.SetDefault("log.path", "")
}

// getUserConfigDir returns the XDG config directory for Sprintloom.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sprintloom")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "sprintloom")
	}
	return filepath.Join(home, ".config", "sprintloom")
}

// findProjectConfig searches for .sprintloom.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".sprintloom.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Sprints: SprintsConfig{
			MaxDuration:   30 * time.Minute,
			MaxPerProject: 50,
		},
		Graph: GraphConfig{
			MaxDepth: 10,
		},
		Orchestrator: OrchestratorConfig{
			MaxRetries:        3,
			TimeoutMultiplier: 1.5,
		},
		Scheduling: SchedulingConfig{
			TieBreak:            "lexical",
			AcceptanceThreshold: 0.8,
		},
		Store: StoreConfig{
			Path: "",
		},
		Log: LogConfig{
			Path: "",
		},
	}
}
