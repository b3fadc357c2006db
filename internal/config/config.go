// Package config loads and validates Evo's runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all of Evo's configuration (spec.md §6).
type Config struct {
	// AnthropicAPIKey is required at startup unless TestBypass is set.
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// DailyBudget is the daily token cap. Default 100000.
	DailyBudget int `yaml:"daily_budget"`

	// IntervalMS is the milliseconds between scheduled generations.
	// Default 5 minutes (300000).
	IntervalMS int `yaml:"interval_ms"`

	// AutoStart determines whether the Evolver starts running
	// immediately at boot. Default off.
	AutoStart bool `yaml:"auto_start"`

	// EscalationThreshold is the consecutive-failure count that
	// triggers a switch to the capable model. Default 3.
	EscalationThreshold int `yaml:"escalation_threshold"`

	CheapModelTag   string `yaml:"cheap_model_tag"`
	CapableModelTag string `yaml:"capable_model_tag"`

	// TestBypass disables the missing-API-key fatal check, for tests.
	TestBypass bool `yaml:"test_bypass"`

	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Fitness   FitnessConfig   `yaml:"fitness"`
}

// LoggingConfig holds evo.yaml's logging section. The categorized file
// logger does not read it: logging.Initialize takes its settings from
// .evo/config.json under the workspace.
type LoggingConfig struct {
	DebugMode bool              `yaml:"debug_mode"`
	Level     string            `yaml:"level"`
	Categories map[string]bool  `yaml:"categories"`
}

// DatabaseConfig configures the Historian's persistence store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DashboardConfig configures the thin HTTP control surface.
type DashboardConfig struct {
	ListenAddr        string `yaml:"listen_addr"`
	RunOnceMinGapMS   int    `yaml:"run_once_min_gap_ms"`
	PollIntervalMS    int    `yaml:"poll_interval_ms"`
}

// FitnessConfig exposes the fitness weights/thresholds as configuration
// (spec.md §9 Open Question 2), defaulting to the spec's own values.
type FitnessConfig struct {
	WeightTime      float64 `yaml:"weight_time"`
	WeightMemory    float64 `yaml:"weight_memory"`
	WeightLines     float64 `yaml:"weight_lines"`
	ImprovedAbove   float64 `yaml:"improved_above"`
	RegressedBelow  float64 `yaml:"regressed_below"`
}

// DefaultConfig returns Evo's defaults per spec.md §6.
func DefaultConfig() *Config {
	return &Config{
		DailyBudget:         100_000,
		IntervalMS:          5 * 60 * 1000,
		AutoStart:           false,
		EscalationThreshold: 3,
		CheapModelTag:       "claude-haiku-4-5",
		CapableModelTag:     "claude-opus-4-6",
		Logging: LoggingConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Path: ".evo/evo.db",
		},
		Dashboard: DashboardConfig{
			ListenAddr:      "127.0.0.1:8686",
			RunOnceMinGapMS: 30_000,
			PollIntervalMS:  10_000,
		},
		Fitness: FitnessConfig{
			WeightTime:     0.6,
			WeightMemory:   0.3,
			WeightLines:    0.1,
			ImprovedAbove:  0.05,
			RegressedBelow: -0.05,
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults
// if the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides layers environment variables on top of file config,
// following the teacher's precedent that env vars always win.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.AnthropicAPIKey = key
	}
	if v := os.Getenv("EVO_DAILY_BUDGET"); v != "" {
		if n, err := parseIntEnv(v); err == nil {
			c.DailyBudget = n
		}
	}
	if v := os.Getenv("EVO_INTERVAL_MS"); v != "" {
		if n, err := parseIntEnv(v); err == nil {
			c.IntervalMS = n
		}
	}
	if os.Getenv("EVO_AUTO_START") == "true" {
		c.AutoStart = true
	}
	if os.Getenv("EVO_TEST_BYPASS") == "true" {
		c.TestBypass = true
	}
	if path := os.Getenv("EVO_DB_PATH"); path != "" {
		c.Database.Path = path
	}
}

func parseIntEnv(v string) (int, error) {
	var n int
	_, err := fmt.Sscanf(v, "%d", &n)
	return n, err
}

// Interval returns IntervalMS as a time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// RunOnceMinGap returns the dashboard's minimum gap between run_once
// triggers as a time.Duration.
func (c *Config) RunOnceMinGap() time.Duration {
	return time.Duration(c.Dashboard.RunOnceMinGapMS) * time.Millisecond
}

// Validate checks startup invariants. A missing API key is fatal unless
// TestBypass is set (spec.md §6).
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" && !c.TestBypass {
		return fmt.Errorf("anthropic_api_key not configured (set ANTHROPIC_API_KEY or anthropic_api_key in config, or test_bypass for tests)")
	}
	if c.EscalationThreshold < 1 {
		return fmt.Errorf("escalation_threshold must be >= 1, got %d", c.EscalationThreshold)
	}
	if c.DailyBudget < 0 {
		return fmt.Errorf("daily_budget must be >= 0, got %d", c.DailyBudget)
	}
	return nil
}
