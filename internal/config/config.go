// Package config loads ctxbudget configuration from file and environment
// through viper and maps it onto scheduler options.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/andywolf/ctxbudget/internal/budget"
)

// Config represents the full ctxbudget configuration
type Config struct {
	Budget   BudgetConfig   `mapstructure:"budget"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Events   EventsConfig   `mapstructure:"events"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
}

// BudgetConfig contains the scheduler settings
type BudgetConfig struct {
	MaxWeight         int     `mapstructure:"max_weight"`
	WarningThreshold  float64 `mapstructure:"warning_threshold"`
	CriticalThreshold float64 `mapstructure:"critical_threshold"`
	Strategy          string  `mapstructure:"strategy"`
	AutoOptimize      *bool   `mapstructure:"auto_optimize"`
	MinRetention      string  `mapstructure:"min_retention"`
	HistorySize       int     `mapstructure:"history_size"`
}

// ManifestConfig points at the tool/layer manifest file
type ManifestConfig struct {
	Path string `mapstructure:"path"`
}

// EventsConfig controls the JSONL audit trail
type EventsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// SweepConfig controls the periodic optimization sweep
type SweepConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	defaults := budget.DefaultOptions()

	if cfg.Budget.MaxWeight == 0 {
		cfg.Budget.MaxWeight = defaults.MaxWeight
	}

	if cfg.Budget.WarningThreshold == 0 {
		cfg.Budget.WarningThreshold = defaults.WarningThreshold
	}

	if cfg.Budget.CriticalThreshold == 0 {
		cfg.Budget.CriticalThreshold = defaults.CriticalThreshold
	}

	if cfg.Budget.Strategy == "" {
		cfg.Budget.Strategy = string(defaults.Strategy)
	}

	if cfg.Budget.AutoOptimize == nil {
		v := defaults.AutoOptimize
		cfg.Budget.AutoOptimize = &v
	}

	if cfg.Budget.MinRetention == "" {
		cfg.Budget.MinRetention = defaults.MinRetention.String()
	}

	if cfg.Budget.HistorySize == 0 {
		cfg.Budget.HistorySize = defaults.HistorySize
	}

	if cfg.Events.Dir == "" {
		cfg.Events.Dir = "."
	}

	if cfg.Sweep.Schedule == "" {
		cfg.Sweep.Schedule = "@every 1m"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Budget.MaxWeight <= 0 {
		return fmt.Errorf("budget max_weight must be positive, got %d", c.Budget.MaxWeight)
	}

	if !budget.IsValidStrategy(budget.Strategy(c.Budget.Strategy)) {
		return fmt.Errorf("invalid strategy: %s (must be lru, lfu, priority, or smart)", c.Budget.Strategy)
	}

	if c.Budget.MinRetention != "" {
		if _, err := time.ParseDuration(c.Budget.MinRetention); err != nil {
			return fmt.Errorf("invalid min_retention: %w", err)
		}
	}

	if c.Sweep.Enabled && c.Sweep.Schedule == "" {
		return fmt.Errorf("sweep schedule is required when sweep is enabled")
	}

	return nil
}

// SchedulerOptions maps the configuration onto budget.Options. The returned
// options are fully validated by budget.New.
func (c *Config) SchedulerOptions() (budget.Options, error) {
	retention, err := time.ParseDuration(c.Budget.MinRetention)
	if err != nil {
		return budget.Options{}, fmt.Errorf("invalid min_retention: %w", err)
	}

	autoOptimize := false
	if c.Budget.AutoOptimize != nil {
		autoOptimize = *c.Budget.AutoOptimize
	}

	return budget.Options{
		MaxWeight:         c.Budget.MaxWeight,
		WarningThreshold:  c.Budget.WarningThreshold,
		CriticalThreshold: c.Budget.CriticalThreshold,
		Strategy:          budget.Strategy(c.Budget.Strategy),
		AutoOptimize:      autoOptimize,
		MinRetention:      retention,
		HistorySize:       c.Budget.HistorySize,
	}, nil
}
