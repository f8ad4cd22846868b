package queue

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds analyst queue SLA settings.
type Config struct {
	SLABudget         string `toml:"sla_budget"`
	ApproachingWindow string `toml:"approaching_window"`
	SweepSchedule     string `toml:"sweep_schedule"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	SLABudget         string
	ApproachingWindow string
	SweepSchedule     string
}

// SLABudgetDuration returns SLABudget as a time.Duration.
func (c *Config) SLABudgetDuration() time.Duration {
	d, _ := time.ParseDuration(c.SLABudget)
	return d
}

// ApproachingWindowDuration returns ApproachingWindow as a time.Duration.
func (c *Config) ApproachingWindowDuration() time.Duration {
	d, _ := time.ParseDuration(c.ApproachingWindow)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.SLABudget != "" {
		c.SLABudget = overlay.SLABudget
	}
	if overlay.ApproachingWindow != "" {
		c.ApproachingWindow = overlay.ApproachingWindow
	}
	if overlay.SweepSchedule != "" {
		c.SweepSchedule = overlay.SweepSchedule
	}
}

func (c *Config) loadDefaults() {
	if c.SLABudget == "" {
		c.SLABudget = "8h"
	}
	if c.ApproachingWindow == "" {
		c.ApproachingWindow = "2h"
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = "@every 1m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.SLABudget != "" {
		if v := os.Getenv(env.SLABudget); v != "" {
			c.SLABudget = v
		}
	}
	if env.ApproachingWindow != "" {
		if v := os.Getenv(env.ApproachingWindow); v != "" {
			c.ApproachingWindow = v
		}
	}
	if env.SweepSchedule != "" {
		if v := os.Getenv(env.SweepSchedule); v != "" {
			c.SweepSchedule = v
		}
	}
}

func (c *Config) validate() error {
	budget, err := time.ParseDuration(c.SLABudget)
	if err != nil {
		return fmt.Errorf("invalid sla_budget: %w", err)
	}
	if budget <= 0 {
		return fmt.Errorf("sla_budget must be positive")
	}
	window, err := time.ParseDuration(c.ApproachingWindow)
	if err != nil {
		return fmt.Errorf("invalid approaching_window: %w", err)
	}
	if window <= 0 {
		return fmt.Errorf("approaching_window must be positive")
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sweep_schedule: %w", err)
	}
	return nil
}
