package scheduler

import (
	"time"

	"github.com/smallbiznis/tiffin/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled        bool
	RunInterval    time.Duration
	BatchSize      int
	GuardRetention time.Duration
	JobTimeout     time.Duration
	EnabledJobs    []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		RunInterval:    10 * time.Minute,
		BatchSize:      500,
		GuardRetention: 72 * time.Hour,
		JobTimeout:     30 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:        cfg.Scheduler.Enabled,
		RunInterval:    cfg.Scheduler.RunInterval,
		BatchSize:      cfg.Scheduler.BatchSize,
		GuardRetention: cfg.Scheduler.GuardRetention,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	// Guards must outlive the longest placement transaction by a wide margin.
	if c.GuardRetention < time.Hour {
		c.GuardRetention = defaults.GuardRetention
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
