/*
Package config loads server configuration from a file and environment.

PURPOSE:
  Centralizes the runtime knobs for the booking engine: listen address,
  database path, business timezone, materialization horizon, scheduler
  cadence, and hold TTL. Values come from an optional config file
  (YAML/TOML/JSON, whatever viper recognizes) with APP_* environment
  overrides, falling back to defaults that work out of the box.

USAGE:
  cfg, err := config.Load("config.yaml") // path may be ""
*/
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings.
type Config struct {
	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	DB struct {
		Path string
	} `mapstructure:"db"`

	App struct {
		// Timezone is the business's civil timezone; week boundaries
		// and naive billing timestamps are interpreted in it.
		Timezone     string
		HorizonWeeks int `mapstructure:"horizon_weeks"`
	} `mapstructure:"app"`

	Scheduler struct {
		Enabled         bool
		IntervalMinutes int `mapstructure:"interval_minutes"`
	} `mapstructure:"scheduler"`

	Holds struct {
		TTLMinutes int `mapstructure:"ttl_minutes"`
	} `mapstructure:"holds"`
}

// Horizon returns the materialization window as a duration.
func (c Config) Horizon() time.Duration {
	return time.Duration(c.App.HorizonWeeks) * 7 * 24 * time.Hour
}

// SchedulerInterval returns how often the scheduler runs a pass.
func (c Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalMinutes) * time.Minute
}

// HoldTTL returns how long capacity holds live.
func (c Config) HoldTTL() time.Duration {
	return time.Duration(c.Holds.TTLMinutes) * time.Minute
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from an optional file path plus APP_*
// environment variables. An empty path uses defaults and environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("db.path", "./data/walks.db")
	v.SetDefault("app.timezone", "Australia/Brisbane")
	v.SetDefault("app.horizon_weeks", 8)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval_minutes", 60)
	v.SetDefault("holds.ttl_minutes", 10)

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
