// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrInvalidPollPeriod = errors.New("invalid poll period configuration")
	ErrInvalidJitter     = errors.New("invalid jitter configuration")
	ErrInvalidCatchUp    = errors.New("invalid online catch-up configuration")
)

// Config holds configuration for the poll manager.
type Config struct {
	// Refresh settings
	OnlinePollPeriod  time.Duration `json:"onlinePollPeriod"`  // Default: 60s
	OfflinePollPeriod time.Duration `json:"offlinePollPeriod"` // Default: 30m
	JitterMinPercent  int           `json:"jitterMinPercent"`  // Default: 70
	JitterMaxPercent  int           `json:"jitterMaxPercent"`  // Default: 100

	// Bounds of the shortened refresh interval applied when the session
	// comes back online.
	OnlineCatchUpMin time.Duration `json:"onlineCatchUpMin"` // Default: 3s
	OnlineCatchUpMax time.Duration `json:"onlineCatchUpMax"` // Default: 30s

	// PersistPolls enables durable poll storage and the crash-recovery
	// journal. When false the manager runs purely in-memory.
	PersistPolls bool `json:"persistPolls"`

	// AutomationAccount disables background result polling entirely.
	AutomationAccount bool `json:"automationAccount"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() Config {
	return Config{
		OnlinePollPeriod:  time.Minute,
		OfflinePollPeriod: 30 * time.Minute,
		JitterMinPercent:  70,
		JitterMaxPercent:  100,
		OnlineCatchUpMin:  3 * time.Second,
		OnlineCatchUpMax:  30 * time.Second,
		PersistPolls:      true,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.OnlinePollPeriod <= 0 || c.OfflinePollPeriod <= 0 {
		return ErrInvalidPollPeriod
	}
	if c.JitterMinPercent <= 0 || c.JitterMinPercent > c.JitterMaxPercent || c.JitterMaxPercent > 100 {
		return ErrInvalidJitter
	}
	if c.OnlineCatchUpMin <= 0 || c.OnlineCatchUpMin > c.OnlineCatchUpMax {
		return ErrInvalidCatchUp
	}
	return nil
}

// ParseConfig parses configuration from JSON bytes.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
