// internal/platform/config.go

package platform

import (
	"errors"
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Line binds one task level to an interrupt line and its controller priority.
type Line struct {
	ID       uint32 `yaml:"id"`
	Priority int    `yaml:"priority"`
}

// IRQLines holds the fixed task interrupt lines of the platform.
type IRQLines struct {
	Low  Line `yaml:"low"`
	Med  Line `yaml:"med"`
	High Line `yaml:"high"`
}

// Config mirrors config.yml
type Config struct {
	Cores      int      `yaml:"cores"`       // 4 (by default)
	TaskLevels int      `yaml:"task_levels"` // 2 or 3 interrupt lines for deferred tasks
	IRQ        IRQLines `yaml:"irq"`
	QueuePool  int      `yaml:"queue_pool"` // 0 = cores * 3
	Debug      bool     `yaml:"debug"`
	PinCores   bool     `yaml:"pin_cores"`
	TickMS     int      `yaml:"tick_ms"` // 1 (by default)
	LogLevel   string   `yaml:"log_level"`
	LogFormat  string   `yaml:"log_format"` // console or json
}

// DefaultConfig is used when no config file is found.
func DefaultConfig() Config {
	return Config{
		Cores:      4,
		TaskLevels: 3,
		IRQ: IRQLines{
			Low:  Line{ID: 8, Priority: 1},
			Med:  Line{ID: 9, Priority: 2},
			High: Line{ID: 10, Priority: 3},
		},
		TickMS:    1,
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file = defaults only
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.clamp()
	return cfg, nil
}

// sanity clamps
func (c *Config) clamp() {
	if c.Cores <= 0 {
		c.Cores = 1
	}
	if c.TaskLevels != 2 {
		c.TaskLevels = 3
	}
	if c.QueuePool < 0 {
		c.QueuePool = 0
	}
	if c.TickMS <= 0 {
		c.TickMS = 1
	}
	for _, l := range []*Line{&c.IRQ.Low, &c.IRQ.Med, &c.IRQ.High} {
		if l.Priority <= 0 {
			l.Priority = 1
		}
	}
}

// PoolSize is the number of queue slots allocated at boot.
func (c Config) PoolSize() int {
	if c.QueuePool > 0 {
		return c.QueuePool
	}
	return c.Cores * 3
}
