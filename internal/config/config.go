package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Versifine/locus-statemachine/internal/logger"
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Follow    FollowConfig    `yaml:"follow"`
	Movements MovementsConfig `yaml:"movements"`
	Sim       SimConfig       `yaml:"sim"`
	Debug     DebugConfig     `yaml:"debug"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type FollowConfig struct {
	// Distance is the follow range in blocks; 0 means "stand on the target".
	Distance float64 `yaml:"distance"`
	// MaxRange bounds the search for a player to follow.
	MaxRange float64 `yaml:"max_range"`
}

type MovementsConfig struct {
	AllowSprinting *bool `yaml:"allow_sprinting"`
	CanJumpUp      *bool `yaml:"can_jump_up"`
	// MaxDropDown of 0 forbids stepping off ledges; unset means the default.
	MaxDropDown    *int  `yaml:"max_drop_down"`
	MaxSearchDist  int   `yaml:"max_search_dist"`
}

type SimConfig struct {
	TickMs int     `yaml:"tick_ms"`
	Ticks  int     `yaml:"ticks"`
	Speed  float64 `yaml:"speed"`
}

type DebugConfig struct {
	Listen string `yaml:"listen"`
}

const (
	defaultFollowMaxRange = 32
	defaultMaxDropDown    = 3
	defaultMaxSearchDist  = 64
	defaultTickMs         = 50
	defaultTicks          = 400
	defaultSpeed          = 0.2
)

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "", "console", "text", "json":
	default:
		return fmt.Errorf("logging.format must be console, text or json, got %q", c.Logging.Format)
	}
	if c.Follow.Distance < 0 {
		return fmt.Errorf("follow.distance must be >= 0, got %v", c.Follow.Distance)
	}
	if c.Movements.MaxDropDown != nil && *c.Movements.MaxDropDown < 0 {
		return fmt.Errorf("movements.max_drop_down must be >= 0, got %d", *c.Movements.MaxDropDown)
	}
	if c.Sim.Speed < 0 {
		return fmt.Errorf("sim.speed must be >= 0, got %v", c.Sim.Speed)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Follow.MaxRange <= 0 {
		c.Follow.MaxRange = defaultFollowMaxRange
	}
	if c.Movements.AllowSprinting == nil {
		c.Movements.AllowSprinting = boolPtr(true)
	}
	if c.Movements.CanJumpUp == nil {
		c.Movements.CanJumpUp = boolPtr(true)
	}
	if c.Movements.MaxDropDown == nil {
		c.Movements.MaxDropDown = intPtr(defaultMaxDropDown)
	}
	if c.Movements.MaxSearchDist <= 0 {
		c.Movements.MaxSearchDist = defaultMaxSearchDist
	}
	if c.Sim.TickMs <= 0 {
		c.Sim.TickMs = defaultTickMs
	}
	if c.Sim.Ticks <= 0 {
		c.Sim.Ticks = defaultTicks
	}
	if c.Sim.Speed == 0 {
		c.Sim.Speed = defaultSpeed
	}
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int { return &v }
