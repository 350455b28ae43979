// Package config loads boomtown settings from defaults, an optional config
// file, and BOOMTOWN_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// GridConfig sizes the terrain.
type GridConfig struct {
	Size     int     `mapstructure:"size"`
	TileSize float64 `mapstructure:"tileSize"`
}

// SimConfig holds the economy and narrative cadence.
type SimConfig struct {
	Seed            int64         `mapstructure:"seed"` // 0 = draw from entropy
	TickInterval    time.Duration `mapstructure:"tickInterval"`
	FrameRate       int           `mapstructure:"frameRate"`
	StartYear       float64       `mapstructure:"startYear"`
	YearsPerSecond  float64       `mapstructure:"yearsPerSecond"`
	StartMoney      float64       `mapstructure:"startMoney"`
	StartPopulation float64       `mapstructure:"startPopulation"`
	IncomeInterval  time.Duration `mapstructure:"incomeInterval"`
	NarrativeEvery  float64       `mapstructure:"narrativeEvery"`
}

// TrafficConfig holds agent counts.
type TrafficConfig struct {
	Vehicles    int `mapstructure:"vehicles"`
	Pedestrians int `mapstructure:"pedestrians"`
	Wildlife    int `mapstructure:"wildlife"`
}

// NarrativeConfig configures the Messages API client.
type NarrativeConfig struct {
	APIKey  string        `mapstructure:"apiKey"`
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EntropyConfig configures the random.org seed source.
type EntropyConfig struct {
	APIKey string `mapstructure:"apiKey"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Port     int    `mapstructure:"port"`
	AdminKey string `mapstructure:"adminKey"`
}

// DBConfig locates the chronicle database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the full set of settings.
type Config struct {
	Grid      GridConfig      `mapstructure:"grid"`
	Sim       SimConfig       `mapstructure:"sim"`
	Traffic   TrafficConfig   `mapstructure:"traffic"`
	Narrative NarrativeConfig `mapstructure:"narrative"`
	Entropy   EntropyConfig   `mapstructure:"entropy"`
	API       APIConfig       `mapstructure:"api"`
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grid.size", 24)
	v.SetDefault("grid.tileSize", 2.0)

	v.SetDefault("sim.seed", 0)
	v.SetDefault("sim.tickInterval", "100ms")
	v.SetDefault("sim.frameRate", 30)
	v.SetDefault("sim.startYear", 1850.0)
	v.SetDefault("sim.yearsPerSecond", 0.027)
	v.SetDefault("sim.startMoney", 2000.0)
	v.SetDefault("sim.startPopulation", 20.0)
	v.SetDefault("sim.incomeInterval", "2s")
	v.SetDefault("sim.narrativeEvery", 5.0)

	v.SetDefault("traffic.vehicles", 10)
	v.SetDefault("traffic.pedestrians", 15)
	v.SetDefault("traffic.wildlife", 8)

	v.SetDefault("narrative.apiKey", "")
	v.SetDefault("narrative.url", "https://api.anthropic.com/v1/messages")
	v.SetDefault("narrative.model", "claude-haiku-4-5-20251001")
	v.SetDefault("narrative.timeout", "30s")

	v.SetDefault("entropy.apiKey", "")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.adminKey", "")

	v.SetDefault("db.path", "data/boomtown.db")

	v.SetDefault("log.level", "info")
}

// Load reads settings. path may be empty, in which case only defaults and
// the environment apply. A named file that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOOMTOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("narrative.apiKey", "BOOMTOWN_NARRATIVE_APIKEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("entropy.apiKey", "BOOMTOWN_ENTROPY_APIKEY", "RANDOM_ORG_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Grid.Size <= 0:
		return fmt.Errorf("grid.size must be positive, got %d", c.Grid.Size)
	case c.Grid.TileSize <= 0:
		return fmt.Errorf("grid.tileSize must be positive, got %v", c.Grid.TileSize)
	case c.Sim.TickInterval <= 0:
		return fmt.Errorf("sim.tickInterval must be positive, got %v", c.Sim.TickInterval)
	case c.Sim.FrameRate <= 0:
		return fmt.Errorf("sim.frameRate must be positive, got %d", c.Sim.FrameRate)
	}
	return nil
}

// YearsPerTick converts the simulated-years-per-second rate to one economy tick.
func (c *Config) YearsPerTick() float64 {
	return c.Sim.YearsPerSecond * c.Sim.TickInterval.Seconds()
}

// FrameInterval is the traffic step interval.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Sim.FrameRate)
}

// LogLevel parses the configured level; unknown names mean info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
