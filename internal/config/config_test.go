package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Grid.Size)
	assert.Equal(t, 2.0, cfg.Grid.TileSize)
	assert.Equal(t, int64(0), cfg.Sim.Seed)
	assert.Equal(t, 100*time.Millisecond, cfg.Sim.TickInterval)
	assert.Equal(t, 30, cfg.Sim.FrameRate)
	assert.Equal(t, 1850.0, cfg.Sim.StartYear)
	assert.Equal(t, 2000.0, cfg.Sim.StartMoney)
	assert.Equal(t, 20.0, cfg.Sim.StartPopulation)
	assert.Equal(t, 2*time.Second, cfg.Sim.IncomeInterval)
	assert.Equal(t, 5.0, cfg.Sim.NarrativeEvery)
	assert.Equal(t, TrafficConfig{Vehicles: 10, Pedestrians: 15, Wildlife: 8}, cfg.Traffic)
	assert.Equal(t, 30*time.Second, cfg.Narrative.Timeout)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "data/boomtown.db", cfg.DB.Path)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())

	assert.InDelta(t, 0.0027, cfg.YearsPerTick(), 1e-12)
	assert.Equal(t, time.Second/30, cfg.FrameInterval())
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boomtown.json")
	body := `{
		"grid": {"size": 32},
		"sim": {"seed": 99, "tickInterval": "50ms"},
		"traffic": {"wildlife": 0},
		"log": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Grid.Size)
	assert.Equal(t, int64(99), cfg.Sim.Seed)
	assert.Equal(t, 50*time.Millisecond, cfg.Sim.TickInterval)
	assert.Equal(t, 0, cfg.Traffic.Wildlife)
	assert.Equal(t, 10, cfg.Traffic.Vehicles)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BOOMTOWN_API_PORT", "9090")
	t.Setenv("BOOMTOWN_DB_PATH", "/tmp/x.db")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "/tmp/x.db", cfg.DB.Path)
	assert.Equal(t, "sk-test", cfg.Narrative.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/boomtown.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_RejectsInvalidGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid:\n  size: 0\n"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "grid.size")
}

func TestLogLevel_UnknownIsInfo(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "chatty"}}
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	cfg.Log.Level = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
}
