// Command boomtown runs the frontier town simulation and its HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/boomtown/internal/api"
	"github.com/talgya/boomtown/internal/config"
	"github.com/talgya/boomtown/internal/engine"
	"github.com/talgya/boomtown/internal/entropy"
	"github.com/talgya/boomtown/internal/llm"
	"github.com/talgya/boomtown/internal/persistence"
	"github.com/talgya/boomtown/internal/terrain"
	"github.com/talgya/boomtown/internal/traffic"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("Boomtown: frontier town simulation")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Seed ──────────────────────────────────────────────────────────
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = entropy.Seed(ctx, entropy.NewClient(cfg.Entropy.APIKey))
	}
	slog.Info("seed chosen", "seed", seed)

	// ── Terrain ───────────────────────────────────────────────────────
	gen := terrain.DefaultGenConfig()
	gen.Size = cfg.Grid.Size
	gen.TileSize = cfg.Grid.TileSize
	gen.Seed = seed
	m, buildings := terrain.Generate(gen)
	for kind, n := range terrain.TerrainCounts(m) {
		slog.Info("terrain", "type", kind, "count", n)
	}
	slog.Info("pre-placed buildings", "count", len(buildings))

	// ── Database ──────────────────────────────────────────────────────
	if err := ensureDataDir(cfg.DB.Path); err != nil {
		slog.Warn("failed to create data directory", "path", cfg.DB.Path, "error", err)
	}
	db, err := persistence.Open(cfg.DB.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	playthrough, err := db.BeginPlaythrough(seed)
	if err != nil {
		slog.Error("failed to start playthrough", "error", err)
		os.Exit(1)
	}
	slog.Info("database opened", "path", cfg.DB.Path, "playthrough", playthrough)

	// ── Narrative ─────────────────────────────────────────────────────
	client := llm.NewClient(cfg.Narrative.APIKey,
		llm.WithURL(cfg.Narrative.URL),
		llm.WithModel(cfg.Narrative.Model),
		llm.WithTimeout(cfg.Narrative.Timeout),
		llm.WithRateLimit(10),
	)
	if client.Enabled() {
		slog.Info("narrative enabled", "model", cfg.Narrative.Model)
	} else {
		slog.Info("narrative disabled (no API key), using fallback events")
	}

	// ── Simulation ────────────────────────────────────────────────────
	simCfg := engine.DefaultConfig()
	simCfg.StartYear = cfg.Sim.StartYear
	simCfg.StartMoney = cfg.Sim.StartMoney
	simCfg.StartPopulation = cfg.Sim.StartPopulation
	simCfg.NarrativeEvery = cfg.Sim.NarrativeEvery
	simCfg.NarrativeTimeout = cfg.Narrative.Timeout
	simCfg.Economy.YearsPerTick = cfg.YearsPerTick()
	simCfg.Economy.IncomeInterval = cfg.Sim.IncomeInterval
	simCfg.Traffic = traffic.Config{
		Vehicles:    cfg.Traffic.Vehicles,
		Pedestrians: cfg.Traffic.Pedestrians,
		Wildlife:    cfg.Traffic.Wildlife,
	}

	sim := engine.NewSimulation(simCfg, m, buildings, seed, llm.NewEventWriter(client))
	db.Attach(sim)
	if err := db.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
		slog.Warn("failed to save seed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	economyEng := economyEngine(gctx, sim, cfg.Sim.TickInterval)

	trafficEng := engine.NewEngine("traffic", cfg.FrameInterval())
	trafficEng.OnTick = func(tick uint64, dt time.Duration) {
		sim.StepTraffic(dt.Seconds())
	}

	srv := &api.Server{
		Sim:      sim,
		Eng:      economyEng,
		DB:       db,
		Port:     cfg.API.Port,
		AdminKey: cfg.API.AdminKey,
	}

	g.Go(func() error { return economyEng.Run(gctx) })
	g.Go(func() error { return trafficEng.Run(gctx) })
	g.Go(func() error { return srv.Start(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("shutting down", "error", err)
	}
	stop()
	sim.Wait()

	st := sim.Snapshot()
	if err := db.SaveMeta("last_year", strconv.Itoa(int(st.Year))); err != nil {
		slog.Warn("failed to save last year", "error", err)
	}
	slog.Info("boomtown stopped", "year", int(st.Year), "era", st.Era, "population", int(st.Population))
}

// ensureDataDir creates the directory holding the database file.
func ensureDataDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// economyEngine ticks the economy every interval. Narrative requests started
// by a tick are bound to ctx.
func economyEngine(ctx context.Context, sim *engine.Simulation, interval time.Duration) *engine.Engine {
	eng := engine.NewEngine("economy", interval)
	eng.TicksPerReport = uint64(10 * time.Second / interval)
	eng.OnTick = func(tick uint64, dt time.Duration) {
		sim.TickEconomy(ctx)
	}
	eng.OnReport = func(tick uint64) {
		st := sim.Snapshot()
		slog.Info("town status",
			"tick", tick,
			"year", int(st.Year),
			"era", st.Era,
			"money", int(st.Money),
			"population", int(st.Population),
			"buildings", len(st.Buildings),
		)
	}
	return eng
}
