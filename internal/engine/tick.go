// Package engine owns the game state and drives it with fixed-interval loops.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine calls OnTick at a fixed interval until its context ends.
type Engine struct {
	Name           string
	Interval       time.Duration // base tick interval at speed 1
	TicksPerReport uint64        // OnReport cadence; 0 disables it

	// Callbacks, populated during setup.
	OnTick   func(tick uint64, dt time.Duration) // dt is the wall time since the previous tick
	OnReport func(tick uint64)

	mu    sync.Mutex
	tick  uint64
	speed float64
}

// NewEngine creates an engine running at real-time speed.
func NewEngine(name string, interval time.Duration) *Engine {
	return &Engine{
		Name:     name,
		Interval: interval,
		speed:    1.0,
	}
}

// Speed returns the current multiplier: 1.0 = real-time, 0 = paused.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the multiplier. Negative values pause.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	e.mu.Lock()
	e.speed = speed
	e.mu.Unlock()
}

// Tick returns the number of ticks run so far.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Run drives the loop. It blocks until ctx is done and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine started", "engine", e.Name, "interval", e.Interval, "speed", e.Speed())
	defer func() {
		slog.Info("engine stopped", "engine", e.Name, "tick", e.Tick())
	}()

	last := time.Now()
	for {
		speed := e.Speed()
		if speed <= 0 {
			// Paused: poll without advancing, and don't count the pause as dt.
			if !sleep(ctx, 100*time.Millisecond) {
				return nil
			}
			last = time.Now()
			continue
		}

		start := time.Now()
		e.step(start.Sub(last))
		last = start

		target := time.Duration(float64(e.Interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			if !sleep(ctx, target-elapsed) {
				return nil
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}
}

// step advances the engine by one tick.
func (e *Engine) step(dt time.Duration) {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick, dt)
	}
	if e.TicksPerReport > 0 && tick%e.TicksPerReport == 0 && e.OnReport != nil {
		e.OnReport(tick)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
