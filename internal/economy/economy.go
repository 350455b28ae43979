// Package economy computes income, housing capacity, and population growth.
// Everything here is a pure function of the building list and the ledger;
// nothing performs I/O or fails.
package economy

import (
	"time"

	"github.com/talgya/boomtown/internal/city"
)

// Growth constants, per economy tick.
const (
	BaseCapacity   = 50.0
	BaseGrowth     = 0.02
	JobGrowth      = 0.05 // per job-providing building
	AttractGrowth  = 0.03 // per attractor
	OvercrowdDecay = 0.1
)

// Config holds the cadence of the economy tick.
type Config struct {
	YearsPerTick   float64
	IncomeInterval time.Duration // wall-clock time between income collections
}

// DefaultConfig matches a 100ms tick at 0.027 simulated years per second.
func DefaultConfig() Config {
	return Config{
		YearsPerTick:   0.027 / 10,
		IncomeInterval: 2 * time.Second,
	}
}

// Ledger is the part of the game state the economy tick reads and writes.
type Ledger struct {
	Year       float64   `json:"year"`
	Money      float64   `json:"money"`
	Population float64   `json:"population"`
	LastIncome time.Time `json:"last_income"`
}

// Report describes what one tick did.
type Report struct {
	Income     float64 `json:"income"` // collected this tick, 0 between collections
	Capacity   float64 `json:"capacity"`
	GrowthRate float64 `json:"growth_rate"`
	Collected  bool    `json:"collected"`
}

// Income is the money produced by one collection.
func Income(buildings []city.Building) float64 {
	total := 0.0
	for _, b := range buildings {
		total += city.StatsFor(b.Type).Income
	}
	return total
}

// Capacity is the population the town can house in era.
func Capacity(buildings []city.Building, era city.Era) float64 {
	total := 0.0
	for _, b := range buildings {
		total += city.StatsFor(b.Type).Capacity
	}
	return BaseCapacity + total*era.PopulationMultiplier()
}

// GrowthRate is the per-tick population increase while under capacity.
func GrowthRate(buildings []city.Building) float64 {
	jobs, attractors := 0, 0
	for _, b := range buildings {
		if b.Type.ProvidesJobs() {
			jobs++
		}
		if b.Type.Attracts() {
			attractors++
		}
	}
	return BaseGrowth + JobGrowth*float64(jobs) + AttractGrowth*float64(attractors)
}

// Grow moves population one tick toward capacity. Growth stops at capacity;
// an overcrowded town shrinks by a fixed amount, never below capacity.
func Grow(population, capacity, rate float64) float64 {
	switch {
	case population < capacity:
		return min(population+rate, capacity)
	case population > capacity:
		return max(population-OvercrowdDecay, capacity)
	}
	return population
}

// Tick advances the ledger by one economy tick at wall-clock time now.
func Tick(l Ledger, buildings []city.Building, era city.Era, cfg Config, now time.Time) (Ledger, Report) {
	var r Report
	l.Year += cfg.YearsPerTick

	if now.Sub(l.LastIncome) > cfg.IncomeInterval {
		r.Income = Income(buildings)
		r.Collected = true
		l.Money += r.Income
		l.LastIncome = now
	}

	r.Capacity = Capacity(buildings, era)
	r.GrowthRate = GrowthRate(buildings)
	l.Population = Grow(l.Population, r.Capacity, r.GrowthRate)
	return l, r
}
