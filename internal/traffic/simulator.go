package traffic

import (
	"math"
	"math/rand"

	"github.com/talgya/boomtown/internal/roads"
	"github.com/talgya/boomtown/internal/terrain"
)

// Config sets agent population sizes.
type Config struct {
	Vehicles    int
	Pedestrians int
	Wildlife    int
}

// DefaultConfig returns the standard agent counts.
func DefaultConfig() Config {
	return Config{Vehicles: 10, Pedestrians: 15, Wildlife: 8}
}

// Simulator owns every agent and the vehicle occupancy registry. It is not
// safe for concurrent use; callers serialise Step with other state changes.
type Simulator struct {
	Vehicles    []*RoadAgent `json:"vehicles"`
	Pedestrians []*RoadAgent `json:"pedestrians"`
	Wildlife    []*Animal    `json:"wildlife"`
	Registry    Registry     `json:"registry"`

	rng          *rand.Rand
	extent       float64 // wildlife wander square side, world units
	graphVersion uint64
}

// NewSimulator creates agents for a map of the given side length.
func NewSimulator(cfg Config, mapExtent float64, rng *rand.Rand) *Simulator {
	s := &Simulator{
		Registry: make(Registry),
		rng:      rng,
		extent:   mapExtent * 0.75,
	}
	id := 0
	for i := 0; i < cfg.Vehicles; i++ {
		s.Vehicles = append(s.Vehicles, &RoadAgent{
			ID:       id,
			Kind:     Vehicle,
			MaxSpeed: VehicleSpeed * (0.9 + rng.Float64()*0.2),
			Lane:     0.45 + (rng.Float64()*0.1 - 0.05),
		})
		id++
	}
	for i := 0; i < cfg.Pedestrians; i++ {
		side := -SidewalkOffset
		if rng.Float64() > 0.5 {
			side = SidewalkOffset
		}
		s.Pedestrians = append(s.Pedestrians, &RoadAgent{
			ID:       id,
			Kind:     Pedestrian,
			MaxSpeed: PedestrianSpeed * (0.8 + rng.Float64()*0.4),
			Lane:     side,
		})
		id++
	}
	for i := 0; i < cfg.Wildlife; i++ {
		species := Deer
		if rng.Float64() > 0.5 {
			species = Bison
		}
		x, z := s.randomPoint()
		tx, tz := s.randomPoint()
		s.Wildlife = append(s.Wildlife, &Animal{
			ID:      id,
			Species: species,
			X:       x,
			Z:       z,
			TargetX: tx,
			TargetZ: tz,
			Speed:   (0.005 + rng.Float64()*0.005) * 60,
		})
		id++
	}
	return s
}

// Step advances every agent by dt seconds in a fixed order: vehicles, then
// pedestrians, then wildlife, each by ascending id. Each vehicle sees the
// registry changes of the vehicles stepped before it.
func (s *Simulator) Step(g *roads.Graph, m *terrain.Map, dt float64) {
	if dt <= 0 {
		return
	}
	if g.Version != s.graphVersion {
		s.Registry.prune(g.Has)
		s.graphVersion = g.Version
	}

	for _, a := range s.Vehicles {
		next, delta := s.advanceVehicle(*a, g, dt)
		*a = next
		s.Registry.apply(a.ID, delta)
	}
	for _, a := range s.Pedestrians {
		*a = s.advancePedestrian(*a, g, dt)
	}
	for _, a := range s.Wildlife {
		*a = s.advanceAnimal(*a, dt)
	}
}

// advanceVehicle computes one vehicle step against the current registry
// without mutating it; the returned delta is applied by the caller.
func (s *Simulator) advanceVehicle(a RoadAgent, g *roads.Graph, dt float64) (RoadAgent, occupancyDelta) {
	var d occupancyDelta

	if !a.spawned || !g.Has(a.Current) {
		if a.Current != "" {
			d.leave = append(d.leave, a.Current)
		}
		ids := g.IDs()
		if len(ids) == 0 {
			a.Current, a.Next, a.Prev = "", "", ""
			return a, d
		}
		a.Current = ids[s.rng.Intn(len(ids))]
		a.Next, a.Prev = "", ""
		if !a.spawned {
			a.Progress = s.rng.Float64()
			a.spawned = true
		}
		d.enter, d.progress = a.Current, a.Progress
		return a, d
	}

	if a.Next != "" && !g.Has(a.Next) {
		a.Next = ""
	}
	if a.Next == "" {
		a.Next = chooseNext(g, g.Node(a.Current), a.Prev, s.rng)
	}

	target := a.MaxSpeed
	if s.Registry.Ahead(a.Current, a.ID, a.Progress, SafeDistance) {
		target = 0
	}
	a.Speed = ease(a.Speed, target, dt*SpeedEasing)

	if a.Speed < StuckSpeed {
		a.StuckTime += dt
		if a.StuckTime > StuckTimeout {
			d.leave = append(d.leave, a.Current)
			ids := g.IDs()
			a.Current = ids[s.rng.Intn(len(ids))]
			a.Progress = s.rng.Float64()
			a.Next, a.Prev = "", ""
			a.StuckTime = 0
			d.enter, d.progress = a.Current, a.Progress
			return a, d
		}
	} else {
		a.StuckTime = 0
	}

	a.Progress += a.Speed * dt / g.TileSize
	if a.Progress >= 1 {
		d.leave = append(d.leave, a.Current)
		a.Prev = a.Current
		a.Current = a.Next
		a.Progress = 0
		a.Next = chooseNext(g, g.Node(a.Current), a.Prev, s.rng)
	}
	d.enter, d.progress = a.Current, a.Progress
	return a, d
}

func (s *Simulator) advancePedestrian(a RoadAgent, g *roads.Graph, dt float64) RoadAgent {
	if !a.spawned || !g.Has(a.Current) {
		ids := g.IDs()
		if len(ids) == 0 {
			a.Current, a.Next = "", ""
			return a
		}
		a.Current = ids[s.rng.Intn(len(ids))]
		a.Next = ""
		if a.spawned {
			a.Progress = 0
		} else {
			a.Progress = s.rng.Float64()
			a.spawned = true
		}
		return a
	}

	cur := g.Node(a.Current)
	if a.Next != "" && !g.Has(a.Next) {
		a.Next = ""
	}
	if a.Next == "" {
		if len(cur.Neighbors) == 0 {
			return a
		}
		a.Next = cur.Neighbors[s.rng.Intn(len(cur.Neighbors))]
	}

	a.Speed = a.MaxSpeed
	a.Progress += a.Speed * dt / g.TileSize
	if a.Progress >= 1 {
		a.Prev = a.Current
		a.Current = a.Next
		a.Next = ""
		a.Progress = 0
		if s.rng.Float64() < SideFlipChance {
			a.Lane = -a.Lane
		}
		if next := g.Node(a.Current).Neighbors; len(next) > 0 {
			a.Next = next[s.rng.Intn(len(next))]
		}
	}
	return a
}

func (s *Simulator) advanceAnimal(a Animal, dt float64) Animal {
	if a.Idle > 0 {
		a.Idle = math.Max(0, a.Idle-dt)
		return a
	}

	dx, dz := a.TargetX-a.X, a.TargetZ-a.Z
	dist := math.Sqrt(dx*dx + dz*dz)
	if dist < ArrivalRadius {
		a.Idle = 2 + s.rng.Float64()*3
		a.TargetX, a.TargetZ = s.randomPoint()
		return a
	}

	move := math.Min(a.Speed*dt, dist)
	a.X += dx / dist * move
	a.Z += dz / dist * move
	return a
}

func (s *Simulator) randomPoint() (float64, float64) {
	return (s.rng.Float64() - 0.5) * s.extent, (s.rng.Float64() - 0.5) * s.extent
}
