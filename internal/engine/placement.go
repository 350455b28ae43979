package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/terrain"
)

// Placement rejections. State is unchanged whenever one is returned.
var (
	ErrOutOfBounds       = errors.New("tile out of bounds")
	ErrInvalidTerrain    = errors.New("invalid terrain for building type")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTileOccupied      = errors.New("tile occupied")
	ErrNotPlaceable      = errors.New("building type cannot be placed")
)

// PlacementError describes a rejected placement or demolish.
type PlacementError struct {
	Type city.BuildingType
	Tile terrain.Coord
	Err  error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("place %s at (%d,%d): %v", e.Type, e.Tile.X, e.Tile.Z, e.Err)
}

func (e *PlacementError) Unwrap() error { return e.Err }

// DemolishResult reports what a demolish action removed.
type DemolishResult struct {
	Building   *city.Building     `json:"building,omitempty"`
	Decoration terrain.Decoration `json:"decoration"`
	Cost       float64            `json:"cost"`
}

// Noop reports whether nothing was on the tile.
func (r DemolishResult) Noop() bool {
	return r.Building == nil && r.Decoration == terrain.NoDecoration
}

// PlaceBuilding buys a building of type t at grid (x, z).
func (s *Simulation) PlaceBuilding(t city.BuildingType, x, z int) (city.Building, error) {
	s.mu.Lock()
	b, err := s.place(t, x, z)
	s.mu.Unlock()

	if err != nil {
		slog.Debug("placement rejected", "type", t, "x", x, "z", z, "error", err)
		return city.Building{}, err
	}
	slog.Debug("building placed", "type", t, "x", x, "z", z, "id", b.ID)
	return b, nil
}

func (s *Simulation) place(t city.BuildingType, x, z int) (city.Building, error) {
	reject := func(err error) (city.Building, error) {
		return city.Building{}, &PlacementError{Type: t, Tile: terrain.Coord{X: x, Z: z}, Err: err}
	}

	tile := s.terrain.At(x, z)
	if tile == nil {
		return reject(ErrOutOfBounds)
	}
	if !t.Purchasable() {
		return reject(ErrNotPlaceable)
	}
	if (tile.Kind == terrain.Water) != (t == city.Bridge) {
		return reject(ErrInvalidTerrain)
	}
	cost := city.Cost(t)
	if s.state.Money < cost {
		return reject(ErrInsufficientFunds)
	}
	if s.buildingAt(x, z) >= 0 {
		return reject(ErrTileOccupied)
	}

	rotation := 0.0
	if s.rng.Float64() > 0.5 {
		rotation = math.Pi / 2
	}
	b := city.NewBuilding(t, s.state.Era, x, z, rotation, s.rng.Intn(5))

	s.state.Money -= cost
	s.state.Buildings = append(s.state.Buildings, b)
	s.graph.Add(b)
	s.markConstruction()
	return b, nil
}

// Demolish clears grid (x, z): a building if present, else a decoration.
// Either costs the DEMOLISH price; an empty tile is a free no-op.
func (s *Simulation) Demolish(x, z int) (DemolishResult, error) {
	s.mu.Lock()
	res, err := s.demolish(x, z)
	s.mu.Unlock()

	if err != nil {
		slog.Debug("demolish rejected", "x", x, "z", z, "error", err)
		return res, err
	}
	if !res.Noop() {
		slog.Debug("demolished", "x", x, "z", z, "cost", res.Cost)
	}
	return res, nil
}

func (s *Simulation) demolish(x, z int) (DemolishResult, error) {
	reject := func(err error) (DemolishResult, error) {
		return DemolishResult{}, &PlacementError{Type: city.Demolish, Tile: terrain.Coord{X: x, Z: z}, Err: err}
	}

	tile := s.terrain.At(x, z)
	if tile == nil {
		return reject(ErrOutOfBounds)
	}
	idx := s.buildingAt(x, z)
	if idx < 0 && tile.Decoration == terrain.NoDecoration {
		return DemolishResult{}, nil
	}
	cost := city.Cost(city.Demolish)
	if s.state.Money < cost {
		return reject(ErrInsufficientFunds)
	}

	s.state.Money -= cost
	res := DemolishResult{Cost: cost}
	if idx >= 0 {
		b := s.state.Buildings[idx]
		s.state.Buildings = append(s.state.Buildings[:idx:idx], s.state.Buildings[idx+1:]...)
		s.graph.Remove(b.ID)
		s.markConstruction()
		res.Building = &b
		return res, nil
	}
	res.Decoration = tile.Decoration
	tile.Decoration = terrain.NoDecoration
	return res, nil
}

// buildingAt returns the index of the building on (x, z), or -1.
func (s *Simulation) buildingAt(x, z int) int {
	for i, b := range s.state.Buildings {
		if b.GridX == x && b.GridZ == z {
			return i
		}
	}
	return -1
}

func (s *Simulation) markConstruction() {
	if s.state.News == WelcomeHeadline {
		s.state.News = ConstructionHeadline
	}
}
