// Package terrain provides the square tile grid and its procedural generator.
// Grid coordinates are integers centred on the origin; world coordinates are
// grid coordinates scaled by the tile size.
package terrain

import (
	"fmt"
	"math"
	"slices"
)

// Kind is the terrain type of a tile.
type Kind uint8

const (
	Ground Kind = iota
	Water
	Hill
)

var kindNames = [...]string{"GROUND", "WATER", "HILL"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind resolves an upper-case kind name.
func ParseKind(s string) (Kind, bool) {
	i := slices.Index(kindNames[:], s)
	return Kind(max(i, 0)), i >= 0
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown terrain kind %q", string(b))
	}
	*k = v
	return nil
}

// Decoration is cosmetic scenery that a demolish action can clear.
type Decoration uint8

const (
	NoDecoration Decoration = iota
	Rock
	Bush
	Grass
)

var decorationNames = [...]string{"NONE", "ROCK", "BUSH", "GRASS"}

func (d Decoration) String() string {
	if int(d) < len(decorationNames) {
		return decorationNames[d]
	}
	return fmt.Sprintf("Decoration(%d)", uint8(d))
}

func (d Decoration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// ParseDecoration resolves an upper-case decoration name.
func ParseDecoration(s string) (Decoration, bool) {
	i := slices.Index(decorationNames[:], s)
	return Decoration(max(i, 0)), i >= 0
}

func (d *Decoration) UnmarshalText(b []byte) error {
	v, ok := ParseDecoration(string(b))
	if !ok {
		return fmt.Errorf("unknown decoration %q", string(b))
	}
	*d = v
	return nil
}

// Resource hints which mine a hill tile supports.
type Resource uint8

const (
	NoResource Resource = iota
	Gold
	Silver
	Coal
)

var resourceNames = [...]string{"", "GOLD", "SILVER", "COAL"}

func (r Resource) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return fmt.Sprintf("Resource(%d)", uint8(r))
}

func (r Resource) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// ParseResource resolves an upper-case resource name.
func ParseResource(s string) (Resource, bool) {
	i := slices.Index(resourceNames[:], s)
	return Resource(max(i, 0)), i >= 0
}

func (r *Resource) UnmarshalText(b []byte) error {
	v, ok := ParseResource(string(b))
	if !ok {
		return fmt.Errorf("unknown resource %q", string(b))
	}
	*r = v
	return nil
}

// Coord is an integer grid position.
type Coord struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Tile is one grid cell.
type Tile struct {
	Coord
	Kind           Kind       `json:"type"`
	Decoration     Decoration `json:"decoration"`
	Height         float64    `json:"height"`
	Resource       Resource   `json:"resource_hint,omitempty"`
	ColorVariation float64    `json:"color_variation"`
}

// SurfaceY is the height agents stand on.
func (t *Tile) SurfaceY() float64 {
	return t.Height - 0.5
}

// Map holds every tile of a square grid.
type Map struct {
	Size     int     `json:"size"`
	TileSize float64 `json:"tile_size"`
	Tiles    []*Tile `json:"tiles"` // row-major by X, then Z

	index map[Coord]*Tile
}

// NewMap lays a uniform ground grid of size×size tiles at height 1.
func NewMap(size int, tileSize float64) *Map {
	m := &Map{
		Size:     size,
		TileSize: tileSize,
		Tiles:    make([]*Tile, 0, size*size),
		index:    make(map[Coord]*Tile, size*size),
	}
	lo, hi := m.Bounds()
	for x := lo; x < hi; x++ {
		for z := lo; z < hi; z++ {
			t := &Tile{Coord: Coord{X: x, Z: z}, Kind: Ground, Height: 1}
			m.Tiles = append(m.Tiles, t)
			m.index[t.Coord] = t
		}
	}
	return m
}

// Bounds returns the half-open grid coordinate range [lo, hi) on both axes.
func (m *Map) Bounds() (lo, hi int) {
	lo = -m.Size / 2
	return lo, lo + m.Size
}

// InBounds reports whether the grid coordinate lies on the map.
func (m *Map) InBounds(x, z int) bool {
	lo, hi := m.Bounds()
	return x >= lo && x < hi && z >= lo && z < hi
}

// At returns the tile at a grid coordinate, or nil when out of bounds.
func (m *Map) At(x, z int) *Tile {
	return m.index[Coord{X: x, Z: z}]
}

// ToWorld converts a grid coordinate to world units.
func (m *Map) ToWorld(x, z int) (float64, float64) {
	return float64(x) * m.TileSize, float64(z) * m.TileSize
}

// ToGrid snaps world units to the nearest grid coordinate.
func (m *Map) ToGrid(wx, wz float64) (int, int) {
	return int(math.Round(wx / m.TileSize)), int(math.Round(wz / m.TileSize))
}

// AtWorld returns the tile under a world position, or nil.
func (m *Map) AtWorld(wx, wz float64) *Tile {
	x, z := m.ToGrid(wx, wz)
	return m.At(x, z)
}

// Extent is the side length of the map in world units.
func (m *Map) Extent() float64 {
	return float64(m.Size) * m.TileSize
}

// Clone deep-copies the map.
func (m *Map) Clone() *Map {
	out := &Map{
		Size:     m.Size,
		TileSize: m.TileSize,
		Tiles:    make([]*Tile, len(m.Tiles)),
		index:    make(map[Coord]*Tile, len(m.Tiles)),
	}
	for i, t := range m.Tiles {
		c := *t
		out.Tiles[i] = &c
		out.index[c.Coord] = &c
	}
	return out
}

// TileCount returns the number of tiles.
func (m *Map) TileCount() int {
	return len(m.Tiles)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(size=%d, tile=%.1f, tiles=%d)", m.Size, m.TileSize, m.TileCount())
}
