// Terrain generation: a sinusoidal river, three resource hill clusters, and a
// per-tile scenery pass that also pre-places mines and forest.
package terrain

import (
	"math"
	"math/rand"

	"github.com/talgya/boomtown/internal/city"
)

// GenConfig holds terrain generation parameters.
type GenConfig struct {
	Size     int     // Tiles per side
	TileSize float64 // World units per tile
	Seed     int64   // Random seed (0 = random)

	RiverAmplitude float64 // World units of sideways swing
	RiverFrequency float64 // Radians per normalised map width
	RiverHalfWidth float64 // In tiles
	HillSpread     float64 // Hill centres fall within ±HillSpread/2 world units
}

// DefaultGenConfig returns the standard 24×24 playfield.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Size:           24,
		TileSize:       2,
		Seed:           0,
		RiverAmplitude: 10,
		RiverFrequency: 4,
		RiverHalfWidth: 1.5,
		HillSpread:     30,
	}
}

// SmallTestConfig returns a tiny map for fast tests.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Size = 8
	cfg.Seed = 42
	return cfg
}

type hillCluster struct {
	x, z     float64
	radius   float64
	resource Resource
}

// Generate creates the tile grid and the buildings that exist before the
// player arrives. Output is fully determined by cfg.Seed when it is non-zero.
func Generate(cfg GenConfig) (*Map, []city.Building) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	m := NewMap(cfg.Size, cfg.TileSize)
	for _, t := range m.Tiles {
		t.ColorVariation = rng.Float64()
	}

	carveRiver(m, cfg, rng.Float64()*math.Pi)

	hills := []hillCluster{
		{radius: 8, resource: Gold},
		{radius: 6, resource: Coal},
		{radius: 6, resource: Silver},
	}
	for i := range hills {
		hills[i].x = (rng.Float64() - 0.5) * cfg.HillSpread
		hills[i].z = (rng.Float64() - 0.5) * cfg.HillSpread
	}

	var buildings []city.Building
	for _, t := range m.Tiles {
		if t.Kind == Water {
			continue
		}
		raiseHills(m, t, hills, rng)
		if b, ok := decorate(m, t, rng); ok {
			buildings = append(buildings, b)
		}
	}

	return m, buildings
}

// carveRiver floods every tile within RiverHalfWidth tiles of the curve
// z = sin(x/extent * frequency + phase) * amplitude.
func carveRiver(m *Map, cfg GenConfig, phase float64) {
	extent := m.Extent()
	for _, t := range m.Tiles {
		wx, wz := m.ToWorld(t.X, t.Z)
		centerZ := math.Sin(wx/extent*cfg.RiverFrequency+phase) * cfg.RiverAmplitude
		if math.Abs(wz-centerZ) < m.TileSize*cfg.RiverHalfWidth {
			t.Kind = Water
			t.Height = 0.5
		}
	}
}

// raiseHills turns t into a hill for every cluster containing it; later
// clusters overwrite earlier ones.
func raiseHills(m *Map, t *Tile, hills []hillCluster, rng *rand.Rand) {
	wx, wz := m.ToWorld(t.X, t.Z)
	for _, h := range hills {
		dx, dz := wx-h.x, wz-h.z
		if math.Sqrt(dx*dx+dz*dz) < h.radius {
			t.Kind = Hill
			t.Height = 2 + rng.Float64()
			t.Resource = h.resource
		}
	}
}

// decorate draws once per tile to choose between a mine, forest, or scenery.
func decorate(m *Map, t *Tile, rng *rand.Rand) (city.Building, bool) {
	r := rng.Float64()

	if t.Kind == Hill {
		if r > 0.9 {
			return city.NewBuilding(mineFor(t.Resource), city.EraWildWest, t.X, t.Z, rng.Float64()*math.Pi, 0), true
		}
		return city.Building{}, false
	}

	switch {
	case r > 0.95:
		rot := rng.Float64() * math.Pi
		variant := rng.Intn(3)
		return city.NewBuilding(city.Forest, city.EraWildWest, t.X, t.Z, rot, variant), true
	case r > 0.90:
		t.Decoration = Rock
	case r > 0.80:
		t.Decoration = Bush
	case rng.Float64() < 0.30:
		t.Decoration = Grass
	}
	return city.Building{}, false
}

func mineFor(r Resource) city.BuildingType {
	switch r {
	case Gold:
		return city.GoldMine
	case Silver:
		return city.SilverMine
	default:
		return city.CoalMine
	}
}

// TerrainCounts returns a summary of terrain kind distribution.
func TerrainCounts(m *Map) map[Kind]int {
	counts := make(map[Kind]int)
	for _, t := range m.Tiles {
		counts[t.Kind]++
	}
	return counts
}
