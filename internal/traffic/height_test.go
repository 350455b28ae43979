package traffic

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/roads"
	"github.com/talgya/boomtown/internal/terrain"
)

func TestEffectiveHeight(t *testing.T) {
	m := terrain.NewMap(4, 2)
	m.At(0, 0).Kind = terrain.Water
	m.At(0, 0).Height = 0.5
	m.At(1, 0).Kind = terrain.Hill
	m.At(1, 0).Height = 2.5

	assert.Equal(t, 0.5, EffectiveHeight(m, 0, 2, false))
	assert.InDelta(t, 0.2, EffectiveHeight(m, 0, 0, true), 1e-9)
	assert.Equal(t, 0.0, EffectiveHeight(m, 0, 0, false))
	assert.Equal(t, 2.0, EffectiveHeight(m, 2, 0, false))
	assert.Equal(t, OffMapHeight, EffectiveHeight(m, 50, 50, false))
	assert.InDelta(t, BridgeDeck, EffectiveHeight(m, 50, 50, true), 1e-9)
}

func TestEdgeHeight_InterpolatesOntoBridge(t *testing.T) {
	m := terrain.NewMap(4, 2)
	m.At(1, 0).Kind = terrain.Water
	m.At(1, 0).Height = 0.5

	g := roads.Build([]city.Building{
		{ID: "land", Type: city.Road, GridX: 0, GridZ: 0},
		{ID: "deck", Type: city.Bridge, GridX: 1, GridZ: 0},
	}, 2)
	from, to := g.Node("land"), g.Node("deck")

	assert.InDelta(t, 0.5, EdgeHeight(m, from, to, 0), 1e-9)
	assert.InDelta(t, 0.35, EdgeHeight(m, from, to, 0.5), 1e-9)
	assert.InDelta(t, 0.2, EdgeHeight(m, from, to, 1), 1e-9)
}

func TestPoses_LaneOffsetAndHeading(t *testing.T) {
	m := terrain.NewMap(8, 2)
	g := roads.Build([]city.Building{
		{ID: "a", Type: city.Road, GridX: 0, GridZ: 0},
		{ID: "b", Type: city.Road, GridX: 1, GridZ: 0},
	}, 2)
	s := NewSimulator(Config{Vehicles: 1, Pedestrians: 1}, m.Extent(), rand.New(rand.NewSource(1)))
	v, p := s.Vehicles[0], s.Pedestrians[0]
	v.Current, v.Next, v.Progress, v.Lane = "a", "b", 0.5, 0.45
	p.Current, p.Next, p.Progress, p.Lane = "b", "a", 0.25, -SidewalkOffset

	poses := s.Poses(g, m, city.EraWildWest)
	require.Len(t, poses, 2)

	vp := poses[0]
	assert.Equal(t, Vehicle, vp.Kind)
	assert.InDelta(t, 1.0, vp.X, 1e-9)
	assert.InDelta(t, -0.45, vp.Z, 1e-9)
	assert.InDelta(t, 0.5+WagonOffset, vp.Y, 1e-9)
	assert.InDelta(t, math.Pi/2, vp.Heading, 1e-9)

	pp := poses[1]
	assert.Equal(t, Pedestrian, pp.Kind)
	assert.InDelta(t, 1.5, pp.X, 1e-9)
	assert.InDelta(t, -SidewalkOffset, pp.Z, 1e-9)
	assert.InDelta(t, 0.5+PedestrianOffset, pp.Y, 1e-9)

	modern := s.Poses(g, m, city.EraModern)
	assert.InDelta(t, 0.5+PavedRoadOffset, modern[0].Y, 1e-9)
}

func TestPoses_WildlifeSinksInWater(t *testing.T) {
	m := terrain.NewMap(8, 2)
	m.At(0, 0).Kind = terrain.Water
	m.At(0, 0).Height = 0.5
	s := NewSimulator(Config{Wildlife: 1}, m.Extent(), rand.New(rand.NewSource(1)))
	a := s.Wildlife[0]
	a.X, a.Z = 0.2, -0.3

	poses := s.Poses(roads.NewGraph(2), m, city.EraWildWest)
	require.Len(t, poses, 1)
	assert.InDelta(t, WaterSink, poses[0].Y, 1e-9)
	assert.NotEmpty(t, poses[0].Detail)
}
