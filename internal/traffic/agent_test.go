package traffic

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/terrain"
)

func TestPoses_JSONRoundTrip(t *testing.T) {
	g := roadGrid(3)
	m := terrain.NewMap(12, 2)
	s := NewSimulator(Config{Vehicles: 3, Pedestrians: 3, Wildlife: 2}, m.Extent(), rand.New(rand.NewSource(4)))
	for i := 0; i < 10; i++ {
		s.Step(g, m, 1.0/30)
	}

	poses := s.Poses(g, m, city.EraWildWest)
	require.NotEmpty(t, poses)
	b, err := json.Marshal(poses)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"WILDLIFE"`)

	var got []Pose
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, poses, got)
}

func TestAnimals_JSONRoundTrip(t *testing.T) {
	in := []Animal{{ID: 1, Species: Bison, X: 1}, {ID: 2, Species: Deer, Z: -2}}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"species":"DEER"`)

	var got []Animal
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, in, got)
}

func TestParseKindAndSpecies(t *testing.T) {
	for _, k := range []Kind{Vehicle, Pedestrian, Wildlife} {
		got, ok := ParseKind(k.String())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := ParseSpecies("WOLF")
	assert.False(t, ok)

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("TRAIN")))
}
