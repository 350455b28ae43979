package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/boomtown/internal/city"
)

func TestThresholdEra(t *testing.T) {
	cases := []struct {
		year float64
		want city.Era
	}{
		{1850, city.EraWildWest},
		{1899.99, city.EraWildWest},
		{1900, city.EraIndustrial},
		{1949, city.EraIndustrial},
		{1950, city.EraModern},
		{2019.5, city.EraModern},
		{2020, city.EraFuture},
		{2500, city.EraFuture},
		{1700, city.EraWildWest},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ThresholdEra(c.year), "year %v", c.year)
	}
}

func TestResolveEra_NeverRegresses(t *testing.T) {
	assert.Equal(t, city.EraModern, ResolveEra(city.EraModern, city.EraWildWest, 1860))
	assert.Equal(t, city.EraIndustrial, ResolveEra(city.EraWildWest, city.EraIndustrial, 1860))
	assert.Equal(t, city.EraModern, ResolveEra(city.EraWildWest, city.EraIndustrial, 1955))
	assert.Equal(t, city.EraFuture, ResolveEra(city.EraWildWest, city.EraFuture, 1860))
	assert.Equal(t, city.EraWildWest, ResolveEra(city.EraWildWest, city.Era(9), 1860))

	for _, cur := range city.Eras {
		for _, hint := range city.Eras {
			for year := 1850.0; year < 2100; year += 7 {
				assert.GreaterOrEqual(t, ResolveEra(cur, hint, year), cur)
			}
		}
	}
}

func TestEvaluate_CompletionIsSticky(t *testing.T) {
	m := &city.Mission{TargetType: city.TargetMoney, TargetValue: 5000}

	assert.False(t, Evaluate(m, 0, 4999.9, 0))
	assert.False(t, m.Completed)
	assert.True(t, Evaluate(m, 0, 5000, 0))
	assert.True(t, m.Completed)
	assert.False(t, Evaluate(m, 0, 10, 0), "already completed")
	assert.True(t, m.Completed)

	assert.False(t, Evaluate(nil, 1, 1, 1))
}

func TestEvaluate_TargetTypes(t *testing.T) {
	pop := &city.Mission{TargetType: city.TargetPopulation, TargetValue: 100}
	assert.False(t, Evaluate(pop, 99, 1e9, 1000))
	assert.True(t, Evaluate(pop, 100, 0, 0))

	count := &city.Mission{TargetType: city.TargetBuildingCount, TargetValue: 3}
	assert.False(t, Evaluate(count, 1e6, 1e6, 2))
	assert.True(t, Evaluate(count, 0, 0, 3))
}

func TestResolveMission(t *testing.T) {
	open := &city.Mission{Description: "grow", TargetType: city.TargetPopulation, TargetValue: 50}
	done := &city.Mission{Description: "earn", TargetType: city.TargetMoney, TargetValue: 10, Completed: true}
	incoming := &city.Mission{Description: "build", TargetType: city.TargetBuildingCount, TargetValue: 5, Completed: true}

	got := ResolveMission(done, incoming)
	require.NotNil(t, got)
	assert.Equal(t, "build", got.Description)
	assert.False(t, got.Completed)
	assert.True(t, incoming.Completed, "incoming mission must not be mutated")

	assert.Nil(t, ResolveMission(done, nil))
	assert.Same(t, open, ResolveMission(open, nil))
	assert.Nil(t, ResolveMission(nil, nil))
}

func TestTrigger_Due(t *testing.T) {
	tr := Trigger{Every: 5}

	assert.False(t, tr.Due(1854.9, 1850, nil, false))
	assert.True(t, tr.Due(1855, 1850, nil, false))
	assert.False(t, tr.Due(1855, 1850, nil, true), "request already in flight")

	done := &city.Mission{Completed: true}
	assert.True(t, tr.Due(1851, 1850, done, false))
	assert.False(t, tr.Due(1851, 1850, done, true))
	assert.False(t, tr.Due(1851, 1850, &city.Mission{}, false))
}
