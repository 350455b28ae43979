package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/engine"
	"github.com/talgya/boomtown/internal/terrain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "chronicle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.BeginPlaythrough(42)
	require.NoError(t, err)
	return db
}

func TestHeadlines_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveHeadline(engine.Headline{Year: 1855, Era: city.EraWildWest, Text: "Saloon opens"}))
	require.NoError(t, db.SaveHeadline(engine.Headline{Year: 1860.5, Era: city.EraWildWest, Text: "Quiet year", Fallback: true}))
	require.NoError(t, db.SaveHeadline(engine.Headline{Year: 1901, Era: city.EraIndustrial, Text: "Railway arrives"}))

	got, err := db.RecentHeadlines(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, engine.Headline{Year: 1901, Era: city.EraIndustrial, Text: "Railway arrives"}, got[0])
	assert.Equal(t, engine.Headline{Year: 1860.5, Era: city.EraWildWest, Text: "Quiet year", Fallback: true}, got[1])
}

func TestEraChanges(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveEraChange(engine.EraChange{Year: 1900.1, From: city.EraWildWest, To: city.EraIndustrial}))
	require.NoError(t, db.SaveEraChange(engine.EraChange{Year: 1950, From: city.EraIndustrial, To: city.EraModern}))

	got, err := db.EraChanges()
	require.NoError(t, err)
	assert.Equal(t, []engine.EraChange{
		{Year: 1900.1, From: city.EraWildWest, To: city.EraIndustrial},
		{Year: 1950, From: city.EraIndustrial, To: city.EraModern},
	}, got)
}

func TestStatsHistory_LatestYearsInOrder(t *testing.T) {
	db := openTestDB(t)

	for year := 1851; year <= 1855; year++ {
		require.NoError(t, db.SaveAnnualReport(engine.AnnualReport{
			Year: year, Era: city.EraWildWest, Money: float64(year), Population: 20, Capacity: 50,
		}))
	}
	require.NoError(t, db.SaveAnnualReport(engine.AnnualReport{Year: 1855, Era: city.EraWildWest, Money: 1, Mission: "Grow"}))

	got, err := db.StatsHistory(3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1853, 1854, 1855}, []int{got[0].Year, got[1].Year, got[2].Year})
	assert.Equal(t, 1.0, got[2].Money, "same year replaces the earlier row")
	assert.Equal(t, "Grow", got[2].Mission)
}

func TestPlaythroughsAreIsolated(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveHeadline(engine.Headline{Year: 1855, Text: "first run"}))
	first := db.Playthrough()

	second, err := db.BeginPlaythrough(7)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := db.RecentHeadlines(10)
	require.NoError(t, err)
	assert.Empty(t, got)

	last, err := db.GetMeta("last_playthrough")
	require.NoError(t, err)
	assert.Equal(t, second, last)
}

func TestAttach_RecordsSimulationEvents(t *testing.T) {
	db := openTestDB(t)

	var seen []string
	sim := engine.NewSimulation(engine.DefaultConfig(), terrain.NewMap(8, 2), nil, 1, nil)
	sim.OnNews = func(h engine.Headline) { seen = append(seen, h.Text) }
	db.Attach(sim)

	sim.ApplyCityEvent(city.Event{Headline: "Steam engines!", Era: city.EraIndustrial})

	assert.Equal(t, []string{"Steam engines!"}, seen, "existing observer still runs")

	headlines, err := db.RecentHeadlines(5)
	require.NoError(t, err)
	require.Len(t, headlines, 1)
	assert.Equal(t, "Steam engines!", headlines[0].Text)
	assert.Equal(t, city.EraIndustrial, headlines[0].Era)

	changes, err := db.EraChanges()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, city.EraIndustrial, changes[0].To)
}
