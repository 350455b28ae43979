package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/terrain"
	"github.com/talgya/boomtown/internal/traffic"
)

type stubClient struct {
	mu      sync.Mutex
	calls   []city.EventRequest
	release chan struct{}
	event   city.Event
	err     error
}

func (c *stubClient) CityEvent(ctx context.Context, req city.EventRequest) (city.Event, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()
	if c.release != nil {
		<-c.release
	}
	return c.event, c.err
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// testMap is an 8×8 ground map with a water tile at the origin and a bush
// at (2,2).
func testMap() *terrain.Map {
	m := terrain.NewMap(8, 2)
	m.At(0, 0).Kind = terrain.Water
	m.At(0, 0).Height = 0.5
	m.At(2, 2).Decoration = terrain.Bush
	return m
}

func newTestSim(t *testing.T, cfg Config, client CityEventClient) (*Simulation, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Now()}
	s := NewSimulation(cfg, testMap(), nil, 1, client)
	s.Clock = clock.Now
	t.Cleanup(s.Wait)
	return s, clock
}

func TestNewSimulation_InitialState(t *testing.T) {
	s, _ := newTestSim(t, DefaultConfig(), nil)
	st := s.Snapshot()

	assert.Equal(t, 1850.0, st.Year)
	assert.Equal(t, city.EraWildWest, st.Era)
	assert.Equal(t, 2000.0, st.Money)
	assert.Equal(t, 20.0, st.Population)
	assert.Equal(t, WelcomeHeadline, st.News)
	assert.Nil(t, st.Mission)
	assert.False(t, st.Loading)
}

func TestPlaceBuilding_DeductsCost(t *testing.T) {
	s, _ := newTestSim(t, DefaultConfig(), nil)

	b, err := s.PlaceBuilding(city.Residential, 1, 1)
	require.NoError(t, err)

	st := s.Snapshot()
	assert.Equal(t, 1900.0, st.Money)
	require.Len(t, st.Buildings, 1)
	assert.Equal(t, b, st.Buildings[0])
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, city.EraWildWest, b.Era)
	assert.Contains(t, []float64{0, 1.5707963267948966}, b.Rotation)
	assert.GreaterOrEqual(t, b.Variant, 0)
	assert.Less(t, b.Variant, 5)
	assert.Equal(t, ConstructionHeadline, st.News)
}

func TestPlaceBuilding_BridgeOnGroundRejected(t *testing.T) {
	s, _ := newTestSim(t, DefaultConfig(), nil)
	before := s.Snapshot()

	_, err := s.PlaceBuilding(city.Bridge, 1, 1)
	require.ErrorIs(t, err, ErrInvalidTerrain)

	var pe *PlacementError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, city.Bridge, pe.Type)
	assert.Equal(t, terrain.Coord{X: 1, Z: 1}, pe.Tile)
	assert.Equal(t, before, s.Snapshot())
}

func TestPlaceBuilding_Rejections(t *testing.T) {
	cases := []struct {
		name string
		typ  city.BuildingType
		x, z int
		want error
	}{
		{"out of bounds", city.Residential, 4, 0, ErrOutOfBounds},
		{"out of bounds beats type", city.GoldMine, -5, 0, ErrOutOfBounds},
		{"mine", city.GoldMine, 1, 1, ErrNotPlaceable},
		{"demolish pseudo-type", city.Demolish, 1, 1, ErrNotPlaceable},
		{"house on water", city.Residential, 0, 0, ErrInvalidTerrain},
		{"road on water", city.Road, 0, 0, ErrInvalidTerrain},
		{"unaffordable", city.Mayor, 1, 2, ErrInsufficientFunds},
		{"occupied", city.Farm, 3, 3, ErrTileOccupied},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.StartMoney = 900
			s, _ := newTestSim(t, cfg, nil)
			_, err := s.PlaceBuilding(city.Residential, 3, 3)
			require.NoError(t, err)
			before := s.Snapshot()

			_, err = s.PlaceBuilding(c.typ, c.x, c.z)
			assert.ErrorIs(t, err, c.want)
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestPlaceBuilding_RoadsJoinGraph(t *testing.T) {
	s, _ := newTestSim(t, DefaultConfig(), nil)

	bridge, err := s.PlaceBuilding(city.Bridge, 0, 0)
	require.NoError(t, err)
	road, err := s.PlaceBuilding(city.Road, 1, 0)
	require.NoError(t, err)
	_, err = s.PlaceBuilding(city.Residential, 0, 1)
	require.NoError(t, err)

	g := s.Roads()
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, []string{road.ID}, g.Node(bridge.ID).Neighbors)
	assert.True(t, g.Node(bridge.ID).IsBridge())

	res, err := s.Demolish(1, 0)
	require.NoError(t, err)
	require.NotNil(t, res.Building)
	assert.Equal(t, road.ID, res.Building.ID)

	g = s.Roads()
	assert.False(t, g.Has(road.ID))
	assert.Empty(t, g.Node(bridge.ID).Neighbors)
}

func TestDemolish(t *testing.T) {
	s, _ := newTestSim(t, DefaultConfig(), nil)
	_, err := s.PlaceBuilding(city.Farm, 1, 1)
	require.NoError(t, err)

	res, err := s.Demolish(1, 1)
	require.NoError(t, err)
	assert.Equal(t, city.Farm, res.Building.Type)
	assert.Equal(t, 50.0, res.Cost)
	st := s.Snapshot()
	assert.Empty(t, st.Buildings)
	assert.Equal(t, 2000.0-150-50, st.Money)

	res, err = s.Demolish(2, 2)
	require.NoError(t, err)
	assert.Nil(t, res.Building)
	assert.Equal(t, terrain.Bush, res.Decoration)
	assert.Equal(t, terrain.NoDecoration, s.Terrain().At(2, 2).Decoration)
	assert.Equal(t, 2000.0-150-100, s.Snapshot().Money)

	before := s.Snapshot()
	res, err = s.Demolish(2, 2)
	require.NoError(t, err)
	assert.True(t, res.Noop())
	assert.Equal(t, before, s.Snapshot())

	_, err = s.Demolish(9, 9)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestDemolish_InsufficientFunds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartMoney = 40
	s, _ := newTestSim(t, cfg, nil)
	before := s.Snapshot()

	_, err := s.Demolish(2, 2)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, terrain.Bush, s.Terrain().At(2, 2).Decoration)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s, _ := newTestSim(t, DefaultConfig(), nil)
	_, err := s.PlaceBuilding(city.Residential, 1, 1)
	require.NoError(t, err)
	s.ApplyCityEvent(city.Event{Headline: "x", Mission: &city.Mission{Description: "grow"}})

	snap := s.Snapshot()
	snap.Buildings[0].Type = city.Mayor
	snap.Mission.Description = "changed"

	st := s.Snapshot()
	assert.Equal(t, city.Residential, st.Buildings[0].Type)
	assert.Equal(t, "grow", st.Mission.Description)
}

func TestTickEconomy_EraWaitsForNarrativeResponse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Economy.YearsPerTick = 0.5
	client := &stubClient{release: make(chan struct{})}
	s, _ := newTestSim(t, cfg, client)

	for s.Snapshot().Year < 1901 {
		s.TickEconomy(context.Background())
	}
	st := s.Snapshot()
	assert.Equal(t, city.EraWildWest, st.Era)
	assert.True(t, st.Loading)

	close(client.release)
	s.Wait()

	st = s.Snapshot()
	assert.Equal(t, city.EraIndustrial, st.Era)
	assert.False(t, st.Loading)
	assert.Equal(t, 1, client.callCount(), "loading flag suppresses further requests")
}

func TestTickEconomy_TriggerCadence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Economy.YearsPerTick = 0.25
	client := &stubClient{event: city.Event{Headline: "News!"}}
	s, _ := newTestSim(t, cfg, client)

	for i := 0; i < 19; i++ {
		s.TickEconomy(context.Background())
	}
	assert.Equal(t, 0, client.callCount())

	s.TickEconomy(context.Background())
	s.Wait()
	require.Equal(t, 1, client.callCount())
	assert.Equal(t, 1855.0, client.calls[0].Year)
	assert.Equal(t, 1855.0, s.Snapshot().LastTrigger)
	assert.Equal(t, "News!", s.Snapshot().News)
	assert.Nil(t, client.calls[0].MissionDescription)
}

func TestTickEconomy_MoneyMissionCompletesExactly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartMoney = 5190
	client := &stubClient{release: make(chan struct{})}
	s, clock := newTestSim(t, cfg, client)
	t.Cleanup(func() { close(client.release) })

	_, err := s.PlaceBuilding(city.Commercial, 1, 1)
	require.NoError(t, err)
	s.ApplyCityEvent(city.Event{
		Headline: "Earn it",
		Mission:  &city.Mission{Description: "Reach $5000", TargetType: city.TargetMoney, TargetValue: 5000},
	})

	clock.Advance(time.Second)
	s.TickEconomy(context.Background())
	st := s.Snapshot()
	assert.Equal(t, 4990.0, st.Money)
	assert.False(t, st.Mission.Completed)

	clock.Advance(2 * time.Second)
	s.TickEconomy(context.Background())
	st = s.Snapshot()
	assert.Equal(t, 5005.0, st.Money)
	require.NotNil(t, st.Mission)
	assert.True(t, st.Mission.Completed)
	assert.True(t, st.Loading, "completion triggers a narrative request")
}

func TestApplyCityEvent_StaleResponseAppliesToCurrentState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Economy.YearsPerTick = 5
	client := &stubClient{release: make(chan struct{}), event: city.Event{Headline: "Boom", MoneyBonus: 100, PopulationGrowth: 10}}
	s, _ := newTestSim(t, cfg, client)

	s.TickEconomy(context.Background())
	require.True(t, s.Snapshot().Loading)

	_, err := s.PlaceBuilding(city.Residential, 1, 1)
	require.NoError(t, err)
	before := s.Snapshot()

	close(client.release)
	s.Wait()

	after := s.Snapshot()
	assert.Equal(t, before.Money+100, after.Money)
	assert.Equal(t, before.Population+10, after.Population)
	assert.Equal(t, "Boom", after.News)
}

func TestTickEconomy_FailedRequestUsesFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Economy.YearsPerTick = 5
	client := &stubClient{release: make(chan struct{}), err: errors.New("service unavailable")}
	s, _ := newTestSim(t, cfg, client)

	s.TickEconomy(context.Background())
	before := s.Snapshot()

	close(client.release)
	s.Wait()

	after := s.Snapshot()
	assert.Equal(t, "Year 1855: the town grows slowly but surely.", after.News)
	assert.Equal(t, before.Money+city.FallbackMoney, after.Money)
	assert.Equal(t, before.Population+city.FallbackPopulation, after.Population)
	assert.Equal(t, before.Era, after.Era)
	assert.False(t, after.Loading)
}

func TestApplyCityEvent_MissionLifecycle(t *testing.T) {
	s, _ := newTestSim(t, DefaultConfig(), nil)
	mission := &city.Mission{Description: "Grow", TargetType: city.TargetPopulation, TargetValue: 20.01}

	s.ApplyCityEvent(city.Event{Headline: "a", Mission: mission})
	require.NotNil(t, s.Snapshot().Mission)

	s.ApplyCityEvent(city.Event{Headline: "b"})
	require.NotNil(t, s.Snapshot().Mission, "open mission is kept")

	s.TickEconomy(context.Background())
	s.TickEconomy(context.Background())
	s.Wait()
	assert.Nil(t, s.Snapshot().Mission, "completed mission is cleared by the next response")
}

func TestApplyCityEvent_Sanitises(t *testing.T) {
	s, _ := newTestSim(t, DefaultConfig(), nil)
	var changes []EraChange
	s.OnEraChange = func(c EraChange) { changes = append(changes, c) }

	s.ApplyCityEvent(city.Event{PopulationGrowth: -1000, MoneyBonus: 0})
	st := s.Snapshot()
	assert.Equal(t, 0.0, st.Population)
	assert.Equal(t, "Year 1850: the town grows slowly but surely.", st.News)

	s.ApplyCityEvent(city.Event{Headline: "Steam!", Era: city.EraIndustrial})
	assert.Equal(t, city.EraIndustrial, s.Snapshot().Era)
	s.ApplyCityEvent(city.Event{Headline: "Back?", Era: city.EraWildWest})
	assert.Equal(t, city.EraIndustrial, s.Snapshot().Era)

	require.Len(t, changes, 1)
	assert.Equal(t, EraChange{Year: 1850, From: city.EraWildWest, To: city.EraIndustrial}, changes[0])
}

func TestTickEconomy_AnnualReport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Economy.YearsPerTick = 0.3
	s, _ := newTestSim(t, cfg, nil)
	var reports []AnnualReport
	s.OnAnnualReport = func(r AnnualReport) { reports = append(reports, r) }

	for i := 0; i < 7; i++ {
		s.TickEconomy(context.Background())
	}
	require.Len(t, reports, 2)
	assert.Equal(t, 1851, reports[0].Year)
	assert.Equal(t, 1852, reports[1].Year)
	assert.Equal(t, 50.0, reports[0].Capacity)
}

func TestStepTraffic_ProducesPoses(t *testing.T) {
	s, _ := newTestSim(t, DefaultConfig(), nil)
	for x := 1; x <= 3; x++ {
		_, err := s.PlaceBuilding(city.Road, x, 1)
		require.NoError(t, err)
	}

	for i := 0; i < 10; i++ {
		s.StepTraffic(1.0 / 30)
	}
	frame := s.Traffic()
	assert.Equal(t, 10, frame.Vehicles)
	assert.Equal(t, 15, frame.Pedestrians)
	assert.Equal(t, 8, frame.Wildlife)
	assert.LessOrEqual(t, len(frame.Poses), 10+15+8)

	wildlife := 0
	for _, p := range frame.Poses {
		if p.Kind == traffic.Wildlife {
			wildlife++
		}
	}
	assert.Equal(t, 8, wildlife)
	assert.Greater(t, len(frame.Poses), 8, "road agents are on the network")
}
