package engine

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/economy"
	"github.com/talgya/boomtown/internal/progress"
	"github.com/talgya/boomtown/internal/roads"
	"github.com/talgya/boomtown/internal/terrain"
	"github.com/talgya/boomtown/internal/traffic"
)

// Headlines shown before and after the first construction.
const (
	WelcomeHeadline      = "Welcome to the Wild West! Start building your town."
	ConstructionHeadline = "Construction has begun!"
)

// CityEventClient asks the narrative service for the next city event.
// Implementations return an error on any failure; the simulation then
// substitutes city.FallbackEvent.
type CityEventClient interface {
	CityEvent(ctx context.Context, req city.EventRequest) (city.Event, error)
}

// Config holds starting values and cadences for a playthrough.
type Config struct {
	StartYear        float64
	StartMoney       float64
	StartPopulation  float64
	NarrativeEvery   float64 // simulated years between narrative requests
	NarrativeTimeout time.Duration
	Economy          economy.Config
	Traffic          traffic.Config
}

// DefaultConfig returns the standard playthrough settings.
func DefaultConfig() Config {
	return Config{
		StartYear:        1850,
		StartMoney:       2000,
		StartPopulation:  20,
		NarrativeEvery:   5,
		NarrativeTimeout: 30 * time.Second,
		Economy:          economy.DefaultConfig(),
		Traffic:          traffic.DefaultConfig(),
	}
}

// GameState is the aggregate root of a playthrough.
type GameState struct {
	Year        float64           `json:"year"`
	Era         city.Era          `json:"era"`
	Money       float64           `json:"money"`
	Population  float64           `json:"population"`
	Buildings   []city.Building   `json:"buildings"`
	Selected    city.BuildingType `json:"selected"`
	News        string            `json:"news"`
	Loading     bool              `json:"loading"`
	Mission     *city.Mission     `json:"mission"`
	LastTrigger float64           `json:"last_trigger"`
	LastIncome  time.Time         `json:"-"`
}

func (g GameState) clone() GameState {
	g.Buildings = append([]city.Building(nil), g.Buildings...)
	if g.Mission != nil {
		m := *g.Mission
		g.Mission = &m
	}
	return g
}

// Headline is a news item shown to the player.
type Headline struct {
	Year     float64  `json:"year"`
	Era      city.Era `json:"era"`
	Text     string   `json:"text"`
	Fallback bool     `json:"fallback"`
}

// EraChange records an era transition.
type EraChange struct {
	Year float64  `json:"year"`
	From city.Era `json:"from"`
	To   city.Era `json:"to"`
}

// Simulation owns the game state. Every exported method is one atomic
// transition; observers run after the state lock is released.
type Simulation struct {
	// Observers, populated during setup.
	OnNews         func(Headline)
	OnEraChange    func(EraChange)
	OnAnnualReport func(AnnualReport)

	// Clock supplies wall time for income collection.
	Clock func() time.Time

	mu      sync.Mutex
	state   GameState
	terrain *terrain.Map
	graph   *roads.Graph
	traffic *traffic.Simulator
	rng     *rand.Rand

	cfg     Config
	trigger progress.Trigger
	client  CityEventClient
	pending sync.WaitGroup
}

// NewSimulation creates a playthrough from a generated map and its
// pre-placed buildings. A nil client disables the narrative service; every
// request then resolves to the fallback event.
func NewSimulation(cfg Config, m *terrain.Map, buildings []city.Building, seed int64, client CityEventClient) *Simulation {
	if client == nil {
		client = fallbackClient{}
	}
	s := &Simulation{
		Clock:   time.Now,
		terrain: m,
		graph:   roads.Build(buildings, m.TileSize),
		traffic: traffic.NewSimulator(cfg.Traffic, m.Extent(), rand.New(rand.NewSource(seed+1))),
		rng:     rand.New(rand.NewSource(seed)),
		cfg:     cfg,
		trigger: progress.Trigger{Every: cfg.NarrativeEvery},
		client:  client,
	}
	s.state = GameState{
		Year:        cfg.StartYear,
		Era:         progress.ThresholdEra(cfg.StartYear),
		Money:       cfg.StartMoney,
		Population:  cfg.StartPopulation,
		Buildings:   append([]city.Building(nil), buildings...),
		News:        WelcomeHeadline,
		LastTrigger: cfg.StartYear,
		LastIncome:  s.Clock(),
	}
	return s
}

// Snapshot returns a deep copy of the game state.
func (s *Simulation) Snapshot() GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Terrain returns a copy of the map.
func (s *Simulation) Terrain() *terrain.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terrain.Clone()
}

// Roads returns a copy of the road graph.
func (s *Simulation) Roads() *roads.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Clone()
}

// TrafficFrame is the renderer's view of every agent.
type TrafficFrame struct {
	Poses       []traffic.Pose `json:"poses"`
	Vehicles    int            `json:"vehicles"`
	Pedestrians int            `json:"pedestrians"`
	Wildlife    int            `json:"wildlife"`
}

// Traffic returns the current agent poses.
func (s *Simulation) Traffic() TrafficFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TrafficFrame{
		Poses:       s.traffic.Poses(s.graph, s.terrain, s.state.Era),
		Vehicles:    len(s.traffic.Vehicles),
		Pedestrians: len(s.traffic.Pedestrians),
		Wildlife:    len(s.traffic.Wildlife),
	}
}

// Select records the building type the player has chosen to place.
func (s *Simulation) Select(t city.BuildingType) {
	s.mu.Lock()
	s.state.Selected = t
	s.mu.Unlock()
}

// StepTraffic advances every traffic agent by dt seconds.
func (s *Simulation) StepTraffic(dt float64) {
	s.mu.Lock()
	s.traffic.Step(s.graph, s.terrain, dt)
	s.mu.Unlock()
}

// TickEconomy runs one economy tick: year, income, population, mission
// check, and the narrative trigger. A triggered request runs in the
// background; the tick never waits for it.
func (s *Simulation) TickEconomy(ctx context.Context) {
	s.mu.Lock()
	st := &s.state
	prevYear := st.Year

	ledger, r := economy.Tick(economy.Ledger{
		Year:       st.Year,
		Money:      st.Money,
		Population: st.Population,
		LastIncome: st.LastIncome,
	}, st.Buildings, st.Era, s.cfg.Economy, s.Clock())
	st.Year, st.Money, st.Population, st.LastIncome = ledger.Year, ledger.Money, ledger.Population, ledger.LastIncome

	completed := progress.Evaluate(st.Mission, st.Population, st.Money, len(st.Buildings))
	var mission string
	if completed {
		mission = st.Mission.Description
	}

	var report *AnnualReport
	if math.Floor(st.Year) > math.Floor(prevYear) {
		rep := s.annualReport(r)
		report = &rep
	}

	var req *city.EventRequest
	if s.trigger.Due(st.Year, st.LastTrigger, st.Mission, st.Loading) {
		st.Loading = true
		st.LastTrigger = st.Year
		next := s.eventRequest()
		req = &next
	}
	s.mu.Unlock()

	if completed {
		slog.Info("mission completed", "mission", mission, "year", int(ledger.Year))
	}
	if report != nil {
		s.publishReport(*report)
	}
	if req != nil {
		slog.Info("narrative request", "year", int(req.Year), "era", req.Era, "population", int(req.Population))
		s.pending.Add(1)
		go s.requestEvent(ctx, *req)
	}
}

// eventRequest summarises the state for the narrative service. Callers hold mu.
func (s *Simulation) eventRequest() city.EventRequest {
	st := &s.state
	req := city.EventRequest{
		Year:          st.Year,
		Era:           st.Era,
		Population:    st.Population,
		BuildingCount: len(st.Buildings),
	}
	if st.Mission != nil {
		desc, done := st.Mission.Description, st.Mission.Completed
		req.MissionDescription = &desc
		req.MissionCompleted = &done
	}
	return req
}

func (s *Simulation) requestEvent(ctx context.Context, req city.EventRequest) {
	defer s.pending.Done()

	if s.cfg.NarrativeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.NarrativeTimeout)
		defer cancel()
	}
	ev, err := s.client.CityEvent(ctx, req)
	if err != nil {
		slog.Warn("narrative request failed, using fallback", "year", int(req.Year), "error", err)
		ev = city.FallbackEvent(req)
	}
	s.ApplyCityEvent(ev)
}

// Wait blocks until every in-flight narrative request has been applied.
func (s *Simulation) Wait() {
	s.pending.Wait()
}

// ApplyCityEvent folds a narrative response into the current state. Deltas
// apply to the state as it is now, not as it was when the request was made.
func (s *Simulation) ApplyCityEvent(ev city.Event) {
	s.mu.Lock()
	st := &s.state
	st.Loading = false
	st.Population = max(0, st.Population+finite(ev.PopulationGrowth))
	st.Money += finite(ev.MoneyBonus)

	from := st.Era
	st.Era = progress.ResolveEra(from, ev.Era, st.Year)
	st.Mission = progress.ResolveMission(st.Mission, ev.Mission)

	if ev.Headline == "" {
		ev.Headline = city.FallbackHeadline(st.Year)
	}
	st.News = ev.Headline
	news := Headline{Year: st.Year, Era: st.Era, Text: ev.Headline, Fallback: ev.Fallback}
	change := EraChange{Year: st.Year, From: from, To: st.Era}
	s.mu.Unlock()

	slog.Info("city event", "year", int(news.Year), "headline", news.Text, "fallback", news.Fallback)
	if s.OnNews != nil {
		s.OnNews(news)
	}
	if change.To != change.From {
		slog.Info("era change", "year", int(change.Year), "from", change.From, "to", change.To)
		if s.OnEraChange != nil {
			s.OnEraChange(change)
		}
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

type fallbackClient struct{}

func (fallbackClient) CityEvent(_ context.Context, req city.EventRequest) (city.Event, error) {
	return city.FallbackEvent(req), nil
}
