// Package api provides the HTTP API for observing and building the town.
// GET endpoints are public; placement endpoints are rate limited; engine
// control requires a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/boomtown/internal/city"
	"github.com/talgya/boomtown/internal/economy"
	"github.com/talgya/boomtown/internal/engine"
	"github.com/talgya/boomtown/internal/persistence"
)

// Server serves the town over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine // economy engine, for speed control
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for admin endpoints. Empty = admin disabled.

	// StreamInterval is the push cadence of /api/v1/stream.
	StreamInterval time.Duration

	streams streamCounter
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	placeLimiter := NewRateLimiter(120, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/terrain", s.handleTerrain)
		r.Get("/buildings", s.handleBuildings)
		r.Get("/roads", s.handleRoads)
		r.Get("/traffic", s.handleTraffic)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/chronicle", s.handleChronicle)
		r.Get("/stats/history", s.handleStatsHistory)
		r.Get("/stream", s.handleStream)

		r.Post("/buildings", RateLimitMiddleware(placeLimiter, s.handlePlace))
		r.Delete("/tiles/{x}/{z}", RateLimitMiddleware(placeLimiter, s.handleDemolish))
		r.Post("/selection", s.handleSelect)

		r.Get("/speed", s.handleSpeed)
		r.Post("/speed", s.adminOnly(s.handleSpeed))
	})
	return r
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "chronicle", s.DB != nil)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	slog.Info("HTTP API stopped")
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no BOOMTOWN_API_ADMINKEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// statusView is the top-bar summary of the town.
type statusView struct {
	Year       float64       `json:"year"`
	Era        city.Era      `json:"era"`
	Money      float64       `json:"money"`
	Population float64       `json:"population"`
	Capacity   float64       `json:"capacity"`
	Buildings  int           `json:"buildings"`
	News       string        `json:"news"`
	Loading    bool          `json:"loading"`
	Mission    *city.Mission `json:"mission"`
	Selected   string        `json:"selected"`
	Speed      float64       `json:"speed"`
	Tick       uint64        `json:"tick"`
}

func (s *Server) status() statusView {
	st := s.Sim.Snapshot()
	v := statusView{
		Year:       st.Year,
		Era:        st.Era,
		Money:      st.Money,
		Population: st.Population,
		Capacity:   economy.Capacity(st.Buildings, st.Era),
		Buildings:  len(st.Buildings),
		News:       st.News,
		Loading:    st.Loading,
		Mission:    st.Mission,
		Selected:   st.Selected.String(),
	}
	if s.Eng != nil {
		v.Speed = s.Eng.Speed()
		v.Tick = s.Eng.Tick()
	}
	return v
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleTerrain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Terrain())
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Snapshot().Buildings)
}

func (s *Server) handleRoads(w http.ResponseWriter, r *http.Request) {
	g := s.Sim.Roads()
	writeJSON(w, http.StatusOK, map[string]any{
		"version": g.Version,
		"nodes":   g.Nodes(),
	})
}

func (s *Server) handleTraffic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Traffic())
}

type catalogEntry struct {
	Type        city.BuildingType `json:"type"`
	Cost        float64           `json:"cost"`
	Income      float64           `json:"income"`
	Capacity    float64           `json:"capacity"`
	Purchasable bool              `json:"purchasable"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	types := city.BuildingTypes()
	out := make([]catalogEntry, 0, len(types))
	for _, t := range types {
		stats := city.StatsFor(t)
		out = append(out, catalogEntry{
			Type:        t,
			Cost:        stats.Cost,
			Income:      stats.Income,
			Capacity:    stats.Capacity,
			Purchasable: t.Purchasable(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChronicle(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit := queryLimit(r, 20)

	headlines, err := s.DB.RecentHeadlines(limit)
	if err != nil {
		slog.Error("chronicle query failed", "error", err)
		http.Error(w, "chronicle query failed", http.StatusInternalServerError)
		return
	}
	eras, err := s.DB.EraChanges()
	if err != nil {
		slog.Error("era change query failed", "error", err)
		http.Error(w, "chronicle query failed", http.StatusInternalServerError)
		return
	}
	if headlines == nil {
		headlines = []engine.Headline{}
	}
	if eras == nil {
		eras = []engine.EraChange{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playthrough": s.DB.Playthrough(),
		"headlines":   headlines,
		"era_changes": eras,
	})
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	rows, err := s.DB.StatsHistory(queryLimit(r, 30))
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		// Return empty array instead of error; the table may not have data yet.
		writeJSON(w, http.StatusOK, []engine.AnnualReport{})
		return
	}
	if rows == nil {
		rows = []engine.AnnualReport{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type placeRequest struct {
	Type city.BuildingType `json:"type"`
	X    int               `json:"x"`
	Z    int               `json:"z"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	b, err := s.Sim.PlaceBuilding(req.Type, req.X, req.Z)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleDemolish(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	z, errZ := strconv.Atoi(chi.URLParam(r, "z"))
	if errX != nil || errZ != nil {
		http.Error(w, "tile coordinates must be integers", http.StatusBadRequest)
		return
	}

	res, err := s.Sim.Demolish(x, z)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type city.BuildingType `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.Sim.Select(req.Type)
	writeJSON(w, http.StatusOK, map[string]city.BuildingType{"selected": req.Type})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, http.StatusOK, map[string]float64{"speed": s.Eng.Speed()})
}

// writeError maps placement rejections to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, engine.ErrTileOccupied):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, engine.ErrInvalidTerrain),
		errors.Is(err, engine.ErrNotPlaceable):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryLimit(r *http.Request, def int) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			return v
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
