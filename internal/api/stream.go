package api

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/boomtown/internal/engine"
)

const (
	maxStreamConns = 8
	writeWait      = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type streamCounter struct {
	n atomic.Int32
}

// streamFrame is one push to the renderer.
type streamFrame struct {
	Status  statusView          `json:"status"`
	Traffic engine.TrafficFrame `json:"traffic"`
}

// handleStream upgrades to a WebSocket and pushes status and traffic frames
// until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.streams.n.Add(1) > maxStreamConns {
		s.streams.n.Add(-1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer s.streams.n.Add(-1)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The client never sends anything we act on; reading detects close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := s.StreamInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("stream client connected", "remote", r.RemoteAddr)
	defer slog.Info("stream client disconnected", "remote", r.RemoteAddr)

	for {
		frame := streamFrame{Status: s.status(), Traffic: s.Sim.Traffic()}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
