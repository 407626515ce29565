// Package server streams run telemetry to websocket clients and serves
// the latest run summary over HTTP, so a dashboard can follow a soak
// run without touching the output directory.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/run"
)

// Server fans telemetry out to connected clients. Slow clients drop
// events rather than stalling the run loop.
type Server struct {
	addr string
	log  *zap.SugaredLogger

	mu      sync.RWMutex
	clients map[*client]bool
	latest  *run.Result

	httpServer *http.Server
}

// New creates a server listening on addr once Start is called.
func New(addr string, log *zap.SugaredLogger) *Server {
	s := &Server{
		addr:    addr,
		log:     log,
		clients: make(map[*client]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown. Blocks; run it in a goroutine.
func (s *Server) Start() error {
	s.log.Infow("telemetry server listening", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "telemetry server")
	}
	return nil
}

// Shutdown closes client connections and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

// SetLatest caches the most recent run result for /api/summary.
func (s *Server) SetLatest(result *run.Result) {
	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()
}

// Broadcast sends an event to every connected client. Returns how many
// clients accepted it.
func (s *Server) Broadcast(event run.TelemetryEvent) int {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		select {
		case c.send <- event:
			sent++
		default:
			// Channel full, client is behind.
		}
	}
	return sent
}

// ClientCount reports connected websocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest == nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "no run recorded yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, summaryPayload(latest))
}

// summaryPayload flattens a run result to what the dashboard needs.
func summaryPayload(result *run.Result) map[string]interface{} {
	iterations := make([]map[string]interface{}, 0, len(result.Iterations))
	for _, iteration := range result.Iterations {
		iterations = append(iterations, map[string]interface{}{
			"iteration":      iteration.Index,
			"verdict":        iteration.Verification.Verdict,
			"bitrate":        iteration.Simulation.FinalBitrate,
			"fallback_steps": iteration.Simulation.FallbackSteps,
			"warnings":       iteration.Verification.Warnings,
		})
	}
	return map[string]interface{}{
		"run_id":     result.RunID,
		"verdict":    result.Verdict,
		"profile":    result.Profile.Name,
		"policy":     result.PolicyName,
		"started_at": result.StartedAt,
		"iterations": iterations,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c] = true
	count := len(s.clients)
	s.mu.Unlock()
	s.log.Debugw("telemetry client connected", "clients", count)
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.close()
	}
	count := len(s.clients)
	s.mu.Unlock()
	s.log.Debugw("telemetry client disconnected", "clients", count)
}
