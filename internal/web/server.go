// Package web serves the monitor's HTTP API: realtime readings, location
// submissions, stored reading queries, health, and the offline map tiles.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/nitk/air-monitor/internal/fusion"
	"github.com/nitk/air-monitor/internal/store"
	"github.com/nitk/air-monitor/internal/tiles"
)

// Engine is the fusion surface the handlers need. *fusion.Engine
// satisfies it.
type Engine interface {
	Latest() (fusion.Reading, bool)
	Environment() fusion.Environment
	Mode() string
	State() fusion.CycleState
	Summarize(points []fusion.Point) fusion.Reading
}

// Server serves the API over HTTP.
type Server struct {
	httpServer *http.Server
	engine     Engine
	store      *store.Store
	bounds     tiles.Bounds
	tilesDir   string
	startTime  time.Time
}

// New creates a Server backed by the given engine and store.
func New(addr string, engine Engine, st *store.Store, bounds tiles.Bounds, tilesDir string) *Server {
	s := &Server{
		engine:    engine,
		store:     st,
		bounds:    bounds,
		tilesDir:  tilesDir,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/realtime", s.handleRealtime)
	mux.HandleFunc("POST /api/collect", s.handleCollect)
	mux.HandleFunc("GET /api/readings", s.handleReadings)
	mux.HandleFunc("GET /api/readings/{id}/points", s.handlePoints)
	mux.HandleFunc("DELETE /api/readings/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/map-status", s.handleMapStatus)
	mux.HandleFunc("GET /tiles/{z}/{x}/{y}", s.handleTile)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
