// Package api provides the HTTP REST API and WebSocket server for Hearth Core.
//
// It exposes config entry lifecycle operations (reload, reauthenticate,
// refresh), entity reads and writes, and recent state history to user
// interfaces. The WebSocket hub pushes entity state changes to connected
// panels.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hearth-home/hearth-core/internal/area"
	"github.com/hearth-home/hearth-core/internal/entity"
	"github.com/hearth-home/hearth-core/internal/entry"
	"github.com/hearth-home/hearth-core/internal/history"
	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
	"github.com/hearth-home/hearth-core/internal/infrastructure/logging"
	"github.com/hearth-home/hearth-core/internal/logbook"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Manager *entry.Manager
	History *history.Recorder  // optional; nil disables history endpoints
	Areas   area.Repository    // optional; nil disables area endpoints
	Logbook logbook.Repository // optional; nil disables event recording
	Version string

	// Checks are backing-service probes (database, MQTT, InfluxDB) run by
	// the health endpoint, keyed by service name.
	Checks map[string]func(ctx context.Context) error
}

// Server is the HTTP API server for Hearth Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	manager *entry.Manager
	history *history.Recorder
	areas   area.Repository
	logbook logbook.Repository
	version string
	checks  map[string]func(ctx context.Context) error
	server  *http.Server
	hub     *Hub
	cancel  context.CancelFunc

	// watched maps entity IDs to broadcast unsubscribe functions.
	watchMu sync.Mutex
	watched map[string]func()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("entry manager is required")
	}

	return &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		manager: deps.Manager,
		history: deps.History,
		areas:   deps.Areas,
		logbook: deps.Logbook,
		version: deps.Version,
		checks:  deps.Checks,
		watched: make(map[string]func()),
	}, nil
}

// record appends an event to the logbook, if one is configured. Recording
// failures are logged, never surfaced: the triggering request already
// succeeded.
func (s *Server) record(ctx context.Context, ev *logbook.Event) {
	if s.logbook == nil {
		return
	}
	if err := s.logbook.Record(ctx, ev); err != nil {
		s.logger.Warn("logbook record failed", "type", ev.Type, "error", err)
	}
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.watchMu.Lock()
	for id, remove := range s.watched {
		remove()
		delete(s.watched, id)
	}
	s.watchMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// TrackEntities broadcasts the given entities' state changes to WebSocket
// clients subscribed to "entity.state_changed". Wired to the entry
// manager's load hook.
func (s *Server) TrackEntities(handles []entity.Handle) {
	for _, h := range handles {
		h := h
		remove := h.Subscribe(func() {
			if s.hub != nil {
				s.hub.Broadcast(channelEntityState, entityJSON(h))
			}
		})

		s.watchMu.Lock()
		if prev, ok := s.watched[h.ID()]; ok {
			prev()
		}
		s.watched[h.ID()] = remove
		s.watchMu.Unlock()
	}
}

// UntrackEntities stops broadcasting for the given entities. Wired to the
// entry manager's unload hook.
func (s *Server) UntrackEntities(handles []entity.Handle) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, h := range handles {
		if remove, ok := s.watched[h.ID()]; ok {
			remove()
			delete(s.watched, h.ID())
		}
	}
}
