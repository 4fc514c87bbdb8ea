package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/DonutsDelivery/auto-brightness/internal/calibration"
	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/config"
	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/logging"
	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/scheduler"
	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Monitors is the monitor registry as seen by the API.
type Monitors interface {
	Snapshot() *monitor.Snapshot
	Detect(ctx context.Context) *monitor.Snapshot
	Get(id string) (monitor.Record, error)
	GetBrightness(ctx context.Context, id string) (int, error)
	SetBrightness(ctx context.Context, id string, percent int) error
	GetVCP(ctx context.Context, id string, feature vcp.Feature) (int, error)
	SetVCP(ctx context.Context, id string, feature vcp.Feature, value int) error
	Capabilities(ctx context.Context, id string) (monitor.Capabilities, error)
	ExportProfile(ctx context.Context, id, name string) (monitor.Profile, error)
	ApplyProfile(ctx context.Context, id string, p monitor.Profile) error
}

// Schedule is the auto-brightness scheduler as seen by the API.
type Schedule interface {
	Status() scheduler.Status
	Settings() scheduler.Settings
	Configure(settings scheduler.Settings) error
	Tick(ctx context.Context) scheduler.Result
	Detect(ctx context.Context) *monitor.Snapshot
}

// ConnectionChecker reports the state of an outbound connection.
type ConnectionChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Monitors Monitors

	// Optional.
	Schedule Schedule
	Store    calibration.Repository
	MQTT     ConnectionChecker
	InfluxDB ConnectionChecker
	DB       DBStatser
	Hub      *Hub // If set, the server uses this hub instead of creating its own
	Version  string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	monitors  Monitors
	schedule  Schedule
	store     calibration.Repository
	mqtt      ConnectionChecker
	influx    ConnectionChecker
	db        DBStatser
	version   string
	startTime time.Time

	server      *http.Server
	listener    net.Listener
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Monitors == nil {
		return nil, fmt.Errorf("monitor registry is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		monitors:  deps.Monitors,
		schedule:  deps.Schedule,
		store:     deps.Store,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
	}

	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	return s, nil
}

// Hub returns the server's WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
// The listener is bound before Start returns, so a port conflict is
// reported here.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	read, write, idle := s.cfg.Timeouts.Durations()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		s.logger.Info("API server listening", "address", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server. It waits up to 10 seconds for
// in-flight requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

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
