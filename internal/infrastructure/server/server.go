package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/termplex/internal/api/http"
	"github.com/GriffinCanCode/termplex/internal/api/middleware"
	"github.com/GriffinCanCode/termplex/internal/api/ws"
	"github.com/GriffinCanCode/termplex/internal/focus"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/config"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termplex/internal/mux"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/session"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
)

const shutdownTimeout = 10 * time.Second

// Option customizes a Server
type Option func(*options)

type options struct {
	logger  *logging.Logger
	spawner session.Spawner
}

// WithLogger replaces the logger built from the logging section
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSpawner replaces the PTY spawner
func WithSpawner(s session.Spawner) Option {
	return func(o *options) { o.spawner = s }
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	sessions *session.Manager
	routing  *routing.Router
	engine   *mux.Engine
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics

	mu         sync.Mutex
	httpServer *http.Server
	cancel     context.CancelFunc
	routed     chan struct{}
	closeOnce  sync.Once
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.ConfigFor(cfg.Logging.Level, cfg.Logging.Development))
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
	}

	logger.Info("Initializing termplex",
		zap.String("addr", cfg.Server.Addr),
		zap.String("shell", cfg.Shell.Path),
	)

	// Initialize metrics first (needed by other components)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	registry := id.NewRegistry()
	sessions := session.NewManager(session.Options{
		Shell:    cfg.Shell,
		Spawn:    cfg.Spawn,
		Spawner:  o.spawner,
		Registry: registry,
		Logger:   logger,
		Metrics:  metrics,
	})
	router := routing.NewRouter(sessions, logger, metrics)

	view := ws.NewViewState()
	engine := mux.New(mux.Options{
		Sessions:    sessions,
		Router:      router,
		Registry:    registry,
		Geometry:    view,
		Cells:       view,
		Navigator:   focus.Navigator{DeadZone: cfg.Focus.DeadZone, CrossWeight: cfg.Focus.CrossWeight},
		MinPaneSize: cfg.Layout.MinPaneSize,
		ExitGrace:   cfg.Shell.ExitGrace.Duration,
		Logger:      logger,
		Metrics:     metrics,
	})
	engine.Subscribe(view.Observe)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(monitoring.Middleware(metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	limits := middleware.RateLimitFrom(cfg.RateLimit)
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", limits.RequestsPerSecond),
			zap.Int("burst", limits.Burst),
		)
		r.Use(middleware.RateLimit(limits))
	}

	handlers := httpapi.NewHandlers(engine, router, sessions, metrics)
	handlers.Register(r)

	wsHandler := ws.NewHandler(engine, router, view, limits, logger, metrics)
	r.GET("/ws", wsHandler.HandleConnection)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   r,
		sessions: sessions,
		routing:  router,
		engine:   engine,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler returns the HTTP handler serving every endpoint
func (s *Server) Handler() http.Handler {
	return s.router
}

// Engine exposes the multiplexer for embedding callers
func (s *Server) Engine() *mux.Engine {
	return s.engine
}

// Start begins dispatching session events. Run calls it; tests that serve
// Handler themselves call it directly.
func (s *Server) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	routed := make(chan struct{})

	s.mu.Lock()
	s.cancel, s.routed = cancel, routed
	s.mu.Unlock()

	go func() {
		defer close(routed)
		if err := s.routing.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("Event dispatch stopped", zap.Error(err))
		}
	}()
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until it is closed
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Start(ctx)
	hs := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = hs
	s.mu.Unlock()

	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.logger.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.mu.Lock()
		hs, stop, routed := s.httpServer, s.cancel, s.routed
		s.mu.Unlock()

		if hs != nil {
			if err := hs.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop HTTP server: %w", err))
			}
		}

		s.engine.Shutdown()
		if err := s.sessions.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if stop != nil {
			stop()
			<-routed
		}
		s.logger.Info("Server stopped")

		// Sync logger before exit
		_ = s.logger.Sync()
	})
	return errors.Join(errs...)
}
