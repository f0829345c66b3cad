// Package server wires the navigator together: dispatcher, WebSocket hub,
// HTTP surface, middleware, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/verdantlabs/sprout/navigator/internal/api/handlers"
	"github.com/verdantlabs/sprout/navigator/internal/api/middleware"
	"github.com/verdantlabs/sprout/navigator/internal/api/ws"
	"github.com/verdantlabs/sprout/navigator/internal/domain/content"
	"github.com/verdantlabs/sprout/navigator/internal/domain/coordinator"
	"github.com/verdantlabs/sprout/navigator/internal/domain/dispatch"
	"github.com/verdantlabs/sprout/navigator/internal/domain/flows"
	"github.com/verdantlabs/sprout/navigator/internal/domain/routes"
	"github.com/verdantlabs/sprout/navigator/internal/domain/session"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/config"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/logging"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/monitoring"
)

// Server is the assembled navigator process.
type Server struct {
	cfg    *config.Config
	logger *logging.Logger

	disp *dispatch.Dispatcher
	hub  *ws.Hub
	http *http.Server

	stopDisp context.CancelFunc
	dispDone chan struct{}
}

// New assembles the navigator from its configuration.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}

	table, err := routes.LoadDir(cfg.Routes.ManifestDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load route manifests: %w", err)
	}

	metrics := monitoring.NewMetrics()

	hub := ws.NewHub(logger.Named("ws"), metrics)
	env := coordinator.NewEnv(hub, coordinator.NewActive(), logger.Named("tree")).
		WithMetrics(metrics)
	disp := dispatch.New(flows.NewSet(table), env, logger.Named("dispatch"))
	hub.Bind(disp)

	sessions := session.NewManager(cfg.Session.Dir, disp, logger.Named("session"))
	cards := content.NewClient(content.Config{
		BaseURL:    cfg.Content.BaseURL,
		Timeout:    cfg.Content.Timeout,
		RetryMax:   cfg.Content.RetryMax,
		RatePerSec: cfg.Content.RatePerSec,
		Burst:      cfg.Content.Burst,
		CacheTTL:   cfg.Content.CacheTTL,
	}, logger.Named("content"))

	if cfg.Logging.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	engine.Use(monitoring.Middleware(metrics))
	if cfg.Rate.Enabled {
		engine.Use(middleware.NewRateLimiter(cfg.Rate.PerSec, cfg.Rate.Burst).Middleware())
	}

	handlers.New(disp, sessions, cards, table, metrics, logger.Named("http")).Register(engine)
	engine.GET("/ws", hub.Handle)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		cfg:    cfg,
		logger: logger,
		disp:   disp,
		hub:    hub,
		http: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		dispDone: make(chan struct{}),
	}, nil
}

// Run starts the run loop and serves HTTP until Shutdown.
func (s *Server) Run() error {
	dispCtx, cancel := context.WithCancel(context.Background())
	s.stopDisp = cancel
	go func() {
		defer close(s.dispDone)
		s.disp.Run(dispCtx)
	}()

	s.logger.Info("navigator listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		return err
	}
	return nil
}

// Shutdown drains HTTP, then stops the run loop.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	if s.stopDisp != nil {
		s.stopDisp()
		select {
		case <-s.dispDone:
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
		}
	}

	s.logger.Info("navigator stopped")
	return err
}

// Dispatcher exposes the dispatcher, for embedding and tests.
func (s *Server) Dispatcher() *dispatch.Dispatcher { return s.disp }
