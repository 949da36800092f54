// Package server assembles the job service: configuration, logging, metrics,
// tracing, the resilient peer client, caches and the orchestrator behind a
// gin router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/TalentSphere/backend/internal/api/http"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/api/middleware"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/domain/jobs"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/cache"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/TalentSphere/backend/internal/peer"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Server wraps the HTTP server and dependencies
type Server struct {
	router       *gin.Engine
	http         *http.Server
	orchestrator *jobs.Orchestrator
	recorder     *tracing.Recorder
	breakers     *resilience.Breakers
	logger       *logging.Logger
	config       *config.Config
	metrics      *monitoring.Metrics
	registry     *prometheus.Registry

	stopJanitors context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("Initializing job service",
		zap.String("port", cfg.Server.Port),
		zap.Int("breaker_threshold", cfg.Resilience.BreakerThreshold),
		zap.Int("retry_max", cfg.Resilience.RetryMax),
	)

	var topo *config.Topology
	if path := cfg.Peers.TopologyFile; path != "" {
		topo, err = config.LoadTopology(path)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded peer topology", zap.String("path", path), zap.Int("peers", len(topo.Peers)))
	}
	peers := cfg.ResolvePeers(topo)

	// Metrics first; the other components report into it.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	spans := tracing.NewRingSink(cfg.Tracing.RingSize)
	sinks := []tracing.Sink{spans, tracing.NewLogSink(logger.Named("spans"))}
	if cfg.Tracing.OTel {
		sinks = append(sinks, tracing.NewOTelSink(otel.GetTracerProvider()))
	}
	recorder := tracing.NewRecorder(logger.Named("tracing"), tracing.Options{
		Service:    logCfg.Service,
		Enabled:    cfg.Tracing.Enabled,
		BufferSize: cfg.Tracing.BufferSize,
		MaxLeaked:  cfg.Tracing.MaxLeaked,
		Sinks:      sinks,
	})

	breakers := newBreakers(cfg, peers, metrics)
	client := resilience.NewClient(breakers, logger.Named("resilience"), metrics)
	retrier := resilience.NewRetrier(client, recorder, logger.Named("retry"), resilience.RetryPolicy{
		MaxRetries: cfg.Resilience.RetryMax,
		BaseDelay:  cfg.Resilience.RetryBaseDelay,
	})

	peerClient := peer.NewClient(logger.Named("peer"))
	for _, p := range peers {
		if p.URL == "" {
			logger.Warn("Peer has no URL, calls to it will fail", zap.String("peer", p.Name))
			continue
		}
		peerClient.Register(peer.Endpoint{Service: p.Name, BaseURL: p.URL, RPS: p.RPS, Burst: p.Burst})
	}

	caches := jobs.NewCaches(jobs.CacheTTLs{
		Entity: cfg.Cache.EntityTTL,
		Query:  cfg.Cache.QueryTTL,
		Match:  cfg.Cache.MatchTTL,
	}, cache.WithObserver(metrics))
	janitorCtx, stopJanitors := context.WithCancel(context.Background())
	if cfg.Cache.SweepInterval > 0 {
		caches.Start(janitorCtx, cfg.Cache.SweepInterval)
	}

	orchestrator := jobs.NewOrchestrator(peerClient, retrier, caches, recorder, logger.Named("jobs"), jobs.Options{
		CandidateLimit:    cfg.Matching.CandidateLimit,
		EnrichConcurrency: cfg.Matching.EnrichConcurrency,
	}).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(recorder))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := api.NewHandlers(orchestrator, breakers, spans, Version)
	handlers.Register(router)

	router.GET("/metrics", gin.WrapH(monitoring.Handler(registry)))
	router.GET("/metrics/json", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Snapshot())
	})

	logger.Info("Server initialized successfully", zap.Int("peers", len(peers)))

	return &Server{
		router:       router,
		orchestrator: orchestrator,
		recorder:     recorder,
		breakers:     breakers,
		logger:       logger,
		config:       cfg,
		metrics:      metrics,
		registry:     registry,
		stopJanitors: stopJanitors,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// newBreakers builds the breaker registry with per-peer overrides and state
// changes reported to logs and metrics.
func newBreakers(cfg *config.Config, peers []config.PeerSettings, metrics *monitoring.Metrics) *resilience.Breakers {
	opts := []resilience.BreakersOption{
		resilience.WithStateChange(metrics.BreakerStateChanged),
	}
	for _, p := range peers {
		opts = append(opts, resilience.WithOverride(p.Name, resilience.ServiceSettings{
			Threshold:    p.Threshold,
			ResetTimeout: p.ResetTimeout,
			CallTimeout:  p.Timeout,
		}))
	}

	return resilience.NewBreakers(resilience.ServiceSettings{
		Threshold:    cfg.Resilience.BreakerThreshold,
		ResetTimeout: cfg.Resilience.BreakerResetTimeout,
		CallTimeout:  cfg.Resilience.PeerTimeout,
	}, opts...)
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Orchestrator returns the job orchestrator.
func (s *Server) Orchestrator() *jobs.Orchestrator {
	return s.orchestrator
}

// Run starts the HTTP server and blocks until it stops. It returns nil after
// a graceful Close.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server: stop accepting requests, drain
// pending side effects, then stop the janitors and the span collector.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.orchestrator.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain side effects: %w", err))
	}
	s.stopJanitors()
	s.recorder.Close()

	if leaked := s.recorder.OpenCount(); leaked > 0 {
		s.logger.Warn("Spans still open at shutdown", zap.Int("count", leaked))
	}

	// Sync logger before exit
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
