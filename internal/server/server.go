// Package server serves the mint page, the contract info it needs and the
// block analysis API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Aranthus/erc-721-hyperliquid/internal/blocks"
	"github.com/Aranthus/erc-721-hyperliquid/internal/server/middleware"
)

// MaxWindow caps the analysis window a client can request.
const MaxWindow = 1000

// Options configures a Server.
type Options struct {
	Reader          blocks.Reader
	Classifier      *blocks.Classifier
	SlowIntervalSec float64
	FastIntervalSec float64
	Window          int // default analysis window

	DeploymentFile string
	PublicDir      string
	CORSOrigins    []string

	Logger   *slog.Logger
	Registry *prometheus.Registry // a fresh registry when nil
}

// Server is the HTTP front end.
type Server struct {
	opts       Options
	logger     *slog.Logger
	router     chi.Router
	classified *prometheus.CounterVec
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
		opts.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if opts.Classifier == nil {
		opts.Classifier = blocks.NewClassifier(blocks.DefaultSlowGasThreshold)
	}
	if opts.Window <= 0 {
		opts.Window = 30
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger,
		classified: promauto.With(opts.Registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hypermint_blocks_classified_total",
				Help: "Blocks classified by the API, by class",
			},
			[]string{"class"},
		),
	}
	s.router = s.routes(middleware.NewMetrics(opts.Registry))
	return s
}

func (s *Server) routes(metrics *middleware.Metrics) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(s.opts.CORSOrigins))
	r.Use(metrics.Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))
		r.Get("/contract-info", s.handleContractInfo)
		r.Get("/blocks/analysis", s.handleAnalysis)
		r.Get("/blocks/{ref}", s.handleBlock)
	})

	r.Get("/", s.handleIndex)
	r.Handle("/*", http.FileServer(http.Dir(s.opts.PublicDir)))

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
