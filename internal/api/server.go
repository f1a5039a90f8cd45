// Package api is an optional HTTP surface over the rebalancing engine: read-
// only endpoints for portfolio snapshots, batch outcomes, and a process health
// check, plus, when a PriceFeedSocket is configured, the /ws/prices WebSocket
// that applies incoming price ticks to the market. Those ticks are the only
// way this surface changes state: a tick that meets the alert threshold
// dispatches Rebalance through the registry. No endpoint calls Initialize or
// Rebalance directly.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/broker"
	"github.com/aristath/rebalancer/internal/portfolio"
)

// PortfolioSource is the narrow contract the HTTP surface depends on for
// portfolio data. Satisfied by a thin lookup wrapper around the process's
// live portfolio set (see cmd/server).
type PortfolioSource interface {
	List() []portfolio.View
	Get(id string) (portfolio.View, bool)
}

// BatchSource is the narrow contract for batch outcome lookups. Satisfied by
// *broker.AtomicBroker.
type BatchSource interface {
	Outcomes(batchID string) (map[string]broker.OrderOutcome, bool)
}

// Config configures the HTTP surface.
type Config struct {
	Port       int
	Log        zerolog.Logger
	DevMode    bool
	Portfolios PortfolioSource
	Batches    BatchSource
	PriceFeed  *PriceFeedSocket // optional; nil disables the /ws/prices route
}

// Server is the read-only HTTP surface.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	port   int

	portfolios PortfolioSource
	batches    BatchSource
	priceFeed  *PriceFeedSocket
}

// New constructs the server. Call Start to begin serving.
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "api").Logger(),
		port:       cfg.Port,
		portfolios: cfg.Portfolios,
		batches:    cfg.Batches,
		priceFeed:  cfg.PriceFeed,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Route("/portfolios", func(r chi.Router) {
		r.Get("/", s.handleListPortfolios)
		r.Get("/{id}", s.handleGetPortfolio)
	})
	s.router.Get("/batches/{id}", s.handleGetBatch)
	if s.priceFeed != nil {
		s.router.Get("/ws/prices", s.priceFeed.Handler)
	}
}

// Start blocks, serving until Shutdown is called or the listener errors.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("starting HTTP surface")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
