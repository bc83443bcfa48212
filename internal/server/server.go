// Package server exposes the fund operations over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"YieldOptimizer/internal/auth"
	"YieldOptimizer/internal/fund"
	"YieldOptimizer/internal/metrics"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/recorder"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// FundService is the fund manager surface served over HTTP.
type FundService interface {
	Initialize(ctx context.Context, caller, owner string) (*model.FundLedger, error)
	Ledger(ctx context.Context, owner string) (*model.FundLedger, error)
	OptimizeYield(ctx context.Context, req fund.Request) (*fund.Result, error)
	CreditBalance(ctx context.Context, caller, owner, asset string, amount uint64) (*model.FundLedger, error)
	DebitBalance(ctx context.Context, caller, owner, asset string, amount uint64) (*model.FundLedger, error)
}

type GovernanceService interface {
	Get(ctx context.Context) (*model.GovernanceRecord, error)
	UpdateFeeRate(ctx context.Context, caller string, newRate uint64) (*model.GovernanceRecord, error)
}

// VenueLister reports the protocols the manager can route to.
type VenueLister interface {
	Protocols() []model.ProtocolID
}

// Config holds server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
	Log         zerolog.Logger
	Fund        FundService
	Governance  GovernanceService
	Events      recorder.Recorder
	Tokens      *auth.Tokens
	Venues      VenueLister
}

type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	fund   FundService
	gov    GovernanceService
	events recorder.Recorder
	tokens *auth.Tokens
	venues VenueLister
}

func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		fund:   cfg.Fund,
		gov:    cfg.Governance,
		events: cfg.Events,
		tokens: cfg.Tokens,
		venues: cfg.Venues,
	}

	s.setupMiddleware(cfg.CORSOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.InstrumentHandler)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(s.tokens, s.log))

		r.Route("/funds/{owner}", func(r chi.Router) {
			r.Post("/", s.handleInitialize)
			r.Get("/", s.handleLedger)
			r.Post("/optimize", s.handleOptimize)
			r.Post("/balances/{asset}/credit", s.handleCredit)
			r.Post("/balances/{asset}/debit", s.handleDebit)
		})

		r.Get("/governance", s.handleGovernance)
		r.Put("/governance/fee-rate", s.handleUpdateFeeRate)
		r.Get("/events", s.handleEvents)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
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
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
