// Package httpapi is the thin HTTP shell over the orchestrator: cron
// triggers, lifecycle and backtest routes, the admin approve/reject flow,
// the live execution feed, and /metrics. Handlers validate, delegate, and
// translate error kinds to status codes; no decision logic lives here.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Config holds the server wiring.
type Config struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig binds locally. Engine runs can take a while, so the
// per-request timeout is generous.
func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   120 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 110 * time.Second,
	}
}

// Server serves the control-plane API.
type Server struct {
	router *mux.Router
	server *http.Server
	h      *Handlers
	cfg    Config
	log    zerolog.Logger
}

// NewServer wires the routes. promReg may carry more than this process's own
// instruments; it is served as-is on /metrics.
func NewServer(cfg Config, h *Handlers, promReg *prometheus.Registry, log zerolog.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		h:      h,
		cfg:    cfg,
		log:    log,
	}
	s.setupRoutes(promReg)
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes(promReg *prometheus.Registry) {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.timeoutMiddleware)
	s.router.Use(s.corsMiddleware)

	// The metrics and websocket endpoints bypass the JSON content type.
	s.router.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})).Methods("GET")
	s.router.HandleFunc("/ws/executions", s.h.ExecutionFeed).Methods("GET")
	s.router.HandleFunc("/backtest/executions/{id}/export", s.h.ExportBacktest).Methods("GET")

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.h.Health).Methods("GET")

	api.HandleFunc("/cron/run", s.h.RunBid("")).Methods("POST")
	api.HandleFunc("/cron/run-normal", s.h.RunBid("NORMAL")).Methods("POST")
	api.HandleFunc("/cron/run-smode", s.h.RunBid("S_MODE")).Methods("POST")
	api.HandleFunc("/cron/run-budget-optimization", s.h.RunBudget).Methods("POST")
	api.HandleFunc("/cron/run-placement-optimization", s.h.RunPlacement).Methods("POST")
	api.HandleFunc("/cron/run-auto-exact-promotion", s.h.RunAutoExact(false)).Methods("POST")
	api.HandleFunc("/cron/run-auto-exact-shadow", s.h.RunAutoExact(true)).Methods("POST")
	api.HandleFunc("/cron/run-keyword-discovery", s.h.RunKeywordDiscovery).Methods("POST")
	api.HandleFunc("/cron/run-negative-judgement", s.h.RunNegative).Methods("POST")

	api.HandleFunc("/lifecycle/update", s.h.LifecycleUpdate).Methods("POST")
	api.HandleFunc("/lifecycle/suggestions", s.h.LifecycleSuggestions).Methods("POST")
	api.HandleFunc("/lifecycle/products/{id}/stage", s.h.LifecycleProductStage).Methods("POST")

	api.HandleFunc("/backtest/run", s.h.RunBacktest(false)).Methods("POST")
	api.HandleFunc("/backtest/weekly", s.h.RunBacktest(true)).Methods("POST")
	api.HandleFunc("/backtest/executions", s.h.ListBacktests).Methods("GET")
	api.HandleFunc("/backtest/executions/{id}", s.h.GetBacktest).Methods("GET")

	api.HandleFunc("/admin/negative-suggestions", s.h.ListNegatives).Methods("GET")
	api.HandleFunc("/admin/negative-suggestions/{id}/approve", s.h.ApproveNegative).Methods("POST")
	api.HandleFunc("/admin/negative-suggestions/{id}/reject", s.h.RejectNegative).Methods("POST")
	api.HandleFunc("/admin/negative-suggestions/apply-queued", s.h.ApplyQueuedNegatives).Methods("POST")
	api.HandleFunc("/admin/auto-exact-suggestions", s.h.ListPromotions).Methods("GET")
	api.HandleFunc("/admin/auto-exact-suggestions/{id}/approve", s.h.ApprovePromotion).Methods("POST")
	api.HandleFunc("/admin/auto-exact-suggestions/{id}/reject", s.h.RejectPromotion).Methods("POST")
	api.HandleFunc("/admin/auto-exact-suggestions/apply-queued", s.h.ApplyQueuedPromotions).Methods("POST")

	s.router.NotFoundHandler = http.HandlerFunc(s.h.NotFound)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		s.log.Info().
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start blocks on ListenAndServe.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
