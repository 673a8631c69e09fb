package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aescanero/dago-rule-engine/internal/engine"
	celeval "github.com/aescanero/dago-rule-engine/internal/eval/cel"
	"github.com/aescanero/dago-rule-engine/internal/eval/template"
	"github.com/aescanero/dago-rule-engine/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithCEL enables CEL export and CEL evaluation mode.
func WithCEL(e *celeval.Evaluator) Option {
	return func(s *Server) {
		s.cel = e
	}
}

// WithCORSOrigins sets the origins allowed for cross-origin requests.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithHealthCheck adds a named dependency check to /health and /ready.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks = append(s.checks, namedCheck{name: name, check: check})
	}
}

type namedCheck struct {
	name  string
	check HealthCheck
}

// Server is the HTTP API of the rule engine.
type Server struct {
	port        int
	engine      *engine.Engine
	templates   *template.Engine
	cel         *celeval.Evaluator
	metrics     *metrics.Metrics
	corsOrigins []string
	checks      []namedCheck
	logger      *zap.Logger
	server      *http.Server
}

// New creates a server listening on port once started.
func New(port int, eng *engine.Engine, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		port:        port,
		engine:      eng,
		templates:   template.NewEngine(),
		corsOrigins: []string{"*"},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the complete HTTP handler, middleware included.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/rules/create_rule", s.handleCreateRule)
	mux.HandleFunc("POST /api/rules/combine_rules", s.handleCombineRules)
	mux.HandleFunc("POST /api/rules/evaluate_rule", s.handleEvaluateRule)
	mux.HandleFunc("GET /api/rules", s.handleListRules)
	mux.HandleFunc("GET /api/rules/{name}", s.handleGetRule)
	mux.HandleFunc("DELETE /api/rules/{name}", s.handleDeleteRule)
	if s.cel != nil {
		mux.HandleFunc("GET /api/rules/{name}/cel", s.handleRuleCEL)
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	mux.HandleFunc("GET /{$}", s.handleIndex)

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})

	return c.Handler(s.instrument(mux))
}

// Start starts serving in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("starting http server", zap.Int("port", s.port))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("stopping http server")
	return s.server.Shutdown(ctx)
}

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument assigns a request id, logs the request and records metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordHTTPRequest(route, strconv.Itoa(rec.status))

		s.logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
