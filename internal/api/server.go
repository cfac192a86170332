// Package api exposes the scoring engine and stored results over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"channel-trust-lab/internal/engine"
	"channel-trust-lab/internal/ingestion"
	"channel-trust-lab/internal/observability"
	"channel-trust-lab/internal/reporting"
	"channel-trust-lab/internal/storage"
)

// Options configures the HTTP server.
type Options struct {
	Addr         string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Engine   *engine.Engine
	Runner   *ingestion.Runner // processes POST /ingest and reports feed stats
	Records  storage.ScoreRecordStore
	Reporter *reporting.Generator
	Logger   *zap.Logger

	// MetricsHandler serves /metrics; nil uses observability.Handler.
	MetricsHandler http.Handler
}

// Server is the HTTP front of the engine.
type Server struct {
	server   *http.Server
	router   *chi.Mux
	engine   *engine.Engine
	runner   *ingestion.Runner
	records  storage.ScoreRecordStore
	reporter *reporting.Generator
	logger   *zap.Logger
	started  time.Time

	mu         sync.Mutex
	feedActive bool
}

// NewServer creates a new HTTP server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = observability.Handler()
	}

	s := &Server{
		engine:   opts.Engine,
		runner:   opts.Runner,
		records:  opts.Records,
		reporter: opts.Reporter,
		logger:   logger.Named("api"),
		started:  time.Now(),
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(s.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	// Routes
	router.Get("/health", s.handleHealth)
	router.Get("/status", s.handleStatus)
	router.Method(http.MethodGet, "/metrics", metricsHandler)

	router.Post("/score", s.handleScore)
	router.Post("/ingest", s.handleIngest)

	router.Route("/channels/{channelID}", func(r chi.Router) {
		r.Get("/records", s.handleChannelRecords)
		r.Get("/latest", s.handleChannelLatest)
	})
	router.Get("/report", s.handleReport)

	s.router = router
	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetFeedActive marks whether the websocket feed is running, shown in /status.
func (s *Server) SetFeedActive(active bool) {
	s.mu.Lock()
	s.feedActive = active
	s.mu.Unlock()
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting http server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
