package rcad

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"rcavault/config"
	"rcavault/core"
	"rcavault/core/events"
	"rcavault/observability"
)

// Server serves read-only views over a deployment and its event journal.
type Server struct {
	deployment *core.Deployment
	journal    *events.Journal
	limiter    *RateLimiter
	logger     *slog.Logger
	quotes     metric.Int64Counter
}

// NewServer returns a view server.
func NewServer(d *core.Deployment, journal *events.Journal, limit config.RateLimit, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	quotes, err := otel.Meter("rcavault/services/rcad").Int64Counter("rcad.quotes",
		metric.WithDescription("Valuation quotes served"))
	if err != nil {
		logger.Warn("quote counter unavailable", "error", err)
	}
	return &Server{deployment: d, journal: journal, limiter: NewRateLimiter(limit), logger: logger, quotes: quotes}
}

func (s *Server) countQuote(r *http.Request, kind string, shield string) {
	attrs := attribute.NewSet(attribute.String("kind", kind), attribute.String("shield", shield))
	trace.SpanFromContext(r.Context()).SetAttributes(attrs.ToSlice()...)
	if s.quotes != nil {
		s.quotes.Add(r.Context(), 1, metric.WithAttributeSet(attrs))
	}
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(s.limiter.Middleware)
		api.Use(s.observe)
		api.Get("/controller", s.handleController)
		api.Get("/shields", s.handleShields)
		api.Get("/shields/{addr}", s.handleShield)
		api.Get("/shields/{addr}/uvalue", s.handleUValue)
		api.Get("/shields/{addr}/rcavalue", s.handleRcaValue)
		api.Get("/users/{addr}/balances", s.handleBalances)
		api.Get("/users/{addr}/requests", s.handleRequests)
		api.Get("/treasury", s.handleTreasury)
		api.Get("/treasury/incidents/{id}", s.handleIncident)
		api.Get("/events", s.handleEvents)
	})
	return otelhttp.NewHandler(r, "rcad")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		observability.API().Observe(route, r.Method, recorder.status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
