package api

import (
	"log/slog"
	"net/http"

	"github.com/makeuc/lattice/internal/idempotency"
	"github.com/makeuc/lattice/internal/middleware"
)

// RouterConfig holds the handlers and middleware dependencies of the HTTP API.
type RouterConfig struct {
	Profiles      *ProfileHandlers
	Matches       *MatchHandlers
	Registrations *RegistrationHandlers
	Health        *HealthHandlers

	Tokens middleware.TokenValidator

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
	Metrics        *middleware.Metrics

	RateLimitStore middleware.RateLimitStore
	RateLimit      middleware.RateLimitConfig

	// Idempotency enables Idempotency-Key replay on POST /matches and
	// POST /registrants when set.
	Idempotency idempotency.Store

	CORS        middleware.CORSConfig
	ServiceName string
	Logger      *slog.Logger
}

// NewRouter builds the route table and wraps it in the middleware chain:
// RequestID, Tracing, Logging, HTTPMetrics, CORS.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "lattice"
	}

	idempotent := func(keyFunc middleware.KeyFunc, h http.HandlerFunc) http.HandlerFunc {
		if cfg.Idempotency == nil {
			return h
		}
		return middleware.Idempotency(cfg.Idempotency, keyFunc)(h).ServeHTTP
	}
	authed := func(h http.HandlerFunc) http.Handler {
		limited := middleware.RateLimiter(cfg.RateLimitStore, cfg.RateLimit, middleware.ProfileKeyFunc(), cfg.Metrics)(h)
		return middleware.RequireAuth(cfg.Tokens, cfg.Metrics)(limited)
	}
	public := func(h http.HandlerFunc) http.Handler {
		return middleware.RateLimiter(cfg.RateLimitStore, cfg.RateLimit, middleware.IPKeyFunc(), cfg.Metrics)(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", cfg.Health.Health)
	mux.HandleFunc("GET /ready", cfg.Health.Ready)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	mux.Handle("GET /profile", authed(cfg.Profiles.GetProfile))
	mux.Handle("PUT /profile", authed(cfg.Profiles.UpdateProfile))
	mux.Handle("POST /profile/start", authed(cfg.Profiles.StartProfile))
	mux.Handle("PUT /profile/visibility", authed(cfg.Profiles.SetVisibility))
	mux.Handle("GET /profiles/scored", authed(cfg.Profiles.ScoredProfiles))

	mux.Handle("POST /matches", authed(idempotent(middleware.ProfileKeyFunc(), cfg.Matches.CreateMatch)))
	mux.Handle("GET /matches/inbound", authed(cfg.Matches.InboundMatches))

	mux.Handle("POST /registrants", public(idempotent(middleware.IPKeyFunc(), cfg.Registrations.Register)))
	mux.Handle("GET /registrants/verify/{id}", public(cfg.Registrations.Verify))
	mux.Handle("POST /registrants/{id}/resume-url", public(cfg.Registrations.ResumeURL))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
	})

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORS)(handler)
	handler = middleware.HTTPMetrics(cfg.Metrics)(handler)
	handler = middleware.Logging(cfg.Logger)(handler)
	handler = middleware.Tracing(cfg.ServiceName)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
