package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/campuswallet/internal/adapter/http/handler"
	"github.com/iho/campuswallet/internal/adapter/http/middleware"
	"github.com/iho/campuswallet/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	AccountHandler      *handler.AccountHandler
	TransferHandler     *handler.TransferHandler
	TopUpHandler        *handler.TopUpHandler
	HistoryHandler      *handler.HistoryHandler
	NotificationHandler *handler.NotificationHandler
	LedgerHandler       *handler.LedgerHandler
	HealthHandler       *handler.HealthHandler

	// Verifier authenticates every /api/v1 route except login.
	Verifier middleware.TokenVerifier

	// Optional.
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	MetricsHandler   http.Handler
	Logger           *zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if cfg.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(*cfg.Logger).Wrap)
	}
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.With(limit(cfg.RateLimiter, middleware.ClassAuth)).Post("/auth/login", cfg.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Verifier))

			// Reads
			r.Group(func(r chi.Router) {
				r.Use(limit(cfg.RateLimiter, middleware.ClassRead))

				r.Get("/me", cfg.AccountHandler.Me)
				r.Get("/accounts", cfg.AccountHandler.List)
				r.Get("/accounts/{externalID}", cfg.AccountHandler.Get)

				r.Route("/history", func(r chi.Router) {
					r.Get("/", cfg.HistoryHandler.List)
					r.Get("/statement", cfg.HistoryHandler.Statement)
					r.Get("/export", cfg.HistoryHandler.Export)
					r.Get("/{id}", cfg.HistoryHandler.Get)
				})

				r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
				r.Get("/notifications/stream", cfg.NotificationHandler.Stream)
			})

			// Mutations
			r.Group(func(r chi.Router) {
				r.Use(limit(cfg.RateLimiter, middleware.ClassMutate))
				// Idempotency middleware for mutating requests
				if cfg.IdempotencyStore != nil {
					r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
				}

				r.Post("/accounts", cfg.AccountHandler.Provision)
				r.Post("/transfers", cfg.TransferHandler.Transfer)
				r.Post("/transfers/group", cfg.TransferHandler.GroupTransfer)
				r.Post("/topups", cfg.TopUpHandler.TopUp)
				r.Post("/adjustments", cfg.TopUpHandler.Adjust)
			})
		})
	})

	return r
}

func limit(rl *middleware.RateLimiter, class string) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Limit(class)
}
