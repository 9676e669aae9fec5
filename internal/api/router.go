package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resumeai-platform/resumeai/internal/database"
	mw "github.com/resumeai-platform/resumeai/internal/middleware"
	inats "github.com/resumeai-platform/resumeai/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Auth handlers
	Register http.HandlerFunc
	Login    http.HandlerFunc
	Refresh  http.HandlerFunc
	Logout   http.HandlerFunc
	Me       http.HandlerFunc

	// Usage
	GetUsage     http.HandlerFunc
	UsageHistory http.HandlerFunc

	// Documents
	CreateResume     http.HandlerFunc
	UploadResume     http.HandlerFunc
	ListResumes      http.HandlerFunc
	GenerateResume   http.HandlerFunc
	GenerateCover    http.HandlerFunc
	GenerateProposal http.HandlerFunc
	ListDocuments    http.HandlerFunc
	GetDocument      http.HandlerFunc
	ExportDocument   http.HandlerFunc

	// Admin
	BlockUser        http.HandlerFunc
	UnblockUser      http.HandlerFunc
	UpdateUserLimits http.HandlerFunc
	GetUser          http.HandlerFunc
	GetStats         http.HandlerFunc
	ListAuditLogs    http.HandlerFunc
	ListUserAudit    http.HandlerFunc

	AuthMiddleware  func(http.Handler) http.Handler
	AdminMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AuthRateLimiter    func(http.Handler) http.Handler
	// RedisHealth is optional; nil reports Redis as not configured.
	RedisHealth func(ctx context.Context) error
}

func NewRouter(pool *pgxpool.Pool, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		checks := readinessChecks{
			database: func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
			redis:    cfg.RedisHealth,
		}
		if natsClient != nil {
			checks.nats = natsClient.Healthy
		}
		status, health := checks.run(r.Context())
		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		Routes(r, cfg, h)
	})

	return r
}

// Routes mounts the versioned API on r.
func Routes(r chi.Router, cfg RouterConfig, h HandlerSet) {
	// Auth routes (public), optionally rate-limited
	r.Route("/auth", func(r chi.Router) {
		if cfg.AuthRateLimiter != nil {
			r.Use(cfg.AuthRateLimiter)
		}
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Route("/usage", func(r chi.Router) {
			r.Get("/", h.GetUsage)
			r.Get("/history", h.UsageHistory)
		})

		r.Route("/resumes", func(r chi.Router) {
			r.Post("/", h.CreateResume)
			r.Post("/upload", h.UploadResume)
			r.Get("/", h.ListResumes)
		})

		r.Route("/generate", func(r chi.Router) {
			r.Post("/resume", h.GenerateResume)
			r.Post("/cover", h.GenerateCover)
			r.Post("/proposal", h.GenerateProposal)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Get("/{type}/{id}", h.GetDocument)
			r.Get("/{type}/{id}/export", h.ExportDocument)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.AdminMiddleware)
			r.Get("/stats", h.GetStats)
			r.Get("/audit", h.ListAuditLogs)
			r.Route("/users/{id}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Post("/block", h.BlockUser)
				r.Post("/unblock", h.UnblockUser)
				r.Put("/limits", h.UpdateUserLimits)
				r.Get("/audit", h.ListUserAudit)
			})
		})
	})
}

type readinessChecks struct {
	database func(ctx context.Context) error
	redis    func(ctx context.Context) error
	nats     func() bool
}

// run reports every dependency. Database and Redis failures make the
// instance unready; a NATS outage only degrades the audit trail.
func (c readinessChecks) run(ctx context.Context) (int, map[string]string) {
	health := map[string]string{
		"status":   "healthy",
		"database": "healthy",
		"redis":    "healthy",
		"nats":     "healthy",
	}
	status := http.StatusOK

	if err := c.database(ctx); err != nil {
		health["database"] = "unhealthy"
		health["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	switch {
	case c.redis == nil:
		health["redis"] = "not configured"
	case c.redis(ctx) != nil:
		health["redis"] = "unhealthy"
		health["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	switch {
	case c.nats == nil:
		health["nats"] = "not configured"
	case !c.nats():
		health["nats"] = "unhealthy"
		if status == http.StatusOK {
			health["status"] = "degraded"
		}
	}

	return status, health
}
