package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/resumeai-platform/resumeai/internal/admin"
	"github.com/resumeai-platform/resumeai/internal/api"
	"github.com/resumeai-platform/resumeai/internal/audit"
	"github.com/resumeai-platform/resumeai/internal/auth"
	"github.com/resumeai-platform/resumeai/internal/config"
	"github.com/resumeai-platform/resumeai/internal/database"
	"github.com/resumeai-platform/resumeai/internal/documents"
	"github.com/resumeai-platform/resumeai/internal/generation"
	mw "github.com/resumeai-platform/resumeai/internal/middleware"
	inats "github.com/resumeai-platform/resumeai/internal/nats"
	iredis "github.com/resumeai-platform/resumeai/internal/redis"
	"github.com/resumeai-platform/resumeai/internal/server"
	"github.com/resumeai-platform/resumeai/internal/usage"
	"github.com/resumeai-platform/resumeai/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.Server.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	encryptor, err := auth.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		slog.Error("creating encryptor", "error", err)
		os.Exit(1)
	}

	// Usage quotas
	usageSvc := usage.NewService(usage.NewRepository(pool), usage.Defaults{
		ResumeLimit: cfg.Usage.ResumeLimit,
		CoverLimit:  cfg.Usage.CoverLimit,
	})
	auditRepo := audit.NewRepository(pool)

	// NATS (optional): audit events are dropped when it is not configured.
	var natsClient *inats.Client
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()

		usageSvc.WithAudit(inats.NewPublisher(natsClient.JetStream()))

		consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	guard := usage.NewGuard(usageSvc, usage.NewRateLimiter(redisClient), cfg.Usage.MaxGenerationsPerMinute)
	usageHandler := usage.NewHandler(usageSvc, guard)

	// Documents
	docRepo := documents.NewRepository(pool)
	docSvc := documents.NewService(docRepo, encryptor, generation.NewClient(cfg.OpenAI), guard)
	docHandler := documents.NewHandler(docSvc)

	// Admin
	adminHandler := admin.NewHandler(usageSvc, userSvc, docRepo)
	auditHandler := audit.NewHandler(auditRepo)

	authLimiter := mw.NewRateLimiter(redisClient, "auth", cfg.RateLimit.AuthMaxRequests, cfg.RateLimit.AuthWindowSec)

	// Router
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		AuthRateLimiter:    authLimiter.Middleware,
		RedisHealth: func(ctx context.Context) error {
			return iredis.HealthCheck(ctx, redisClient)
		},
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,
		Me:       authHandler.Me(cfg.Admin.IsAdmin),

		GetUsage:     usageHandler.Get,
		UsageHistory: auditHandler.ListMine,

		CreateResume:     docHandler.CreateResume,
		UploadResume:     docHandler.UploadResume,
		ListResumes:      docHandler.ListResumes,
		GenerateResume:   docHandler.GenerateResume,
		GenerateCover:    docHandler.GenerateCover,
		GenerateProposal: docHandler.GenerateProposal,
		ListDocuments:    docHandler.List,
		GetDocument:      docHandler.Get,
		ExportDocument:   docHandler.Export,

		BlockUser:        adminHandler.Block,
		UnblockUser:      adminHandler.Unblock,
		UpdateUserLimits: adminHandler.UpdateLimits,
		GetUser:          adminHandler.GetUser,
		GetStats:         adminHandler.Stats,
		ListAuditLogs:    auditHandler.ListAll,
		ListUserAudit:    auditHandler.ListAccount,

		AuthMiddleware:  auth.Middleware(authSvc),
		AdminMiddleware: auth.AdminOnly(cfg.Admin.IsAdmin),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	srv.OnShutdown(stop)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
