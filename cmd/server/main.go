package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/flow/internal/access"
	"github.com/hugh/flow/internal/api"
	"github.com/hugh/flow/internal/api/middleware"
	"github.com/hugh/flow/internal/auth"
	"github.com/hugh/flow/internal/dashboard"
	"github.com/hugh/flow/internal/database"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/jobs"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/metrics"
	"github.com/hugh/flow/internal/orgs"
	"github.com/hugh/flow/internal/projects"
	"github.com/hugh/flow/internal/settings"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/internal/tasks"
	"github.com/hugh/flow/internal/users"
	"github.com/hugh/flow/pkg/config"
	"github.com/hugh/flow/pkg/crypto"
	"github.com/hugh/flow/pkg/queue"
	"github.com/hugh/flow/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting flow server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	if err := models.SetNode(cfg.Server.NodeID); err != nil {
		logger.Error("failed to initialise id generator", "error", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancelStart()

	// Connect to database
	db, err := database.Connect(startCtx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Redis is optional unless webhooks are forced onto the queue
	redisClient, err := queue.ConnectRedis(startCtx, &cfg.Redis, 10*time.Second, logger)
	if err != nil {
		if cfg.Webhook.Mode == "queue" {
			logger.Error("WEBHOOK_MODE=queue requires redis", "error", err)
			os.Exit(1)
		}
		logger.Warn("redis unavailable, falling back to in-process delivery", "error", err)
		redisClient = nil
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var asynqClient *asynq.Client
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if cfg.Encryption.Key == "" {
		logger.Warn("ENCRYPTION_KEY not set, using generated key - webhook secrets will be unreadable after restart")
	}

	s := store.New(db)
	loc := cfg.Server.Location()

	// Webhook dispatch: queue when Redis is there, otherwise an in-process pool
	var (
		dispatcher events.Dispatcher
		pool       *events.Pool
	)
	if asynqClient != nil && cfg.Webhook.Mode != "inline" {
		dispatcher = jobs.NewQueueDispatcher(asynqClient, logger, m)
		logger.Info("webhook fan-out via queue")
	} else {
		fanout := events.NewFanout(s, logger, m, &events.FanoutConfig{Timeout: cfg.Webhook.Timeout()})
		pool = events.NewPool(fanout, logger, m, &events.PoolConfig{
			Workers:   cfg.Webhook.Workers,
			QueueSize: cfg.Webhook.QueueSize,
		})
		dispatcher = pool
		logger.Info("webhook fan-out in process", "workers", cfg.Webhook.Workers)
	}

	mailer := newMailer(cfg, asynqClient, logger)

	resolver := access.NewResolver(s, cfg.Org.ReservedName, logger)
	policy, err := access.NewPolicy(resolver, logger)
	if err != nil {
		logger.Error("failed to load access policy", "error", err)
		os.Exit(1)
	}
	limits := settings.NewService(s, settings.Limits{
		MaxUsersPerOrganization:    cfg.Limits.MaxUsersPerOrganization,
		MaxProjectsPerOrganization: cfg.Limits.MaxProjectsPerOrganization,
		MaxMembersPerProject:       cfg.Limits.MaxMembersPerProject,
		MaxTasksPerProject:         cfg.Limits.MaxTasksPerProject,
	})
	notifier := events.NewRouter(s, dispatcher, logger, m)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())

	var limiter middleware.Limiter
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.WindowSeconds)
	} else {
		memLimiter := middleware.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.WindowSeconds)
		go sweepLimiter(memLimiter)
		limiter = memLimiter
	}

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		Metrics:        m,
		Tokens:         jwtService,
		AuthService:    auth.NewService(s, jwtService),
		Users:          s,
		Authorizer:     policy,
		Dashboard:      dashboard.NewAggregator(s, resolver, loc, logger).WithMetrics(m),
		Orgs:           orgs.NewService(s, policy, resolver, limits, mailer, logger),
		Projects:       projects.NewService(s, policy, resolver, limits, notifier, mailer, logger),
		Tasks:          tasks.NewService(s, policy, resolver, limits, notifier, mailer, logger),
		Inbox:          events.NewInbox(s),
		WebhookConfigs: events.NewWebhookConfigs(s, encryptor),
		Settings:       limits,
		Accounts:       users.NewService(s, policy, resolver, mailer, logger),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		MetricsPath:    cfg.Metrics.Path,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Drain pending in-process webhook deliveries
	if pool != nil {
		if err := pool.Shutdown(ctx); err != nil {
			logger.Warn("webhook pool did not drain", "error", err)
		}
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}

// newMailer queues mail for the worker when Redis is available so SMTP
// failures are retried; otherwise it sends inline or only logs.
func newMailer(cfg *config.Config, client *asynq.Client, logger *slog.Logger) mail.Sender {
	if !cfg.SMTP.Enabled() {
		return mail.NewNoOp(logger)
	}
	if client != nil {
		return jobs.NewQueueSender(client, logger)
	}
	return mail.NewSMTP(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}

func sweepLimiter(l *middleware.MemoryLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.Sweep()
	}
}
