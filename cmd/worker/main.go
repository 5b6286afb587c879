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
	"github.com/hugh/flow/internal/database"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/internal/events"
	"github.com/hugh/flow/internal/jobs"
	"github.com/hugh/flow/internal/mail"
	"github.com/hugh/flow/internal/metrics"
	"github.com/hugh/flow/internal/store"
	"github.com/hugh/flow/pkg/config"
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

	logger.Info("starting flow worker", "deadline_cron", cfg.Jobs.DeadlineCron)

	// Worker ids must not collide with the API node
	if err := models.SetNode((cfg.Server.NodeID + 512) % 1024); err != nil {
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

	// The worker has nothing to do without Redis
	redisClient, err := queue.ConnectRedis(startCtx, &cfg.Redis, time.Minute, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	s := store.New(db)
	loc := cfg.Server.Location()

	client := queue.NewClient(&cfg.Redis)
	defer client.Close()

	fanout := events.NewFanout(s, logger, m, &events.FanoutConfig{Timeout: cfg.Webhook.Timeout()})

	// Deadline warnings go through the same router as the API so their
	// webhooks are queued like any other event.
	notifier := events.NewRouter(s, jobs.NewQueueDispatcher(client, logger, m), logger, m)
	scanner := jobs.NewDeadlineScanner(s, notifier, loc, logger)

	var mailer mail.Sender = mail.NewNoOp(logger)
	if cfg.SMTP.Enabled() {
		mailer = mail.NewSMTP(mail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	handler := jobs.NewHandler(fanout, mailer, scanner, logger, m)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	srv := queue.NewServer(&cfg.Redis, cfg.Jobs.Concurrency)

	scheduler := queue.NewScheduler(&cfg.Redis, loc)
	if err := jobs.RegisterSchedule(scheduler, cfg.Jobs.DeadlineCron); err != nil {
		logger.Error("failed to register schedule", "error", err)
		os.Exit(1)
	}

	var metricsServer *http.Server
	if m != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, m.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.WorkerAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics server error", "error", err)
			}
		}()
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(mux); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	if next, err := util.NextCronTime(cfg.Jobs.DeadlineCron, time.Now(), loc); err == nil {
		logger.Info("worker started, waiting for tasks...", "next_deadline_scan", next)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")

	scheduler.Shutdown()
	srv.Shutdown()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsServer.Shutdown(ctx)
		cancel()
	}

	redisClient.Close()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
