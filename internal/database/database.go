package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hugh/flow/internal/database/models"
	"github.com/hugh/flow/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the Postgres pool, retrying with exponential backoff until
// the database answers or the configured connect timeout elapses.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SSLMode == "disable" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	maxElapsed := cfg.ConnectTimeout()
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}

	attempt := 0
	db, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		attempt++
		db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger: gormLogger,
		})
		if err != nil {
			log.Warn("database not ready", "attempt", attempt, "error", err)
			return nil, err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("getting underlying db: %w", err))
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			log.Warn("database not ready", "attempt", attempt, "error", err)
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("connected to database", "host", cfg.Host, "database", cfg.Name, "attempts", attempt)

	return db, nil
}

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Organization{},
		&models.OrganizationMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.TaskComment{},
		&models.Meeting{},
		&models.NotificationEvent{},
		&models.WebhookConfig{},
		&models.SystemConfig{},
	}
}

// AutoMigrate builds the schema from the models. Production uses the SQL
// migrations in Migrate; this is for SQLite-backed tests and local tools.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
