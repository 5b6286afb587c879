package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugh/flow/internal/database"
	"github.com/hugh/flow/pkg/config"
	"github.com/hugh/flow/pkg/util"
	"gorm.io/gorm"
)

type Globals struct {
	Debug bool
}

func (g *Globals) logger() *slog.Logger {
	if g.Debug {
		return util.NewLogger("development")
	}
	return util.DiscardLogger()
}

// open loads configuration and connects to the database.
func (g *Globals) open(ctx context.Context) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(ctx, &cfg.Database, g.logger())
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
