package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prodlens/backend/config"
	"github.com/prodlens/backend/internal/infrastructure/postgres"
	"github.com/prodlens/backend/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running migrate application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Log, os.Stdout)

	if cfg.Database.URL == "" {
		return errors.New("database URL is not configured (set PRODLENS_DATABASE_URL)")
	}

	db, err := postgres.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.InfoContext(ctx, "starting database migration")

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	logger.InfoContext(ctx, "database migration completed successfully")

	return nil
}
