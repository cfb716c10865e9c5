package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"assetproxy/internal/config"
	"assetproxy/internal/database"
	"assetproxy/internal/logging"
	"assetproxy/internal/migrations"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "list pending migrations without applying them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *dryRun {
		pending, err := migrations.Pending(ctx, db)
		if err != nil {
			logger.Error("list pending migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("pending migrations", "count", len(pending), "names", pending)
		return
	}

	if err := migrations.Apply(ctx, db); err != nil {
		logger.Error("apply migrations", "error", err)
		db.Close()
		os.Exit(1)
	}

	logger.Info("migrations applied")
}
