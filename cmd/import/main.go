// Package main imports an inventory export file into the catalog database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/invex-ai/invex/engine/catalog"
	"github.com/invex-ai/invex/pkg/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.yaml", "path to config file")
	file := flag.String("file", "", "path to the JSON inventory export")
	flag.Parse()

	if *file == "" {
		logger.Error("usage: import -file <inventory.json>")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	store, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		logger.Error("open catalog", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	n, err := store.ImportFile(ctx, *file)
	if err != nil {
		logger.Error("import failed", "err", err)
		os.Exit(1)
	}

	total, err := store.Count(ctx)
	if err != nil {
		logger.Error("count catalog", "err", err)
		os.Exit(1)
	}
	logger.Info("import complete", "imported", n, "catalog_total", total)
}
