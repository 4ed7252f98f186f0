// Package main implements the invex index synchronizer. It embeds the full
// inventory catalog and upserts it into the vector index, either as a
// one-shot run or as a daemon driven by sync requests on the message bus.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/invex-ai/invex/engine/catalog"
	"github.com/invex-ai/invex/engine/indexer"
	"github.com/invex-ai/invex/engine/semantic"
	"github.com/invex-ai/invex/pkg/config"
	"github.com/invex-ai/invex/pkg/natsutil"
	"github.com/invex-ai/invex/pkg/openaiclient"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.yaml", "path to config file")
	listen := flag.Bool("listen", false, "run as a daemon driven by sync requests on the bus")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, *listen, logger); err != nil {
		logger.Error("sync exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, listen bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiKey, err := cfg.OpenAI.APIKey()
	if err != nil {
		return err
	}
	ai, err := openaiclient.New(openaiclient.Config{
		APIKey:            apiKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		EmbedModel:        cfg.OpenAI.EmbedModel,
		ChatModel:         cfg.OpenAI.ChatModel,
		RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		Burst:             cfg.OpenAI.Burst,
	})
	if err != nil {
		return err
	}

	store, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	vectors, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectors.Close()

	if err := vectors.EnsureCollection(ctx, openaiclient.EmbedDimensions); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	opts := indexer.DefaultOptions()
	opts.BatchSize = cfg.Sync.BatchSize
	opts.EmbedWorkers = cfg.Sync.EmbedWorkers
	svc := indexer.New(store, ai, vectors, opts, logger)

	if !listen {
		sum, err := svc.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("sync finished", "upserted", sum.Upserted, "total", sum.Total)
		return nil
	}

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	sub, err := natsutil.Subscribe(nc, indexer.SyncRequestSubject, logger,
		func(ctx context.Context, req indexer.SyncRequest) {
			logger.Info("sync requested", "reason", req.Reason)
			sum, err := svc.Run(ctx)
			if err != nil {
				logger.Error("sync run failed", "err", err)
				sum = indexer.Summary{}
			}
			if err := natsutil.Publish(ctx, nc, indexer.SyncCompletedSubject, sum); err != nil {
				logger.Error("publish sync summary", "err", err)
			}
		})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", indexer.SyncRequestSubject, err)
	}
	defer sub.Unsubscribe()

	logger.Info("sync daemon listening", "subject", indexer.SyncRequestSubject)
	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}
