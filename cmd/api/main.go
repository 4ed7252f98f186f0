// Package main implements the invex API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/invex-ai/invex/engine/catalog"
	"github.com/invex-ai/invex/engine/domain"
	"github.com/invex-ai/invex/engine/indexer"
	"github.com/invex-ai/invex/engine/recommend"
	"github.com/invex-ai/invex/engine/semantic"
	"github.com/invex-ai/invex/pkg/config"
	"github.com/invex-ai/invex/pkg/metrics"
	"github.com/invex-ai/invex/pkg/mid"
	"github.com/invex-ai/invex/pkg/natsutil"
	"github.com/invex-ai/invex/pkg/openaiclient"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
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

	// NATS is optional for the API: without it the sync trigger endpoint
	// reports unavailable and everything else works.
	var nc *nats.Conn
	if conn, err := nats.Connect(cfg.NATS.URL); err != nil {
		logger.Warn("nats unavailable, sync trigger disabled", "err", err)
	} else {
		nc = conn
		defer nc.Close()
	}

	recSvc := recommend.New(ai, vectors, ai, recommend.DefaultOptions(), logger)

	reg := metrics.New()
	if nc != nil {
		sub, err := natsutil.Subscribe(nc, indexer.SyncCompletedSubject, logger,
			func(_ context.Context, sum indexer.Summary) {
				reg.Counter("invex_sync_runs_total", "Completed sync runs observed.").Inc()
				reg.Gauge("invex_sync_upserted", "Items upserted by the last sync run.").Set(int64(sum.Upserted))
				reg.Gauge("invex_sync_items", "Items in the last sync run.").Set(int64(sum.Total))
				logger.Info("sync completed", "upserted", sum.Upserted, "total", sum.Total, "success", sum.Success)
			})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", indexer.SyncCompletedSubject, err)
		}
		defer sub.Unsubscribe()
	}

	srv := newServer(store, recSvc, nc, reg, logger)

	handler := mid.Chain(srv.routes(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.OTel("invex-api"),
		mid.CORS("*"),
	)

	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", cfg.Server.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}

// server bundles the handler dependencies.
type server struct {
	catalog   *catalog.Store
	recommend *recommend.Service
	nc        *nats.Conn
	logger    *slog.Logger

	recTotal   func(outcome string) *metrics.Counter
	recSeconds *metrics.Histogram
	registry   *metrics.Registry
}

func newServer(store *catalog.Store, rec *recommend.Service, nc *nats.Conn, reg *metrics.Registry, logger *slog.Logger) *server {
	return &server{
		catalog:   store,
		recommend: rec,
		nc:        nc,
		logger:    logger,
		recTotal: func(outcome string) *metrics.Counter {
			return reg.Counter("invex_recommendations_total"+metrics.Labels("outcome", outcome), "Recommendation outcomes.")
		},
		recSeconds: reg.Histogram("invex_recommendation_seconds", "End-to-end recommendation latency.", nil),
		registry:   reg,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/recommendations", s.handleRecommend)
	mux.HandleFunc("GET /api/items", s.handleListItems)
	mux.HandleFunc("PUT /api/items/{itemNo}", s.handlePutItem)
	mux.HandleFunc("GET /api/items/{itemNo}", s.handleGetItem)
	mux.HandleFunc("DELETE /api/items/{itemNo}", s.handleDeleteItem)
	mux.HandleFunc("POST /api/items/{itemNo}/stock", s.handleAdjustStock)
	mux.HandleFunc("GET /api/items/low-stock", s.handleLowStock)
	mux.HandleFunc("POST /api/sync", s.handleSyncTrigger)
	mux.Handle("GET /metrics", s.registry.Handler())
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req domain.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start := time.Now()
	out := s.recommend.Recommend(r.Context(), req)
	s.recSeconds.ObserveSince(start)

	status := http.StatusOK
	switch {
	case out.Success:
		s.recTotal("success").Inc()
	case out.Message == recommend.MsgInvalidRequest:
		s.recTotal("invalid").Inc()
		status = http.StatusBadRequest
	case out.Message == recommend.MsgNoMatches:
		s.recTotal("no_matches").Inc()
	default:
		s.recTotal("error").Inc()
		status = http.StatusBadGateway
	}
	writeJSON(w, status, out)
}

func (s *server) handleListItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []domain.InventoryItem
		err   error
	)
	if group := r.URL.Query().Get("group"); group != "" {
		items, err = s.catalog.ByGroup(r.Context(), group)
	} else {
		items, err = s.catalog.FetchAll(r.Context())
	}
	if err != nil {
		s.logger.Error("list items", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.Get(r.Context(), r.PathValue("itemNo"))
	if errors.Is(err, domain.ErrItemNotFound) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		s.logger.Error("get item", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *server) handlePutItem(w http.ResponseWriter, r *http.Request) {
	var item domain.InventoryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item.ItemNo = r.PathValue("itemNo")

	if err := s.catalog.Put(r.Context(), item); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("put item", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	err := s.catalog.Delete(r.Context(), r.PathValue("itemNo"))
	if errors.Is(err, domain.ErrItemNotFound) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		s.logger.Error("delete item", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stockAdjustment is the JSON body for POST /api/items/{itemNo}/stock.
type stockAdjustment struct {
	Delta int `json:"delta"`
}

func (s *server) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var adj stockAdjustment
	if err := json.NewDecoder(r.Body).Decode(&adj); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.catalog.AdjustStock(r.Context(), r.PathValue("itemNo"), adj.Delta)
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient stock")
	case err != nil:
		s.logger.Error("adjust stock", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, http.StatusOK, item)
	}
}

func (s *server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := 5
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = n
	}
	items, err := s.catalog.LowStock(r.Context(), threshold)
	if err != nil {
		s.logger.Error("low stock", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	if s.nc == nil {
		writeError(w, http.StatusServiceUnavailable, "sync bus unavailable")
		return
	}
	req := indexer.SyncRequest{Reason: "api"}
	if err := natsutil.Publish(r.Context(), s.nc, indexer.SyncRequestSubject, req); err != nil {
		s.logger.Error("publish sync request", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync requested"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
