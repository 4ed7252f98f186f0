// Package indexer synchronizes the inventory catalog into the vector index.
// It embeds each item's text representation and upserts the resulting vectors
// in fixed-size batches, tolerating per-item and per-batch failures without
// aborting the run.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/invex-ai/invex/engine/domain"
	"github.com/invex-ai/invex/engine/semantic"
	"github.com/invex-ai/invex/pkg/fn"
)

// NATS subjects for driving and observing sync runs.
const (
	SyncRequestSubject   = "invex.sync.request"
	SyncCompletedSubject = "invex.sync.completed"
)

// SyncRequest asks a listening synchronizer to run.
type SyncRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Catalog supplies the full inventory snapshot.
type Catalog interface {
	FetchAll(ctx context.Context) ([]domain.InventoryItem, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorUpserter stores item vectors into the index.
type VectorUpserter interface {
	Upsert(ctx context.Context, records []semantic.ItemVector) error
}

// Options configures a sync run.
type Options struct {
	BatchSize    int
	EmbedWorkers int
	Retry        fn.RetryOpts
}

// DefaultOptions returns the production sync policy: batches of 50, upserts
// retried three times with a flat two-second delay.
func DefaultOptions() Options {
	return Options{
		BatchSize:    50,
		EmbedWorkers: 8,
		Retry:        fn.DefaultRetry,
	}
}

// Summary reports one sync run. Success is false only when the catalog
// itself could not be read; batch and item failures are reported in the
// counters without failing the run.
type Summary struct {
	Success       bool `json:"success"`
	Upserted      int  `json:"upserted"`
	Total         int  `json:"total"`
	Dropped       int  `json:"dropped,omitempty"`
	FailedBatches int  `json:"failedBatches,omitempty"`
}

// Service runs catalog-to-index synchronization.
type Service struct {
	catalog Catalog
	embed   Embedder
	store   VectorUpserter
	opts    Options
	logger  *slog.Logger
}

// New creates a Service.
func New(catalog Catalog, embed Embedder, store VectorUpserter, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.EmbedWorkers <= 0 {
		opts.EmbedWorkers = DefaultOptions().EmbedWorkers
	}
	return &Service{catalog: catalog, embed: embed, store: store, opts: opts, logger: logger}
}

// PointID derives the deterministic vector point ID for a catalog item.
// The same item number always maps to the same UUID, so re-syncing an
// unchanged catalog overwrites points in place.
func PointID(itemNo string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("invex:item:"+itemNo)).String()
}

// Run embeds and upserts the full catalog snapshot. Batches are processed
// strictly in sequence; items within a batch embed concurrently. Only a
// catalog fetch failure (or a misconfigured service) is fatal.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	if s.catalog == nil || s.embed == nil || s.store == nil {
		return Summary{}, errors.New("indexer: catalog, embedder, and vector store are required")
	}

	items, err := s.catalog.FetchAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("indexer: fetch catalog: %w", err)
	}

	sum := Summary{Success: true, Total: len(items)}
	batches := fn.Chunk(items, s.opts.BatchSize)
	s.logger.Info("sync start", "items", len(items), "batches", len(batches))

	for bi, batch := range batches {
		records := s.embedBatch(ctx, batch, &sum)
		if len(records) == 0 {
			s.logger.Warn("sync batch produced no vectors", "batch", bi+1)
			continue
		}

		result := fn.Retry(ctx, s.opts.Retry, func(ctx context.Context) fn.Result[int] {
			if err := s.store.Upsert(ctx, records); err != nil {
				return fn.Err[int](err)
			}
			return fn.Ok(len(records))
		})
		if result.IsErr() {
			_, upErr := result.Unwrap()
			sum.FailedBatches++
			s.logger.Error("sync batch upsert abandoned",
				"batch", bi+1,
				"attempts", s.opts.Retry.MaxAttempts,
				"error", upErr,
			)
			continue
		}

		sum.Upserted += len(records)
		s.logger.Info("sync batch upserted", "batch", bi+1, "upserted", sum.Upserted, "total", sum.Total)
	}

	s.logger.Info("sync done",
		"upserted", sum.Upserted,
		"total", sum.Total,
		"dropped", sum.Dropped,
		"failed_batches", sum.FailedBatches,
	)
	return sum, nil
}

// embedBatch embeds every item of one batch concurrently. Each embedding
// call carries its originating item, so item-to-vector pairing survives
// out-of-order completion. Items whose embedding fails are dropped and
// counted; the batch proceeds with the rest.
func (s *Service) embedBatch(ctx context.Context, batch []domain.InventoryItem, sum *Summary) []semantic.ItemVector {
	results := fn.ParMapResult(batch, s.opts.EmbedWorkers, func(item domain.InventoryItem) fn.Result[semantic.ItemVector] {
		vec, err := s.embed.Embed(ctx, item.EmbedText())
		if err != nil {
			return fn.Err[semantic.ItemVector](fmt.Errorf("embed item %s: %w", item.ItemNo, err))
		}
		return fn.Ok(semantic.ItemVector{
			ID:        PointID(item.ItemNo),
			Embedding: vec,
			Item:      item,
		})
	})

	records := make([]semantic.ItemVector, 0, len(results))
	for _, r := range results {
		rec, err := r.Unwrap()
		if err != nil {
			sum.Dropped++
			s.logger.Warn("sync item dropped", "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}
