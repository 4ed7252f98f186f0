// Package recommend turns a customer's free-text request into a ranked,
// stock-filtered, model-validated list of inventory suggestions. Every path
// through the pipeline returns a uniform Outcome; nothing escapes to the
// caller as an unhandled error.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/invex-ai/invex/engine/domain"
	"github.com/invex-ai/invex/engine/semantic"
	"github.com/invex-ai/invex/pkg/fn"
)

// Failure messages surfaced to callers.
const (
	MsgInvalidRequest = "Invalid recommendation request"
	MsgEmbedFailed    = "Failed to generate query embedding"
	MsgQueryFailed    = "Error querying inventory index"
	MsgNoMatches      = "No relevant inventory items found"
	MsgModelFailed    = "Failed to get model response"
	MsgParseFailed    = "Could not parse AI recommendation response."
)

var (
	errEmbedQuery = errors.New("embed query")
	errQueryIndex = errors.New("query index")
)

// Embedder turns text into a fixed-length vector. It must be the same model
// the indexer used, or scores are meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher performs stock-filtered nearest-neighbor search.
type Searcher interface {
	SearchInStock(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchMatch, error)
}

// Completer invokes the language model.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Options configures the recommendation pipeline.
type Options struct {
	TopK        int
	Temperature float32
}

// DefaultOptions returns the production policy: ten candidates, sampling low
// enough to be near-deterministic.
func DefaultOptions() Options {
	return Options{
		TopK:        10,
		Temperature: 0.3,
	}
}

// Service is the recommendation pipeline.
type Service struct {
	embed  Embedder
	search Searcher
	chat   Completer
	opts   Options
	logger *slog.Logger
}

// New creates a Service.
func New(embed Embedder, search Searcher, chat Completer, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	return &Service{embed: embed, search: search, chat: chat, opts: opts, logger: logger}
}

// Retrieve embeds the query and fetches the top-K in-stock candidates,
// discarding matches that carry no usable item number. Order follows the
// index's own descending-similarity ranking.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]semantic.SearchMatch, error) {
	vec, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errEmbedQuery, err)
	}

	matches, err := s.search.SearchInStock(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errQueryIndex, err)
	}

	return fn.Filter(matches, func(m semantic.SearchMatch) bool {
		return m.ItemNo != ""
	}), nil
}

// Recommend runs the full pipeline: validate → retrieve → prompt → complete
// → parse. The returned Outcome is the only way failures surface.
func (s *Service) Recommend(ctx context.Context, req domain.RecommendRequest) domain.Outcome {
	if err := domain.ValidateRecommendRequest(req); err != nil {
		return failure(MsgInvalidRequest, err)
	}

	retrieve := fn.TracedStage("recommend.retrieve",
		func(ctx context.Context, query string) fn.Result[[]semantic.SearchMatch] {
			return fn.FromPair(s.Retrieve(ctx, query, s.opts.TopK))
		})
	matches, err := retrieve(ctx, req.RequestText).Unwrap()
	if err != nil {
		s.logger.Error("recommend retrieval failed", "error", err)
		switch {
		case errors.Is(err, errEmbedQuery):
			return failure(MsgEmbedFailed, err)
		default:
			return failure(MsgQueryFailed, err)
		}
	}

	if len(matches) == 0 {
		s.logger.Warn("recommend found no candidates", "client", req.Client.ClientID)
		out := failure(MsgNoMatches, nil)
		out.Recommendations = []domain.RecommendedItem{}
		return out
	}

	complete := fn.TracedStage("recommend.complete",
		func(ctx context.Context, prompt string) fn.Result[string] {
			return fn.FromPair(s.chat.Complete(ctx, prompt, s.opts.Temperature))
		})
	raw, err := complete(ctx, BuildPrompt(req.Client, req.RequestText, matches)).Unwrap()
	if err != nil {
		s.logger.Error("recommend completion failed", "error", err)
		return failure(MsgModelFailed, err)
	}

	items, err := ParseRecommendations(raw)
	if err != nil {
		s.logger.Warn("recommend response unparseable", "error", err)
		out := failure(MsgParseFailed, err)
		out.RawResponse = raw
		return out
	}

	return domain.Outcome{
		Success:         true,
		Recommendations: restrictToCandidates(items, matches),
	}
}

// restrictToCandidates drops any item the model invented outside the
// candidate set and enforces the result cap. The prompt forbids both, but
// the contract does not rely on the model obeying.
func restrictToCandidates(items []domain.RecommendedItem, matches []semantic.SearchMatch) []domain.RecommendedItem {
	candidates := make(map[string]bool, len(matches))
	for _, m := range matches {
		candidates[m.ItemNo] = true
	}

	out := make([]domain.RecommendedItem, 0, len(items))
	for _, item := range items {
		if !candidates[item.ItemNo] {
			continue
		}
		out = append(out, item)
		if len(out) == domain.MaxRecommendations {
			break
		}
	}
	return out
}

func failure(msg string, err error) domain.Outcome {
	out := domain.Outcome{Message: msg}
	if err != nil {
		out.ErrorDetail = err.Error()
	}
	return out
}
