// Package openaiclient wraps the OpenAI API behind the two narrow operations
// the engine needs: embedding a single text and completing a single prompt.
// All calls pass through a shared rate limiter.
package openaiclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Defaults for the production deployment.
const (
	DefaultEmbedModel = "text-embedding-3-large"
	DefaultChatModel  = "gpt-4.1"

	// EmbedDimensions is the vector width of the default embedding model.
	// The vector collection must be created with the same width.
	EmbedDimensions = 3072
)

// Config configures the client.
type Config struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	ChatModel  string

	// RequestsPerSecond caps outbound call rate across embeds and chat
	// completions combined. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// Client is a rate-limited OpenAI client.
type Client struct {
	api        *openai.Client
	embedModel openai.EmbeddingModel
	chatModel  string
	limiter    *rate.Limiter
}

// New creates a Client. The API key is required; every other field falls
// back to a production default.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openaiclient: API key is required")
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		embedModel: openai.EmbeddingModel(cfg.EmbedModel),
		chatModel:  cfg.ChatModel,
		limiter:    limiter,
	}, nil
}

// Embed returns the embedding vector for one text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embedModel,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response contained no data")
	}
	return resp.Data[0].Embedding, nil
}

// Complete sends one user prompt and returns the model's text reply.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
