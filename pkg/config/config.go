// Package config loads the application configuration from a YAML file,
// with environment-variable indirection for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig configures the embedding and chat models. The API key is
// never stored in the file; APIKeyEnv names the environment variable that
// holds it.
type OpenAIConfig struct {
	APIKeyEnv         string  `yaml:"api_key_env"`
	BaseURL           string  `yaml:"base_url"`
	EmbedModel        string  `yaml:"embed_model"`
	ChatModel         string  `yaml:"chat_model"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// APIKey resolves the key from the configured environment variable.
func (c OpenAIConfig) APIKey() (string, error) {
	key := os.Getenv(c.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("missing API key in env %s", c.APIKeyEnv)
	}
	return key, nil
}

// QdrantConfig contains connection details for the vector index.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

// CatalogConfig locates the inventory database.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// NATSConfig configures the message bus connection.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
}

// ShutdownTimeout returns the graceful-shutdown window as a duration.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

// SyncConfig configures index synchronization runs.
type SyncConfig struct {
	BatchSize    int `yaml:"batch_size"`
	EmbedWorkers int `yaml:"embed_workers"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Qdrant  QdrantConfig  `yaml:"qdrant"`
	Catalog CatalogConfig `yaml:"catalog"`
	NATS    NATSConfig    `yaml:"nats"`
	Server  ServerConfig  `yaml:"server"`
	Sync    SyncConfig    `yaml:"sync"`
}

// Load reads the config from path. A missing file yields the defaults; a
// present but malformed file is an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func defaultConfig() AppConfig {
	return AppConfig{
		OpenAI: OpenAIConfig{
			APIKeyEnv:  "OPENAI_API_KEY",
			EmbedModel: "text-embedding-3-large",
			ChatModel:  "gpt-4.1",
		},
		Qdrant: QdrantConfig{
			Addr:       "localhost:6334",
			Collection: "inventory",
		},
		Catalog: CatalogConfig{
			Path: "data/inventory.db",
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Server: ServerConfig{
			Addr:                ":8080",
			ShutdownTimeoutSecs: 10,
		},
		Sync: SyncConfig{
			BatchSize:    50,
			EmbedWorkers: 8,
		},
	}
}

// applyDefaults backfills fields the file left empty, so a partial config
// still yields a runnable setup.
func applyDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = def.OpenAI.APIKeyEnv
	}
	if cfg.OpenAI.EmbedModel == "" {
		cfg.OpenAI.EmbedModel = def.OpenAI.EmbedModel
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = def.OpenAI.ChatModel
	}
	if cfg.Qdrant.Addr == "" {
		cfg.Qdrant.Addr = def.Qdrant.Addr
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = def.Qdrant.Collection
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = def.Catalog.Path
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = def.NATS.URL
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.ShutdownTimeoutSecs <= 0 {
		cfg.Server.ShutdownTimeoutSecs = def.Server.ShutdownTimeoutSecs
	}
	if cfg.Sync.BatchSize <= 0 {
		cfg.Sync.BatchSize = def.Sync.BatchSize
	}
	if cfg.Sync.EmbedWorkers <= 0 {
		cfg.Sync.EmbedWorkers = def.Sync.EmbedWorkers
	}
}
