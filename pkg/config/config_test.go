package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OpenAI.EmbedModel != "text-embedding-3-large" {
		t.Errorf("unexpected embed model %q", cfg.OpenAI.EmbedModel)
	}
	if cfg.OpenAI.ChatModel != "gpt-4.1" {
		t.Errorf("unexpected chat model %q", cfg.OpenAI.ChatModel)
	}
	if cfg.Sync.BatchSize != 50 {
		t.Errorf("unexpected batch size %d", cfg.Sync.BatchSize)
	}
}

func TestLoad_PartialFileBackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
qdrant:
  addr: qdrant.internal:6334
server:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Qdrant.Addr != "qdrant.internal:6334" {
		t.Errorf("file value not honored: %q", cfg.Qdrant.Addr)
	}
	if cfg.Qdrant.Collection != "inventory" {
		t.Errorf("default not backfilled: %q", cfg.Qdrant.Collection)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("file value not honored: %q", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout() != 10*time.Second {
		t.Errorf("default not backfilled: %v", cfg.Server.ShutdownTimeout())
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("qdrant: [not: a: map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOpenAIConfig_APIKey(t *testing.T) {
	c := OpenAIConfig{APIKeyEnv: "TEST_INVEX_KEY"}

	if _, err := c.APIKey(); err == nil {
		t.Fatal("expected error when env var unset")
	}

	t.Setenv("TEST_INVEX_KEY", "sk-test")
	key, err := c.APIKey()
	if err != nil {
		t.Fatal(err)
	}
	if key != "sk-test" {
		t.Errorf("unexpected key %q", key)
	}
}
