package openaiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{APIKey: "  "}); err == nil {
		t.Fatal("expected error for blank API key")
	}
}

func TestEmbed(t *testing.T) {
	var gotModel string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		gotModel = req.Model
		if len(req.Input) != 1 || req.Input[0] != "10mm steel plate (Plates)" {
			t.Errorf("unexpected input %v", req.Input)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.25, -0.5}}},
		})
	})

	vec, err := c.Embed(context.Background(), "10mm steel plate (Plates)")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 || vec[0] != 0.25 {
		t.Errorf("unexpected vector %v", vec)
	}
	if gotModel != DefaultEmbedModel {
		t.Errorf("expected default embed model, got %q", gotModel)
	}
}

func TestEmbed_EmptyData(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})

	if _, err := c.Embed(context.Background(), "anything"); err == nil {
		t.Fatal("expected error for empty embedding data")
	}
}

func TestComplete(t *testing.T) {
	var gotTemp float32
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		gotTemp = req.Temperature
		if req.Model != DefaultChatModel {
			t.Errorf("expected default chat model, got %q", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "[]"}},
			},
		})
	})

	out, err := c.Complete(context.Background(), "recommend something", 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if out != "[]" {
		t.Errorf("unexpected completion %q", out)
	}
	if gotTemp != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", gotTemp)
	}
}

func TestComplete_UpstreamError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	})

	if _, err := c.Complete(context.Background(), "hi", 0.3); err == nil {
		t.Fatal("expected upstream error to surface")
	}
}

func TestRateLimiterHonorsContext(t *testing.T) {
	c, err := New(Config{APIKey: "k", RequestsPerSecond: 0.001, Burst: 1})
	if err != nil {
		t.Fatal(err)
	}
	// Drain the single burst token.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.limiter.Allow()

	if _, err := c.Embed(ctx, "text"); err == nil {
		t.Fatal("expected context error while waiting on limiter")
	}
}
