package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jobreach/jobreach/internal/observability"
)

func TestNewClaudeClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClaudeClient(Config{})
	if err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestClaudeClient_Complete(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++

		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}

		resp := Response{
			Content: []ContentBlock{{Type: "text", Text: "email"}},
			Usage:   Usage{InputTokens: 10, OutputTokens: 2},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewClaudeClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		RateLimitRPM: 6000,
		Caching:      true,
	})
	if err != nil {
		t.Fatalf("NewClaudeClient() error = %v", err)
	}

	text, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "email" {
		t.Errorf("Complete() = %v, want email", text)
	}

	// Second identical call is served from cache
	text, err = client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "email" {
		t.Errorf("cached Complete() = %v, want email", text)
	}
	if requests != 1 {
		t.Errorf("server saw %d requests, want 1", requests)
	}

	m := client.GetMetrics()
	if m.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", m.CacheHits)
	}
}

func TestClaudeClient_ExportsRequestMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := Response{
			Content: []ContentBlock{{Type: "text", Text: "email"}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	metrics := observability.NewMetrics("llmtest")
	client, err := NewClaudeClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		Model:        "claude-test",
		RateLimitRPM: 6000,
		Caching:      true,
		Metrics:      metrics,
	})
	if err != nil {
		t.Fatalf("NewClaudeClient() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := client.Complete(context.Background(), "system", "user"); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
	}

	if got := testutil.ToFloat64(metrics.ClaudeRequestsTotal.WithLabelValues("claude-test", "success")); got != 1 {
		t.Errorf("requests recorded = %v, want 1 (second call cached)", got)
	}
	if got := testutil.ToFloat64(metrics.ClaudeCacheHits); got != 1 {
		t.Errorf("cache hits recorded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ClaudeCacheMisses); got != 1 {
		t.Errorf("cache misses recorded = %v, want 1", got)
	}
}

func TestClaudeClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClaudeClient(Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		RateLimitRPM: 6000,
	})
	if err != nil {
		t.Fatalf("NewClaudeClient() error = %v", err)
	}

	if _, err := client.Complete(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestCache_Expiry(t *testing.T) {
	cache := NewCache()

	cache.Set("key", []byte("value"), 10*time.Millisecond)
	if _, ok := cache.Get("key"); !ok {
		t.Fatal("expected cache hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get("key"); ok {
		t.Fatal("expected cache miss after expiry")
	}
}

func TestCacheKey_Distinct(t *testing.T) {
	client, err := NewClaudeClient(Config{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClaudeClient() error = %v", err)
	}

	a := client.cacheKey("sys", "user-a")
	b := client.cacheKey("sys", "user-b")
	if a == b {
		t.Error("distinct prompts should produce distinct cache keys")
	}
}
