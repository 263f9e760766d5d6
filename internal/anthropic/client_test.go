package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GHR600/App-Project-sub003/internal/config"
)

const messagesBody = `{
	"id": "msg_01",
	"model": "claude-3-5-haiku-20241022",
	"content": [{"type": "text", "text": "You sound energized today."}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 42, "output_tokens": 18}
}`

func testRetry() config.RetryConfig {
	return config.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestCreateMessageSuccess(t *testing.T) {
	var gotVersion, gotKey string
	var gotRequest Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotRequest)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messagesBody))
	}))
	defer server.Close()

	client := NewClient("sk-test", server.URL, 2*time.Second, testRetry())
	resp, errCreate := client.CreateMessage(context.Background(), Request{
		Model:     "claude-3-5-haiku-20241022",
		MaxTokens: 1024,
		Messages:  []Message{{Role: "user", Content: "I feel great today!"}},
	})
	if errCreate != nil {
		t.Fatalf("create message: %v", errCreate)
	}
	if resp.Text != "You sound energized today." {
		t.Fatalf("unexpected text: %q", resp.Text)
	}
	if resp.Usage.InputTokens != 42 || resp.Usage.OutputTokens != 18 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
	if resp.StopReason != "end_turn" {
		t.Fatalf("unexpected stop reason: %q", resp.StopReason)
	}
	if gotVersion != "2023-06-01" || gotKey != "sk-test" {
		t.Fatalf("unexpected headers: version=%q key=%q", gotVersion, gotKey)
	}
	if gotRequest.Model != "claude-3-5-haiku-20241022" || len(gotRequest.Messages) != 1 {
		t.Fatalf("unexpected forwarded request: %+v", gotRequest)
	}
}

func TestCreateMessageRetriesOverloaded(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messagesBody))
	}))
	defer server.Close()

	client := NewClient("sk-test", server.URL, 2*time.Second, testRetry())
	resp, errCreate := client.CreateMessage(context.Background(), Request{Model: "m", MaxTokens: 16, Messages: []Message{{Role: "user", Content: "hi"}}})
	if errCreate != nil {
		t.Fatalf("create message after retries: %v", errCreate)
	}
	if resp.Text == "" {
		t.Fatal("expected non-empty text")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestCreateMessageDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "max_tokens required"}}`))
	}))
	defer server.Close()

	client := NewClient("sk-test", server.URL, 2*time.Second, testRetry())
	_, errCreate := client.CreateMessage(context.Background(), Request{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})

	var apiErr *APIError
	if !errors.As(errCreate, &apiErr) {
		t.Fatalf("expected APIError, got %v", errCreate)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Type != "invalid_request_error" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if calls.Load() != 1 {
		t.Fatalf("client errors must not be retried, got %d calls", calls.Load())
	}
}

func TestCreateMessageExhaustsRetries(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("sk-test", server.URL, 2*time.Second, testRetry())
	if _, errCreate := client.CreateMessage(context.Background(), Request{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}}); errCreate == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestCreateMessageUnconfigured(t *testing.T) {
	client := NewClient("", "", time.Second, testRetry())
	if _, errCreate := client.CreateMessage(context.Background(), Request{}); !errors.Is(errCreate, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", errCreate)
	}
}
