package insight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GHR600/App-Project-sub003/internal/anthropic"
	"github.com/GHR600/App-Project-sub003/internal/apierr"
	"github.com/GHR600/App-Project-sub003/internal/config"
	"github.com/GHR600/App-Project-sub003/internal/models"
	"github.com/google/uuid"
)

const stubResponse = `{
	"id": "msg_01",
	"model": "%MODEL%",
	"content": [{"type": "text", "text": "A calm reflection."}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

// stubProvider counts calls and captures the last forwarded request.
type stubProvider struct {
	calls   atomic.Int64
	lastReq anthropic.Request
	server  *httptest.Server
}

func newStubProvider(t *testing.T) *stubProvider {
	t.Helper()
	stub := &stubProvider{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&stub.lastReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.ReplaceAll(stubResponse, "%MODEL%", stub.lastReq.Model)))
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func newTestService(t *testing.T, stub *stubProvider) *Service {
	t.Helper()
	retry := config.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond}
	client := anthropic.NewClient("sk-test", stub.server.URL, 2*time.Second, retry)
	return NewService(client, "free-model", "premium-model", 6)
}

func TestGenerateRejectsEmptyContentBeforeProviderCall(t *testing.T) {
	stub := newStubProvider(t)
	service := newTestService(t, stub)

	for _, content := range []string{"", "   ", "\n\t "} {
		_, errGenerate := service.Generate(context.Background(), Request{Content: content, Tier: models.StatusFree})
		var apiErr *apierr.Error
		if !errors.As(errGenerate, &apiErr) || apiErr.Code != apierr.CodeValidationError {
			t.Fatalf("content %q: expected validation error, got %v", content, errGenerate)
		}
	}
	if stub.calls.Load() != 0 {
		t.Fatalf("validation failures must not reach the provider, got %d calls", stub.calls.Load())
	}
}

func TestGenerateRejectsOversizedContentBeforeProviderCall(t *testing.T) {
	stub := newStubProvider(t)
	service := newTestService(t, stub)

	oversized := strings.Repeat("a", MaxContentLength+1)
	_, errGenerate := service.Generate(context.Background(), Request{Content: oversized, Tier: models.StatusFree})
	var apiErr *apierr.Error
	if !errors.As(errGenerate, &apiErr) || apiErr.Code != apierr.CodeValidationError {
		t.Fatalf("expected validation error, got %v", errGenerate)
	}
	if stub.calls.Load() != 0 {
		t.Fatalf("validation failures must not reach the provider, got %d calls", stub.calls.Load())
	}

	// Content exactly at the ceiling is accepted.
	if _, errAtLimit := service.Generate(context.Background(), Request{Content: strings.Repeat("a", MaxContentLength), Tier: models.StatusFree}); errAtLimit != nil {
		t.Fatalf("content at the ceiling should pass: %v", errAtLimit)
	}
}

func TestGenerateSelectsModelByTier(t *testing.T) {
	stub := newStubProvider(t)
	service := newTestService(t, stub)

	if _, errFree := service.Generate(context.Background(), Request{Content: "entry", Tier: models.StatusFree}); errFree != nil {
		t.Fatalf("free generate: %v", errFree)
	}
	if stub.lastReq.Model != "free-model" {
		t.Fatalf("expected free-model, got %s", stub.lastReq.Model)
	}

	if _, errPremium := service.Generate(context.Background(), Request{Content: "entry", Tier: models.StatusPremium}); errPremium != nil {
		t.Fatalf("premium generate: %v", errPremium)
	}
	if stub.lastReq.Model != "premium-model" {
		t.Fatalf("expected premium-model, got %s", stub.lastReq.Model)
	}
}

func TestGenerateShapesResult(t *testing.T) {
	stub := newStubProvider(t)
	service := newTestService(t, stub)

	result, errGenerate := service.Generate(context.Background(), Request{Content: "I feel great today!", Tier: models.StatusFree})
	if errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if _, errParse := uuid.Parse(result.ID); errParse != nil {
		t.Fatalf("result ID is not a UUID: %q", result.ID)
	}
	if result.Content != "A calm reflection." {
		t.Fatalf("unexpected content: %q", result.Content)
	}
	if result.Source != "anthropic" {
		t.Fatalf("unexpected source: %q", result.Source)
	}
	if result.Confidence != 0.9 {
		t.Fatalf("end_turn should map to 0.9 confidence, got %v", result.Confidence)
	}
	if result.CreatedAt.IsZero() {
		t.Fatal("expected creation timestamp")
	}
	if result.Usage.InputTokens != 10 || result.Usage.OutputTokens != 5 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
}

func TestGenerateThreadsHistoryAndMood(t *testing.T) {
	stub := newStubProvider(t)
	service := newTestService(t, stub)

	history := []Turn{
		{Role: "user", Content: "Yesterday was rough."},
		{Role: "assistant", Content: "That sounds hard."},
	}
	mood := 8
	if _, errGenerate := service.Generate(context.Background(), Request{
		Content:    "Today went better.",
		MoodRating: &mood,
		History:    history,
		Tier:       models.StatusFree,
	}); errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}

	messages := stub.lastReq.Messages
	if len(messages) != 3 {
		t.Fatalf("expected 2 history turns + entry, got %d messages", len(messages))
	}
	if messages[1].Role != "assistant" {
		t.Fatalf("expected assistant turn preserved, got %s", messages[1].Role)
	}
	last := messages[len(messages)-1]
	if !strings.Contains(last.Content, "Today went better.") || !strings.Contains(last.Content, "8/10") {
		t.Fatalf("entry missing content or mood: %q", last.Content)
	}
}

func TestGenerateTruncatesHistoryToConfiguredTurns(t *testing.T) {
	stub := newStubProvider(t)
	retry := config.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond}
	client := anthropic.NewClient("sk-test", stub.server.URL, 2*time.Second, retry)
	service := NewService(client, "free-model", "premium-model", 2)

	history := []Turn{
		{Role: "user", Content: "turn 1"},
		{Role: "assistant", Content: "turn 2"},
		{Role: "user", Content: "turn 3"},
	}
	if _, errGenerate := service.Generate(context.Background(), Request{Content: "entry", History: history, Tier: models.StatusFree}); errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}

	messages := stub.lastReq.Messages
	if len(messages) != 3 {
		t.Fatalf("expected trailing 2 turns + entry, got %d", len(messages))
	}
	if messages[0].Content != "turn 2" {
		t.Fatalf("expected oldest turn dropped, got %q first", messages[0].Content)
	}
}

func TestGenerateFoldsFocusAreasIntoSystemPrompt(t *testing.T) {
	stub := newStubProvider(t)
	service := newTestService(t, stub)

	prefs := Preferences{FocusAreas: []string{"gratitude", " sleep "}}
	if _, errGenerate := service.Generate(context.Background(), Request{Content: "entry", Preferences: prefs, Tier: models.StatusFree}); errGenerate != nil {
		t.Fatalf("generate: %v", errGenerate)
	}
	if !strings.Contains(stub.lastReq.System, "gratitude, sleep") {
		t.Fatalf("system prompt missing focus areas: %q", stub.lastReq.System)
	}
}

func TestGenerateMapsProviderFailureToAIServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	retry := config.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond}
	client := anthropic.NewClient("sk-test", server.URL, 2*time.Second, retry)
	service := NewService(client, "free-model", "premium-model", 6)

	_, errGenerate := service.Generate(context.Background(), Request{Content: "entry", Tier: models.StatusFree})
	var apiErr *apierr.Error
	if !errors.As(errGenerate, &apiErr) || apiErr.Code != apierr.CodeAIServiceError {
		t.Fatalf("expected AI service error, got %v", errGenerate)
	}
}

func TestSummariseUsesSummaryPrompt(t *testing.T) {
	stub := newStubProvider(t)
	service := newTestService(t, stub)

	if _, errSummarise := service.Summarise(context.Background(), Request{Content: "entry", Tier: models.StatusFree}); errSummarise != nil {
		t.Fatalf("summarise: %v", errSummarise)
	}
	if !strings.Contains(stub.lastReq.System, "Summarise") {
		t.Fatalf("expected summary prompt, got %q", stub.lastReq.System)
	}
}
