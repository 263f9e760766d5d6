// Package insight orchestrates journal-entry generations against the
// generative-text provider.
package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GHR600/App-Project-sub003/internal/anthropic"
	"github.com/GHR600/App-Project-sub003/internal/apierr"
	"github.com/GHR600/App-Project-sub003/internal/models"
	"github.com/google/uuid"
)

// MaxContentLength is the content ceiling in characters, enforced before any
// provider call so invalid input never spends quota or tokens.
const MaxContentLength = 10000

const (
	defaultMaxTokens = 1024
	resultSource     = "anthropic"
)

const insightSystemPrompt = "You are a thoughtful journaling companion. " +
	"Read the user's journal entry and offer a short, grounded reflection: " +
	"name the feelings you notice, point out one pattern or theme, and end " +
	"with a gentle question worth sitting with. Keep it under 150 words and " +
	"never give medical advice."

const summarySystemPrompt = "You are a concise journaling assistant. " +
	"Summarise the user's journal entry in two or three sentences, keeping " +
	"their voice and the emotional core of what they wrote. Do not add " +
	"advice or interpretation beyond what the entry supports."

// Turn is one prior conversation exchange threaded into the prompt.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Preferences carries optional focus areas folded into the prompt.
type Preferences struct {
	FocusAreas []string `json:"focusAreas"`
}

// Request describes one generation.
type Request struct {
	Content     string      // Journal text, validated and trimmed here.
	MoodRating  *int        // Optional 1-10 mood rating.
	History     []Turn      // Prior conversation turns, most recent last.
	Preferences Preferences // Focus-area preferences.
	Tier        string      // Subscription tier, drives model choice.
}

// Result is the shaped outcome of a successful generation.
type Result struct {
	ID         string          `json:"id"`         // Freshly generated UUID.
	Content    string          `json:"content"`    // Generated text.
	Confidence float64         `json:"confidence"` // Confidence indicator.
	Source     string          `json:"source"`     // Provider tag.
	Model      string          `json:"model"`      // Model that served the request.
	CreatedAt  time.Time       `json:"createdAt"`  // Creation timestamp.
	Usage      anthropic.Usage `json:"-"`          // Token counts for metering.
	Duration   time.Duration   `json:"-"`          // Provider call duration.
}

// Service builds prompts and invokes the provider exactly once per request.
type Service struct {
	client       *anthropic.Client
	freeModel    string
	premiumModel string
	historyTurns int
}

// NewService constructs an insight Service.
func NewService(client *anthropic.Client, freeModel, premiumModel string, historyTurns int) *Service {
	return &Service{
		client:       client,
		freeModel:    freeModel,
		premiumModel: premiumModel,
		historyTurns: historyTurns,
	}
}

// Generate produces an insight for a journal entry.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	return s.generate(ctx, insightSystemPrompt, req)
}

// Summarise produces a summary for a journal entry.
func (s *Service) Summarise(ctx context.Context, req Request) (*Result, error) {
	return s.generate(ctx, summarySystemPrompt, req)
}

func (s *Service) generate(ctx context.Context, systemPrompt string, req Request) (*Result, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apierr.Validation("journal content is required")
	}
	if length := len([]rune(content)); length > MaxContentLength {
		return nil, apierr.Validation(fmt.Sprintf("journal content exceeds %d characters (got %d)", MaxContentLength, length))
	}

	model := s.modelForTier(req.Tier)
	started := time.Now()
	resp, errCall := s.client.CreateMessage(ctx, anthropic.Request{
		Model:     model,
		MaxTokens: defaultMaxTokens,
		System:    buildSystemPrompt(systemPrompt, req.Preferences),
		Messages:  buildMessages(content, req.MoodRating, req.History, s.historyTurns),
	})
	duration := time.Since(started)
	if errCall != nil {
		return nil, apierr.AIService("generation service unavailable", errCall)
	}

	return &Result{
		ID:         uuid.NewString(),
		Content:    resp.Text,
		Confidence: confidenceFor(resp.StopReason),
		Source:     resultSource,
		Model:      resp.Model,
		CreatedAt:  time.Now().UTC(),
		Usage:      resp.Usage,
		Duration:   duration,
	}, nil
}

// modelForTier picks the cost-effective model for free principals and the
// higher-quality model for premium.
func (s *Service) modelForTier(tier string) string {
	if tier == models.StatusPremium {
		return s.premiumModel
	}
	return s.freeModel
}

// buildSystemPrompt folds focus-area preferences into the base prompt.
func buildSystemPrompt(base string, prefs Preferences) string {
	areas := make([]string, 0, len(prefs.FocusAreas))
	for _, area := range prefs.FocusAreas {
		if trimmed := strings.TrimSpace(area); trimmed != "" {
			areas = append(areas, trimmed)
		}
	}
	if len(areas) == 0 {
		return base
	}
	return base + " Pay particular attention to: " + strings.Join(areas, ", ") + "."
}

// buildMessages threads the trailing history turns ahead of the new entry.
func buildMessages(content string, mood *int, history []Turn, maxTurns int) []anthropic.Message {
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	messages := make([]anthropic.Message, 0, len(history)+1)
	for _, turn := range history {
		role := turn.Role
		if role != "assistant" {
			role = "user"
		}
		text := strings.TrimSpace(turn.Content)
		if text == "" {
			continue
		}
		messages = append(messages, anthropic.Message{Role: role, Content: text})
	}

	entry := content
	if mood != nil {
		rating := *mood
		if rating < 1 {
			rating = 1
		} else if rating > 10 {
			rating = 10
		}
		entry = fmt.Sprintf("%s\n\n(Mood rating: %d/10)", content, rating)
	}
	return append(messages, anthropic.Message{Role: "user", Content: entry})
}

// confidenceFor maps the provider stop reason to a confidence indicator.
// Truncated generations are still returned, just marked lower.
func confidenceFor(stopReason string) float64 {
	if stopReason == "end_turn" {
		return 0.9
	}
	return 0.7
}
