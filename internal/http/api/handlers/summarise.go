package handlers

import (
	"net/http"
	"time"

	"github.com/GHR600/App-Project-sub003/internal/apierr"
	relayhttp "github.com/GHR600/App-Project-sub003/internal/http"
	"github.com/GHR600/App-Project-sub003/internal/insight"
	"github.com/GHR600/App-Project-sub003/internal/models"
	"github.com/GHR600/App-Project-sub003/internal/subscription"
	"github.com/GHR600/App-Project-sub003/internal/usage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SummariseHandler handles journal summarisation.
type SummariseHandler struct {
	gate        *subscription.Service
	insights    *insight.Service
	recorder    *usage.Recorder
	development bool
}

// NewSummariseHandler constructs a SummariseHandler.
func NewSummariseHandler(gate *subscription.Service, insights *insight.Service, recorder *usage.Recorder, development bool) *SummariseHandler {
	return &SummariseHandler{gate: gate, insights: insights, recorder: recorder, development: development}
}

// summariseRequest defines the request body for summarisation.
type summariseRequest struct {
	JournalContent      string         `json:"journalContent"`
	ConversationHistory []insight.Turn `json:"conversationHistory"`
}

// Summarise generates a summary of a journal entry. Summaries do not consume
// free-tier quota; the tier is read only to pick the model.
func (h *SummariseHandler) Summarise(c *gin.Context) {
	started := time.Now()

	principal, ok := getPrincipal(c)
	if !ok {
		relayhttp.AbortWithError(c, apierr.Unauthenticated("authentication required"), h.development)
		return
	}

	var body summariseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		relayhttp.AbortWithError(c, apierr.Validation("invalid json body"), h.development)
		return
	}

	tier := models.StatusFree
	if sub, errGet := h.gate.Get(c.Request.Context(), principal.ID); errGet == nil {
		tier = sub.Status
	} else {
		log.WithError(errGet).WithField("user_id", principal.ID).Warn("tier lookup failed, using free model")
	}

	result, errSummarise := h.insights.Summarise(c.Request.Context(), insight.Request{
		Content: body.JournalContent,
		History: body.ConversationHistory,
		Tier:    tier,
	})
	if errSummarise != nil {
		relayhttp.AbortWithError(c, errSummarise, h.development)
		return
	}

	h.recorder.RecordAsync(usage.Entry{
		UserID:       principal.ID,
		RequestID:    relayhttp.RequestID(c),
		Model:        result.Model,
		Source:       models.SourceSummary,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		Duration:     result.Duration,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": gin.H{
			"id":         result.ID,
			"content":    result.Content,
			"confidence": result.Confidence,
			"source":     result.Source,
			"model":      result.Model,
			"createdAt":  result.CreatedAt.Format(time.RFC3339),
		},
		"debug": gin.H{
			"requestId": relayhttp.RequestID(c),
			"duration":  time.Since(started).Milliseconds(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
