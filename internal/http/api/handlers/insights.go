package handlers

import (
	"net/http"

	"github.com/GHR600/App-Project-sub003/internal/apierr"
	relayhttp "github.com/GHR600/App-Project-sub003/internal/http"
	"github.com/GHR600/App-Project-sub003/internal/insight"
	"github.com/GHR600/App-Project-sub003/internal/models"
	"github.com/GHR600/App-Project-sub003/internal/subscription"
	"github.com/GHR600/App-Project-sub003/internal/usage"
	"github.com/gin-gonic/gin"
)

// InsightHandler handles AI insight generation.
type InsightHandler struct {
	gate        *subscription.Service
	insights    *insight.Service
	recorder    *usage.Recorder
	development bool
}

// NewInsightHandler constructs an InsightHandler.
func NewInsightHandler(gate *subscription.Service, insights *insight.Service, recorder *usage.Recorder, development bool) *InsightHandler {
	return &InsightHandler{gate: gate, insights: insights, recorder: recorder, development: development}
}

// insightRequest defines the request body for insight generation.
type insightRequest struct {
	Content     string              `json:"content"`
	MoodRating  *int                `json:"moodRating"`
	Preferences insight.Preferences `json:"preferences"`
}

// Create generates an insight for a journal entry, enforcing the free-tier
// quota before the provider call and metering usage after it.
func (h *InsightHandler) Create(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		relayhttp.AbortWithError(c, apierr.Unauthenticated("authentication required"), h.development)
		return
	}

	var body insightRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		relayhttp.AbortWithError(c, apierr.Validation("invalid json body"), h.development)
		return
	}

	perm, errGate := h.gate.CanGenerate(c.Request.Context(), principal.ID)
	if errGate != nil {
		relayhttp.AbortWithError(c, apierr.Internal(errGate), h.development)
		return
	}
	if !perm.Allowed {
		relayhttp.AbortWithError(c, apierr.Subscription("free tier limit reached, upgrade to premium for unlimited insights"), h.development)
		return
	}

	result, errGenerate := h.insights.Generate(c.Request.Context(), insight.Request{
		Content:     body.Content,
		MoodRating:  body.MoodRating,
		Preferences: body.Preferences,
		Tier:        perm.Tier,
	})
	if errGenerate != nil {
		relayhttp.AbortWithError(c, errGenerate, h.development)
		return
	}

	if perm.Tier == models.StatusFree {
		h.gate.RecordUsageAsync(principal.ID)
	}
	detail := map[string]any{}
	if body.MoodRating != nil {
		detail["moodRating"] = *body.MoodRating
	}
	if len(body.Preferences.FocusAreas) > 0 {
		detail["focusAreas"] = body.Preferences.FocusAreas
	}
	h.recorder.RecordAsync(usage.Entry{
		UserID:       principal.ID,
		RequestID:    relayhttp.RequestID(c),
		Model:        result.Model,
		Source:       models.SourceInsights,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		Duration:     result.Duration,
		Detail:       detail,
	})

	response := gin.H{
		"success": true,
		"insight": result,
		"usage": gin.H{
			"tier":   perm.Tier,
			"reason": perm.Reason,
		},
	}
	if perm.Remaining != nil {
		remaining := *perm.Remaining - 1
		if remaining < 0 {
			remaining = 0
		}
		response["usage"].(gin.H)["remaining"] = remaining
	}
	c.JSON(http.StatusOK, response)
}
