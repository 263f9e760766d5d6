package handlers

import (
	"net/http"

	"github.com/GHR600/App-Project-sub003/internal/apierr"
	relayhttp "github.com/GHR600/App-Project-sub003/internal/http"
	"github.com/GHR600/App-Project-sub003/internal/subscription"
	"github.com/GHR600/App-Project-sub003/internal/usage"
	"github.com/gin-gonic/gin"
)

// UsageStatsHandler serves per-principal usage statistics.
type UsageStatsHandler struct {
	gate        *subscription.Service
	recorder    *usage.Recorder
	limit       int
	development bool
}

// NewUsageStatsHandler constructs a UsageStatsHandler.
func NewUsageStatsHandler(gate *subscription.Service, recorder *usage.Recorder, freeTierLimit int, development bool) *UsageStatsHandler {
	return &UsageStatsHandler{gate: gate, recorder: recorder, limit: freeTierLimit, development: development}
}

// Stats returns the caller's tier, quota standing, and recent generation
// counts.
func (h *UsageStatsHandler) Stats(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		relayhttp.AbortWithError(c, apierr.Unauthenticated("authentication required"), h.development)
		return
	}

	sub, errGet := h.gate.Get(c.Request.Context(), principal.ID)
	if errGet != nil {
		relayhttp.AbortWithError(c, apierr.Internal(errGet), h.development)
		return
	}

	periods, errStats := h.recorder.Stats(c.Request.Context(), principal.ID)
	if errStats != nil {
		relayhttp.AbortWithError(c, apierr.Internal(errStats), h.development)
		return
	}

	usageBody := gin.H{
		"tier":    sub.Status,
		"periods": periods,
	}
	if sub.IsPremium() {
		usageBody["used"] = sub.FreeInsightsUsed
		usageBody["limit"] = nil
		usageBody["remaining"] = nil
		usageBody["canGenerate"] = true
	} else {
		remaining := h.limit - sub.FreeInsightsUsed
		if remaining < 0 {
			remaining = 0
		}
		usageBody["used"] = sub.FreeInsightsUsed
		usageBody["limit"] = h.limit
		usageBody["remaining"] = remaining
		usageBody["canGenerate"] = remaining > 0
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"usage":   usageBody,
	})
}
