// Package api wires the service's JSON endpoints.
package api

import (
	"github.com/GHR600/App-Project-sub003/internal/anthropic"
	"github.com/GHR600/App-Project-sub003/internal/config"
	relayhttp "github.com/GHR600/App-Project-sub003/internal/http"
	"github.com/GHR600/App-Project-sub003/internal/http/api/handlers"
	"github.com/GHR600/App-Project-sub003/internal/identity"
	"github.com/GHR600/App-Project-sub003/internal/insight"
	"github.com/GHR600/App-Project-sub003/internal/ratelimit"
	"github.com/GHR600/App-Project-sub003/internal/subscription"
	"github.com/GHR600/App-Project-sub003/internal/usage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps holds the injected dependencies for route handlers.
type Deps struct {
	Cfg       *config.Config        // Runtime configuration.
	DB        *gorm.DB              // Subscription store handle.
	Identity  *identity.Client      // Bearer token verifier.
	Gate      *subscription.Service // Tier/quota gate.
	Insights  *insight.Service      // Generation orchestrator.
	Recorder  *usage.Recorder       // Insight log recorder.
	Anthropic *anthropic.Client     // Provider client, for health reporting.
	Limiter   ratelimit.Limiter     // Fixed-window rate limiter.
	Version   string                // Service version string.
}

// RegisterRoutes registers public and authenticated routes.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	development := deps.Cfg.IsDevelopment()

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Anthropic, deps.Cfg.QuotaPolicy, deps.Version)
	r.GET("/health", healthHandler.Health)

	authed := r.Group("/api")
	authed.Use(
		relayhttp.RateLimitMiddleware(deps.Limiter, development),
		relayhttp.AuthMiddleware(deps.Identity, development),
	)

	insightHandler := handlers.NewInsightHandler(deps.Gate, deps.Insights, deps.Recorder, development)
	usageHandler := handlers.NewUsageStatsHandler(deps.Gate, deps.Recorder, deps.Cfg.FreeTierLimit, development)
	summariseHandler := handlers.NewSummariseHandler(deps.Gate, deps.Insights, deps.Recorder, development)

	ai := authed.Group("/ai")
	ai.POST("/insights", insightHandler.Create)
	ai.GET("/usage", usageHandler.Stats)
	ai.GET("/health", healthHandler.AIHealth)

	authed.POST("/summarise", summariseHandler.Summarise)
}
