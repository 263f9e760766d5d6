package handlers

import (
	"net/http"
	"time"

	"github.com/GHR600/App-Project-sub003/internal/anthropic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const serviceName = "journal-ai-backend"

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db          *gorm.DB
	anthropic   *anthropic.Client
	quotaPolicy string
	version     string
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB, client *anthropic.Client, quotaPolicy, version string) *HealthHandler {
	return &HealthHandler{db: db, anthropic: client, quotaPolicy: quotaPolicy, version: version}
}

// Health reports liveness. Public, side-effect free, and safe to poll.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"status":              "ok",
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
		"service":             serviceName,
		"anthropicConfigured": h.anthropic.Configured(),
		"version":             h.version,
	})
}

// AIHealth reports the AI subsystem's dependencies for authenticated callers.
func (h *HealthHandler) AIHealth(c *gin.Context) {
	databaseStatus := "ok"
	if sqlDB, errDB := h.db.DB(); errDB != nil {
		databaseStatus = "error"
	} else if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
		databaseStatus = "error"
	}

	status := "ok"
	if databaseStatus != "ok" || !h.anthropic.Configured() {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  status,
		"services": gin.H{
			"database":  databaseStatus,
			"anthropic": gin.H{"configured": h.anthropic.Configured()},
		},
		"quotaPolicy": h.quotaPolicy,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
