// Package http provides the shared middleware and error envelope for the
// service's JSON API.
package http

import (
	"time"

	"github.com/GHR600/App-Project-sub003/internal/apierr"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestIDKey is the gin context key holding the request correlation ID.
const RequestIDKey = "requestID"

// errorEnvelope is the uniform error response body.
type errorEnvelope struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Debug   map[string]any `json:"debug,omitempty"`
}

// AbortWithError writes the uniform error envelope and stops the handler
// chain. Internal causes are logged but only exposed in development mode.
func AbortWithError(c *gin.Context, err error, development bool) {
	apiErr := apierr.From(err)

	if apiErr.Err != nil {
		log.WithError(apiErr.Err).WithFields(log.Fields{
			"code":       apiErr.Code,
			"status":     apiErr.Status,
			"path":       c.Request.URL.Path,
			"request_id": RequestID(c),
		}).Error("request failed")
	}

	envelope := errorEnvelope{
		Error:   apiErr.Code,
		Message: apiErr.Message,
		Code:    apiErr.Code,
	}
	if development {
		envelope.Debug = map[string]any{
			"requestId": RequestID(c),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if apiErr.Err != nil {
			envelope.Debug["cause"] = apiErr.Err.Error()
		}
	}
	c.AbortWithStatusJSON(apiErr.Status, envelope)
}

// RequestID returns the correlation ID assigned by RequestIDMiddleware.
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
