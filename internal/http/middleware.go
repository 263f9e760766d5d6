package http

import (
	"net/http"

	"github.com/GHR600/App-Project-sub003/internal/apierr"
	"github.com/GHR600/App-Project-sub003/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// RequestIDMiddleware assigns each request a correlation ID and echoes it in
// the X-Request-ID response header.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// BodyLimitMiddleware caps request body size before JSON decoding.
func BodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// RateLimitMiddleware enforces the fixed-window limit per source IP. A
// limiter failure allows the request through; rate limiting is best-effort
// and must not take the API down with it.
func RateLimitMiddleware(limiter ratelimit.Limiter, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, _, errAllow := limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP())
		if errAllow != nil {
			log.WithError(errAllow).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			AbortWithError(c, apierr.RateLimited("too many requests, please try again later"), development)
			return
		}
		c.Next()
	}
}
