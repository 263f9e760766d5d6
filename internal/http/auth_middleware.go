package http

import (
	"errors"
	"strings"

	"github.com/GHR600/App-Project-sub003/internal/apierr"
	"github.com/GHR600/App-Project-sub003/internal/identity"
	"github.com/gin-gonic/gin"
)

// principalKey is the gin context key holding the authenticated principal.
const principalKey = "principal"

// AuthMiddleware extracts and verifies the bearer token, attaching the
// principal to the request context. Missing or malformed headers are
// rejected before any downstream work occurs.
func AuthMiddleware(client *identity.Client, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, apierr.Unauthenticated("missing or malformed authorization header"), development)
			return
		}

		principal, errExchange := client.ExchangeToken(c.Request.Context(), token)
		if errExchange != nil {
			if errors.Is(errExchange, identity.ErrInvalidToken) {
				AbortWithError(c, apierr.InvalidToken("invalid or expired token", errExchange), development)
				return
			}
			// Transient identity failures also map to 401; callers retry
			// with the same token rather than treating it as a server fault.
			AbortWithError(c, apierr.InvalidToken("could not verify token", errExchange), development)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal for the request.
func PrincipalFromContext(c *gin.Context) (*identity.Principal, bool) {
	val, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	principal, ok := val.(*identity.Principal)
	return principal, ok
}

// extractBearerToken parses an Authorization header of the form
// "Bearer <token>".
func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
