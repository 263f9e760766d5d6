package handlers

import (
	relayhttp "github.com/GHR600/App-Project-sub003/internal/http"
	"github.com/GHR600/App-Project-sub003/internal/identity"
	"github.com/gin-gonic/gin"
)

// getPrincipal extracts the authenticated principal from gin context.
func getPrincipal(c *gin.Context) (*identity.Principal, bool) {
	return relayhttp.PrincipalFromContext(c)
}
