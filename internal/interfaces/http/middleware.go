package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/expenseflow/expenseflow/internal/auth"
	"github.com/expenseflow/expenseflow/internal/models"
)

const principalKey = "principal"

// principalMiddleware resolves the bearer token to a Principal and
// aborts with 401 when it can't
func principalMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		principal, err := authService.ResolvePrincipal(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid or expired token",
			})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// mustPrincipal returns the principal set by principalMiddleware
func mustPrincipal(c *gin.Context) models.Principal {
	return c.MustGet(principalKey).(models.Principal)
}
