package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/service"
	"go.uber.org/zap"
)

const principalKey = "principal"

// AuthMiddleware resolves the bearer token into a Principal and stores it in the context
func AuthMiddleware(auth service.Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := auth.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			writeError(c, logger, err, notFoundAsUnauthorized)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware
func RequireRole(auth service.Authenticator, role string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireRole(currentPrincipal(c), role); err != nil {
			writeError(c, logger, err, notFoundAsUnauthorized)
			return
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) *domain.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}
