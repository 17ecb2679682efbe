package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/service"
	"go.uber.org/zap"
)

// RateLimit configures the limiter applied to unauthenticated auth routes.
// A nil Limiter disables limiting.
type RateLimit struct {
	Limiter  Limiter
	Requests int
	Window   time.Duration
}

// RegisterRoutes mounts the auth and admin APIs under /api/v1
func RegisterRoutes(router gin.IRouter, auth *AuthHandler, admin *AdminHandler, gate service.Authenticator, rl RateLimit, logger *zap.Logger) {
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if rl.Limiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{RateLimitMiddleware(rl.Limiter, rl.Requests, rl.Window, RouteIPKey, logger), h}
	}
	authenticated := AuthMiddleware(gate, logger)

	api := router.Group("/api/v1")
	{
		a := api.Group("/auth")
		a.POST("/register", limited(auth.Register)...)
		a.POST("/register/verify", limited(auth.RegisterVerify)...)
		a.POST("/login", limited(auth.Login)...)
		a.POST("/social-login", limited(auth.SocialLogin)...)
		a.POST("/forgot-password", limited(auth.ForgotPassword)...)
		a.POST("/verify-otp", limited(auth.VerifyOTP)...)
		a.POST("/reset-password", limited(auth.ResetPassword)...)
		a.POST("/refresh", auth.Refresh)
		a.POST("/logout", authenticated, auth.Logout)
		a.GET("/me", authenticated, auth.GetMe)

		adm := api.Group("/admin", authenticated, RequireRole(gate, domain.RoleAdmin, logger))
		adm.POST("/accounts/:id/block", admin.BlockAccount)
		adm.POST("/accounts/:id/unblock", admin.UnblockAccount)
		adm.DELETE("/accounts/:id", admin.DeleteAccount)
		adm.POST("/accounts/:id/restore", admin.RestoreAccount)
		adm.POST("/accounts/:id/roles", admin.AssignRoles)
	}
}
