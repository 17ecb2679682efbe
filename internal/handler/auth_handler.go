package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/dto"
	"github.com/prperemyshlev/hrms-identity/internal/service"
	"go.uber.org/zap"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService   service.AuthService
	secureCookies bool
	logger        *zap.Logger
}

// NewAuthHandler creates a new auth handler. secureCookies marks the refresh
// cookie Secure and should be set everywhere but local development.
func NewAuthHandler(authService service.AuthService, secureCookies bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		secureCookies: secureCookies,
		logger:        logger.With(zap.String("component", "auth_handler")),
	}
}

// Register starts a registration and sends a confirmation code
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 202 {object} dto.OTPDispatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	response, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	c.JSON(http.StatusAccepted, response)
}

// RegisterVerify creates the account from a confirmed registration
// @Summary Confirm a registration code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterVerifyRequest true "Confirmation"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/register/verify [post]
func (h *AuthHandler) RegisterVerify(c *gin.Context) {
	var req dto.RegisterVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	response, err := h.authService.RegisterVerify(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	h.setRefreshCookie(c, response)
	c.JSON(http.StatusCreated, response)
}

// Login handles password login
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	response, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, notFoundAsUnauthorized)
		return
	}

	h.setRefreshCookie(c, response)
	c.JSON(http.StatusOK, response)
}

// SocialLogin signs in with a provider-issued token
// @Summary Social login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SocialLoginRequest true "Provider token"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /auth/social-login [post]
func (h *AuthHandler) SocialLogin(c *gin.Context) {
	var req dto.SocialLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	response, err := h.authService.SocialLogin(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, notFoundAsUnauthorized)
		return
	}

	h.setRefreshCookie(c, response)
	c.JSON(http.StatusOK, response)
}

// ForgotPassword sends a password reset code
// @Summary Request a password reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Email"
// @Success 202 {object} dto.OTPDispatchResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	response, err := h.authService.ForgotPassword(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	c.JSON(http.StatusAccepted, response)
}

// VerifyOTP checks a reset code without consuming it
// @Summary Check a password reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.VerifyOTPRequest true "Code"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.authService.VerifyOTP(c.Request.Context(), &req); err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Code is valid"})
}

// ResetPassword sets a new password with a reset code
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), &req); err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password has been reset"})
}

// Refresh rotates a refresh token. The token is read from the cookie first,
// then from the JSON body.
// @Summary Refresh tokens
// @Tags auth
// @Produce json
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	response, err := h.authService.Refresh(c.Request.Context(), h.refreshToken(c))
	if err != nil {
		writeError(c, h.logger, err, notFoundAsUnauthorized)
		return
	}

	h.setRefreshCookie(c, response)
	c.JSON(http.StatusOK, response)
}

// Logout revokes the current access token and the refresh token, if given
// @Summary Logout
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), currentPrincipal(c), h.refreshToken(c)); err != nil {
		writeError(c, h.logger, err, notFoundAsUnauthorized)
		return
	}

	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", h.secureCookies, true)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Logged out successfully"})
}

// GetMe returns the authenticated account
// @Summary Current account
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	principal := currentPrincipal(c)
	if principal == nil {
		writeError(c, h.logger, domain.ErrMissingCredential, notFoundAsUnauthorized)
		return
	}

	account, err := h.authService.GetAccount(c.Request.Context(), principal.Account.ID)
	if err != nil {
		writeError(c, h.logger, err, notFoundAsUnauthorized)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AuthHandler) refreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshCookieName); err == nil && token != "" {
		return token
	}

	var req dto.RefreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	return req.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, response *dto.AuthResponse) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, response.RefreshToken, response.RefreshExpiresIn, refreshCookiePath, "", h.secureCookies, true)
}
