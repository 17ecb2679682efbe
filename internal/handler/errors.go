package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/dto"
	"go.uber.org/zap"
)

type errorMapping struct {
	err    error
	status int
	title  string
}

// errorTable is matched in order with errors.Is. Anything not listed is a 500.
var errorTable = []errorMapping{
	{domain.ErrValidation, http.StatusBadRequest, "Validation failed"},
	{domain.ErrInvalidOrExpiredOTP, http.StatusBadRequest, "Bad request"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrInvalidToken, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrMissingCredential, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrInvalidSocialToken, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrAccountBlocked, http.StatusForbidden, "Forbidden"},
	{domain.ErrInsufficientRole, http.StatusForbidden, "Forbidden"},
	{domain.ErrEmailAlreadyExists, http.StatusConflict, "Conflict"},
	{domain.ErrPhoneAlreadyExists, http.StatusConflict, "Conflict"},
	{domain.ErrProviderAlreadyLinked, http.StatusConflict, "Conflict"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "Too Many Requests"},
	{domain.ErrDeliveryFailed, http.StatusServiceUnavailable, "Service unavailable"},
}

// accountNotFoundStatus is 401 behind the gate and 404 where a caller names
// the account explicitly.
type accountNotFoundStatus int

const (
	notFoundAsUnauthorized accountNotFoundStatus = http.StatusUnauthorized
	notFoundAsNotFound     accountNotFoundStatus = http.StatusNotFound
)

// writeError maps err to a status and body. Unexpected errors are logged and
// answered with a generic message.
func writeError(c *gin.Context, logger *zap.Logger, err error, notFound accountNotFoundStatus) {
	if errors.Is(err, domain.ErrAccountNotFound) {
		title := "Not found"
		if notFound == notFoundAsUnauthorized {
			title = "Unauthorized"
		}
		c.AbortWithStatusJSON(int(notFound), dto.ErrorResponse{Error: title, Message: domain.ErrAccountNotFound.Error()})
		return
	}

	for _, m := range errorTable {
		if !errors.Is(err, m.err) {
			continue
		}
		resp := dto.ErrorResponse{Error: m.title, Message: m.err.Error()}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			resp.Details = verr.Fields
		}
		c.AbortWithStatusJSON(m.status, resp)
		return
	}

	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
		Error:   "Internal server error",
		Message: "An unexpected error occurred",
	})
}

func writeBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Message: "Invalid request body",
		Details: err.Error(),
	})
}
