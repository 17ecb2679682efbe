package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/hrms-identity/internal/dto"
	"github.com/prperemyshlev/hrms-identity/internal/service"
	"go.uber.org/zap"
)

// AdminHandler exposes account management to administrators
type AdminHandler struct {
	adminService service.AdminService
	logger       *zap.Logger
}

func NewAdminHandler(adminService service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger.With(zap.String("component", "admin_handler")),
	}
}

// BlockAccount
// @Summary Block an account
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body dto.BlockAccountRequest false "Reason"
// @Success 200 {object} dto.AccountResponse
// @Router /admin/accounts/{id}/block [post]
func (h *AdminHandler) BlockAccount(c *gin.Context) {
	var req dto.BlockAccountRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
	}

	account, err := h.adminService.BlockAccount(c.Request.Context(), currentPrincipal(c), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	c.JSON(http.StatusOK, account)
}

// UnblockAccount
// @Summary Unblock an account
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Router /admin/accounts/{id}/unblock [post]
func (h *AdminHandler) UnblockAccount(c *gin.Context) {
	account, err := h.adminService.UnblockAccount(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	c.JSON(http.StatusOK, account)
}

// DeleteAccount
// @Summary Soft-delete an account
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 204
// @Router /admin/accounts/{id} [delete]
func (h *AdminHandler) DeleteAccount(c *gin.Context) {
	if err := h.adminService.DeleteAccount(c.Request.Context(), currentPrincipal(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	c.Status(http.StatusNoContent)
}

// RestoreAccount
// @Summary Restore a soft-deleted account
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Router /admin/accounts/{id}/restore [post]
func (h *AdminHandler) RestoreAccount(c *gin.Context) {
	account, err := h.adminService.RestoreAccount(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	c.JSON(http.StatusOK, account)
}

// AssignRoles
// @Summary Grant roles to an account
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body dto.AssignRolesRequest true "Roles"
// @Success 200 {object} dto.AccountResponse
// @Router /admin/accounts/{id}/roles [post]
func (h *AdminHandler) AssignRoles(c *gin.Context) {
	var req dto.AssignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	account, err := h.adminService.AssignRoles(c.Request.Context(), currentPrincipal(c), c.Param("id"), req.Roles)
	if err != nil {
		writeError(c, h.logger, err, notFoundAsNotFound)
		return
	}

	c.JSON(http.StatusOK, account)
}
