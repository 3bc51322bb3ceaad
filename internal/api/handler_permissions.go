package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet-admin-console/internal/model"
)

// ListPermissions handles GET /api/admin/permissions.
func (h *Handler) ListPermissions(c *gin.Context) {
	perms, err := h.store.ListPermissions(c.Request.Context())
	if err != nil {
		fail(c, err, "failed to retrieve permissions")
		return
	}
	c.JSON(http.StatusOK, perms)
}

func bindPermission(c *gin.Context) (model.PermissionRequest, bool) {
	var req model.PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and machine_id are required"})
		return req, false
	}
	return req, true
}

// GrantPermission handles POST /api/admin/permissions.
func (h *Handler) GrantPermission(c *gin.Context) {
	req, ok := bindPermission(c)
	if !ok {
		return
	}
	p, err := h.store.Grant(c.Request.Context(), req.UserID, req.MachineID)
	if err != nil {
		fail(c, err, "failed to grant permission")
		return
	}
	c.JSON(http.StatusOK, p)
}

// RevokePermission handles DELETE /api/admin/permissions with the pair in the body.
func (h *Handler) RevokePermission(c *gin.Context) {
	req, ok := bindPermission(c)
	if !ok {
		return
	}
	if err := h.store.Revoke(c.Request.Context(), req.UserID, req.MachineID); err != nil {
		fail(c, err, "failed to revoke permission")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "permission revoked"})
}
