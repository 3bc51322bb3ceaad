package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"fleet-admin-console/internal/model"
)

// ListUsers handles GET /api/admin/users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, err, "failed to retrieve users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser handles POST /api/admin/users.
func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if req.Username == "" || !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username or role"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err, "failed to hash password")
		return
	}
	user := model.User{Username: req.Username, PasswordHash: string(hash), Role: req.Role}
	if err := h.store.CreateUser(c.Request.Context(), &user); err != nil {
		fail(c, err, "failed to create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UpdateUserRole handles PUT /api/admin/users/:id.
func (h *Handler) UpdateUserRole(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req model.UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be admin or user"})
		return
	}

	user, err := h.store.UpdateUserRole(c.Request.Context(), id, req.Role)
	if err != nil {
		fail(c, err, "failed to update role")
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /api/admin/users/:id. Outstanding tokens of the
// user are revoked with it.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		fail(c, err, "failed to delete user")
		return
	}
	h.tokens.RevokeUser(id)
	c.Status(http.StatusNoContent)
}
