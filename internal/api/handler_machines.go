package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleet-admin-console/internal/model"
)

// ListMachines handles GET /api/admin/machines. Each machine carries its
// current status, or null.
func (h *Handler) ListMachines(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		fail(c, err, "failed to retrieve machines")
		return
	}
	c.JSON(http.StatusOK, machines)
}

func bindMachine(c *gin.Context) (string, bool) {
	var req model.MachineRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "machine name is required"})
		return "", false
	}
	return strings.TrimSpace(req.Name), true
}

// CreateMachine handles POST /api/admin/machines.
func (h *Handler) CreateMachine(c *gin.Context) {
	name, ok := bindMachine(c)
	if !ok {
		return
	}
	m, err := h.store.CreateMachine(c.Request.Context(), name)
	if err != nil {
		fail(c, err, "failed to create machine")
		return
	}
	c.JSON(http.StatusCreated, m)
}

// UpdateMachine handles PUT /api/admin/machines/:id.
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	name, ok := bindMachine(c)
	if !ok {
		return
	}
	m, err := h.store.RenameMachine(c.Request.Context(), id, name)
	if err != nil {
		fail(c, err, "failed to update machine")
		return
	}
	c.JSON(http.StatusOK, m)
}

// DeleteMachine handles DELETE /api/admin/machines/:id.
func (h *Handler) DeleteMachine(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.store.DeleteMachine(c.Request.Context(), id); err != nil {
		fail(c, err, "failed to delete machine")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMachineStatuses handles GET /api/admin/machines/:id/status.
func (h *Handler) ListMachineStatuses(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	statuses, err := h.store.ListStatuses(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "failed to retrieve status history")
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// CreateMachineStatus handles POST /api/admin/machines/:id/status. The body is
// the full status payload.
func (h *Handler) CreateMachineStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var fields model.StatusFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status payload"})
		return
	}

	fields.ProcessingTime = strings.TrimSpace(fields.ProcessingTime)
	fields.RemainingTime = strings.TrimSpace(fields.RemainingTime)

	st, err := h.store.AddStatus(c.Request.Context(), id, fields)
	if err != nil {
		fail(c, err, "failed to add status")
		return
	}
	c.JSON(http.StatusCreated, st)
}
