package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleet-admin-console/internal/model"
	"fleet-admin-console/internal/provision"
	"fleet-admin-console/internal/store"
)

// ListDevices handles GET /api/devices.
func (h *Handler) ListDevices(c *gin.Context) {
	devices, err := h.store.ListDevices(c.Request.Context())
	if err != nil {
		fail(c, err, "failed to retrieve devices")
		return
	}
	c.JSON(http.StatusOK, devices)
}

// CreateDevice handles POST /api/devices. Registration is queued and answered
// with 202; the device shows up in the list once a worker applied it.
func (h *Handler) CreateDevice(c *gin.Context) {
	var req model.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.IMEI) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imei is required"})
		return
	}
	spec := store.DeviceSpec{IMEI: strings.TrimSpace(req.IMEI), Info: req.Info, Note: req.Note}

	exists, err := h.store.DeviceExists(c.Request.Context(), spec.IMEI)
	if err != nil {
		fail(c, err, "failed to look up device")
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "device " + spec.IMEI + " is already registered"})
		return
	}

	h.enqueue(c, provision.NewJob(provision.JobCreate, spec))
}

// DeleteDevice handles DELETE /api/devices/:imei. Removal is queued.
func (h *Handler) DeleteDevice(c *gin.Context) {
	imei := strings.TrimSpace(c.Param("imei"))
	if imei == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imei is required"})
		return
	}
	h.enqueue(c, provision.NewJob(provision.JobDelete, store.DeviceSpec{IMEI: imei}))
}

func (h *Handler) enqueue(c *gin.Context, job provision.Job) {
	if err := h.pool.Dispatch(c.Request.Context(), job); err != nil {
		if errors.Is(err, provision.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "provisioning queue is full, retry later"})
			return
		}
		fail(c, err, "failed to queue device job")
		return
	}
	log.Printf("queued %s job %s for device %s", job.Kind, job.ID, job.Device.IMEI)
	c.JSON(http.StatusAccepted, gin.H{"message": "queued", "job_id": job.ID})
}
