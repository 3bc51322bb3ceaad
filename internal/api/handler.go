package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleet-admin-console/internal/mw"
	"fleet-admin-console/internal/provision"
	"fleet-admin-console/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store  store.Store
	tokens *mw.TokenRegistry
	pool   *provision.WorkerPool
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, tokens *mw.TokenRegistry, pool *provision.WorkerPool) *Handler {
	return &Handler{
		store:  s,
		tokens: tokens,
		pool:   pool,
	}
}

// idParam parses the :id path segment, answering 400 when it is malformed.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// fail maps store errors to status codes. Unexpected errors are logged and
// reported as 500 with msg.
func fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
