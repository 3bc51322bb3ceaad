package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"fleet-admin-console/config"
	"fleet-admin-console/internal/model"
	"fleet-admin-console/internal/mw"
	"fleet-admin-console/internal/provision"
	"fleet-admin-console/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, tokens *mw.TokenRegistry, pool *provision.WorkerPool, cfg config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, tokens, pool)

	// Initialize middleware
	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	authenticate := mw.Authenticate(tokens, s.GetUser)

	r.Use(rateLimiter)
	r.POST("/login", handler.Login)

	api := r.Group("/api", authenticate)
	{
		api.GET("/devices", handler.ListDevices)
		api.POST("/devices", handler.CreateDevice)
		api.DELETE("/devices/:imei", handler.DeleteDevice)

		admin := api.Group("/admin", mw.RequireRole(model.RoleAdmin))
		admin.GET("/users", handler.ListUsers)
		admin.POST("/users", handler.CreateUser)
		admin.PUT("/users/:id", handler.UpdateUserRole)
		admin.DELETE("/users/:id", handler.DeleteUser)

		admin.GET("/machines", handler.ListMachines)
		admin.POST("/machines", handler.CreateMachine)
		admin.PUT("/machines/:id", handler.UpdateMachine)
		admin.DELETE("/machines/:id", handler.DeleteMachine)
		admin.GET("/machines/:id/status", handler.ListMachineStatuses)
		admin.POST("/machines/:id/status", handler.CreateMachineStatus)

		admin.GET("/permissions", handler.ListPermissions)
		admin.POST("/permissions", handler.GrantPermission)
		admin.DELETE("/permissions", handler.RevokePermission)
	}

	return r
}
