package handlers

import (
	"net/http"
	"time"

	"bookshelf/services"
	"bookshelf/types"
	"bookshelf/websocket"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	manager services.DownloadManager
	hub     websocket.Hub
	dbPath  string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(manager services.DownloadManager, hub websocket.Hub, dbPath string) *HealthHandler {
	return &HealthHandler{manager: manager, hub: hub, dbPath: dbPath}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "bookshelf",
		"version":   Version,
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus returns the status of the API
func (h *HealthHandler) APIStatus(c *gin.Context) {
	snap := h.manager.Downloads(c.Request.Context(), nil)
	c.JSON(http.StatusOK, gin.H{
		"message":   "Bookshelf API is running",
		"database":  h.dbPath,
		"downloads": len(snap.Entries),
		"clients": gin.H{
			"downloads": h.hub.ClientCount(types.ViewDownloads),
			"library":   h.hub.ClientCount(types.ViewLibrary),
		},
	})
}
