package handlers

import (
	"context"
	"net/http"

	"bookshelf/services"
	"bookshelf/types"
	"bookshelf/websocket"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DownloadHandler handles download management endpoints
type DownloadHandler struct {
	manager  services.DownloadManager
	hub      websocket.Hub
	upgrader gorilla.Upgrader
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(manager services.DownloadManager, hub websocket.Hub, upgrader gorilla.Upgrader) *DownloadHandler {
	return &DownloadHandler{
		manager:  manager,
		hub:      hub,
		upgrader: upgrader,
	}
}

// GetDownloads returns the current download snapshot, optionally re-sorted with ?sort=
func (h *DownloadHandler) GetDownloads(c *gin.Context) {
	var method *types.SortMethod
	if raw := c.Query("sort"); raw != "" {
		m, err := types.ParseSortMethod(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid sort method",
				"details": err.Error(),
			})
			return
		}
		method = &m
	}

	snap := h.manager.Downloads(c.Request.Context(), method)
	c.JSON(http.StatusOK, gin.H{
		"downloads":  snap.Entries,
		"sortMethod": snap.SortMethod.String(),
		"total":      len(snap.Entries),
	})
}

// GetDownload returns a single download entry
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	entry, exists := h.manager.Entry(id)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "download not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"download": entry,
	})
}

// Refresh requests a full resync with the download engine
func (h *DownloadHandler) Refresh(c *gin.Context) {
	h.manager.RequestRefresh()
	c.JSON(http.StatusAccepted, gin.H{
		"message": "refresh requested",
	})
}

// ResumeNearlyComplete resumes every download that is almost finished
func (h *DownloadHandler) ResumeNearlyComplete(c *gin.Context) {
	resumed, err := h.manager.ResumeNearlyComplete(c.Request.Context())
	if err != nil {
		respondError(c, "failed to resume downloads", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "downloads resumed",
		"resumed": resumed,
	})
}

// ResumeCard resumes a single download
func (h *DownloadHandler) ResumeCard(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.manager.ResumeCard(c.Request.Context(), id); err != nil {
		respondError(c, "failed to resume download", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "download resumed",
	})
}

// Regenerate starts rebuilding the epub of a download. The entry is flagged
// as generating until the rebuild finishes; progress is visible on the socket.
func (h *DownloadHandler) Regenerate(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if _, exists := h.manager.Entry(id); !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "download not found",
		})
		return
	}

	// Runs to completion even if the client goes away
	go func() {
		if err := h.manager.Regenerate(context.Background(), id); err != nil {
			log.Error().Err(err).Int("id", id).Msg("Regenerate failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "regeneration started",
	})
}

// DeleteWork deletes the work behind a download
func (h *DownloadHandler) DeleteWork(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	if err := h.manager.DeleteWork(context.WithoutCancel(c.Request.Context()), id); err != nil {
		respondError(c, "failed to delete work", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "work deleted",
	})
}

// HandleDownloadsSocket streams download snapshots over a WebSocket
func (h *DownloadHandler) HandleDownloadsSocket(c *gin.Context) {
	h.serveSocket(c, types.ViewDownloads)
}

// HandleLibrarySocket streams library snapshots over a WebSocket
func (h *DownloadHandler) HandleLibrarySocket(c *gin.Context) {
	h.serveSocket(c, types.ViewLibrary)
}

func (h *DownloadHandler) serveSocket(c *gin.Context, view types.View) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("view", string(view)).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, view)
	h.hub.RegisterClient(client)

	// Start client pumps
	client.StartPumps()
}
