package handlers

import (
	"net/http"

	"bookshelf/services"
	"bookshelf/types"

	"github.com/gin-gonic/gin"
)

// LibraryHandler handles the bookmarked library endpoints
type LibraryHandler struct {
	manager services.DownloadManager
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(manager services.DownloadManager) *LibraryHandler {
	return &LibraryHandler{manager: manager}
}

// BookmarkRequest stores a result under a read state
type BookmarkRequest struct {
	Result    types.ResultCached `json:"result"`
	ReadState string             `json:"readState" binding:"required"`
}

// GetLibrary loads and publishes the library entries in :readState
func (h *LibraryHandler) GetLibrary(c *gin.Context) {
	state, err := types.ParseReadType(c.Param("readState"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid read state",
			"details": err.Error(),
		})
		return
	}

	snap, err := h.manager.LoadLibrary(c.Request.Context(), state)
	if err != nil {
		respondError(c, "failed to load library", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"library":    snap.Entries,
		"readState":  snap.ReadState.String(),
		"sortMethod": snap.SortMethod.String(),
		"total":      len(snap.Entries),
	})
}

// Bookmark stores or removes a library bookmark
func (h *LibraryHandler) Bookmark(c *gin.Context) {
	var req BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	state, err := types.ParseReadType(req.ReadState)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid read state",
			"details": err.Error(),
		})
		return
	}
	if req.Result.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "result ID is required",
		})
		return
	}

	if err := h.manager.Bookmark(c.Request.Context(), req.Result, state); err != nil {
		respondError(c, "failed to save bookmark", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "bookmark saved",
		"readState": state.String(),
	})
}
