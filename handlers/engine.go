package handlers

import (
	"net/http"

	"bookshelf/engine"
	"bookshelf/types"

	"github.com/gin-gonic/gin"
)

// EngineHandler lets producers push work metadata and progress into the local engine
type EngineHandler struct {
	local *engine.Local
}

// NewEngineHandler creates a new engine ingest handler
func NewEngineHandler(local *engine.Local) *EngineHandler {
	return &EngineHandler{local: local}
}

// ProgressRequest is a progress report for one work
type ProgressRequest struct {
	Count int                 `json:"count"`
	Total int                 `json:"total"`
	State types.DownloadState `json:"state"`
}

// UpsertWork stores the metadata of a work
func (h *EngineHandler) UpsertWork(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var data types.DownloadData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	if data.Name == "" || data.APIName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "name and apiName are required",
		})
		return
	}

	h.local.UpdateMetadata(id, data)
	c.JSON(http.StatusAccepted, gin.H{
		"message": "metadata accepted",
	})
}

// UpdateProgress stores the progress of a work
func (h *EngineHandler) UpdateProgress(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	if req.Count < 0 || req.Total < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "count and total must not be negative",
		})
		return
	}
	if req.State == "" {
		req.State = types.DownloadStateDownloading
	}

	h.local.UpdateProgress(id, req.Count, req.Total, req.State)
	c.JSON(http.StatusAccepted, gin.H{
		"message": "progress accepted",
	})
}
