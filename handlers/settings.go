package handlers

import (
	"net/http"

	"bookshelf/services"
	"bookshelf/types"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles settings-related endpoints
type SettingsHandler struct {
	manager services.DownloadManager
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(manager services.DownloadManager) *SettingsHandler {
	return &SettingsHandler{manager: manager}
}

// Settings represents the user settings
type Settings struct {
	DownloadSort string `json:"downloadSort,omitempty"`
	LibrarySort  string `json:"librarySort,omitempty"`
}

func (h *SettingsHandler) current() Settings {
	return Settings{
		DownloadSort: h.manager.SortMethod(types.ViewDownloads).String(),
		LibrarySort:  h.manager.SortMethod(types.ViewLibrary).String(),
	}
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.current())
}

// UpdateSettings updates the sort methods. Omitted fields are left unchanged.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var newSettings Settings
	if err := c.ShouldBindJSON(&newSettings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	updates := []struct {
		view types.View
		raw  string
	}{
		{types.ViewDownloads, newSettings.DownloadSort},
		{types.ViewLibrary, newSettings.LibrarySort},
	}

	// Validate everything before changing anything
	methods := make(map[types.View]types.SortMethod, len(updates))
	for _, u := range updates {
		if u.raw == "" {
			continue
		}
		method, err := types.ParseSortMethod(u.raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid sort method",
				"details": err.Error(),
			})
			return
		}
		methods[u.view] = method
	}

	for _, u := range updates {
		method, ok := methods[u.view]
		if !ok {
			continue
		}
		if err := h.manager.SetSortMethod(c.Request.Context(), u.view, method); err != nil {
			respondError(c, "Failed to save settings", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings updated successfully",
		"settings": h.current(),
	})
}
