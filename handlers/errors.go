package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bookshelf/engine"
	"bookshelf/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to a status code and the usual error body
func respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, engine.ErrUnknownWork):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrUnknownView):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrOperationFailure):
		status = http.StatusBadGateway
	case errors.Is(err, services.ErrTransientIO):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// paramID parses the :id path parameter, answering 400 when it is not an integer
func paramID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "download ID must be an integer",
			"details": err.Error(),
		})
		return 0, false
	}
	return id, true
}
