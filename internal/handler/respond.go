package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/crafted-exteriors/crm-api/internal/service"
	"github.com/gin-gonic/gin"
)

// respondServiceError maps service-layer errors onto the admin API's status
// codes. Persistence and unknown failures are logged in full and returned as
// a generic message.
func respondServiceError(c *gin.Context, err error) {
	if ve, ok := service.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": ve.Details,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrInvalidStage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	default:
		log.Printf("handler: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
