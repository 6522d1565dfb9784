package api

import (
	"errors"
	"net/http"

	"pos-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps service errors onto status codes. Anything unrecognised
// is logged and answered with an opaque 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var dep *service.DependentsError
	switch {
	case errors.As(err, &dep):
		c.JSON(http.StatusConflict, gin.H{
			"error": "has dependents",
			"details": gin.H{
				"entity":    dep.Entity,
				"id":        dep.ID,
				"dependent": dep.Dependent,
				"count":     dep.Count,
			},
		})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, service.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "Insufficient stock"})
	case errors.Is(err, service.ErrRequestInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Request already in progress"})
	default:
		if !errors.Is(err, service.ErrOrderFailed) {
			h.logger.Error("Request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
