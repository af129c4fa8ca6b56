package controllers

import (
	"errors"
	"net/http"

	"civicbridge-be/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError writes the HTTP form of a service error. Unexpected failures are
// logged and answered with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		forbidden  *services.ForbiddenError
		transition *services.InvalidTransitionError
		duplicate  *services.DuplicateVoteError
		conflict   *services.ConflictError
	)

	switch {
	case errors.As(err, &transition):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           transition.Error(),
			"currentStatus":   transition.Current,
			"requestedStatus": transition.Requested,
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusBadRequest, gin.H{"error": duplicate.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	default:
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
