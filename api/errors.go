package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kmateo04/travelmarket/internal/domain"
)

// writeError maps engine errors onto the HTTP contract. Not-found keeps
// the "<Entity> not found" body the presentation layer matches on;
// anything unrecognized collapses to a generic 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
	case errors.Is(err, domain.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking request not found"})
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSeatsUnavailable),
		errors.Is(err, domain.ErrScheduleBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidSeatCount),
		errors.Is(err, domain.ErrScheduleInactive),
		domain.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}

// actorFromRequest builds the explicit caller identity for the engine.
// Auth lives upstream; when the proxy headers are absent the fallback
// derived from the route's own semantics is used.
func actorFromRequest(c *gin.Context, fallback domain.Actor) domain.Actor {
	actor := fallback
	if id := c.GetHeader("X-Actor-Id"); id != "" {
		actor.ID = id
	}
	if role := c.GetHeader("X-Actor-Role"); role != "" {
		actor.Role = domain.Role(role)
	}
	return actor
}
