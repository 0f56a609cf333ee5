package handlers

import (
	"errors"
	"net/http"

	"github.com/Ronaldkim807/NairobiLB/internal/database"
	apperrors "github.com/Ronaldkim807/NairobiLB/internal/errors"
	"github.com/Ronaldkim807/NairobiLB/internal/external"
	"github.com/Ronaldkim807/NairobiLB/internal/service"

	"github.com/gin-gonic/gin"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	services *service.Services
	db       *database.DB
}

func NewHandlers(services *service.Services, db *database.DB) *Handlers {
	return &Handlers{
		services: services,
		db:       db,
	}
}

// HealthCheck reports liveness plus database health
func (h *Handlers) HealthCheck(c *gin.Context) {
	health := h.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   health.Status,
		"database": health,
	})
}

// respondError translates business errors into HTTP status codes
func respondError(c *gin.Context, err error) {
	var gatewayErr *external.GatewayError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrInvalidQuantity),
		errors.Is(err, apperrors.ErrTicketTypeMismatch),
		errors.Is(err, apperrors.ErrEventInactive),
		errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrInsufficientTickets),
		errors.Is(err, apperrors.ErrAlreadyConfirmed),
		errors.Is(err, apperrors.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable"})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
