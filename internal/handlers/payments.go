package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/Ronaldkim807/NairobiLB/internal/middleware"
	"github.com/Ronaldkim807/NairobiLB/internal/models"

	"github.com/gin-gonic/gin"
)

// Callback bodies are small; anything bigger than this is not from Safaricom
const maxCallbackBody = 64 << 10

// InitiatePayment starts an STK push for a booking
// POST /api/payments/initiate
func (h *Handlers) InitiatePayment(c *gin.Context) {
	user, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	resp, err := h.services.Payments.Initiate(c.Request.Context(), user, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MpesaCallback receives the asynchronous payment result from Safaricom.
// It is unauthenticated and always answers 200 with a success body: any
// other response makes the gateway redeliver the callback, and processing
// is already idempotent.
// POST /api/payments/mpesa-callback
func (h *Handlers) MpesaCallback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		body = nil
	}

	ack := h.services.Payments.HandleCallback(c.Request.Context(), body)
	c.JSON(http.StatusOK, ack)
}

// GetPaymentStatus returns a payment and the booking it belongs to
// GET /api/payments/:id/status
func (h *Handlers) GetPaymentStatus(c *gin.Context) {
	user, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment id"})
		return
	}

	resp, err := h.services.Payments.Status(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
