package consumers

import (
	"encoding/json"
	"log/slog"

	"github.com/Ronaldkim807/NairobiLB/internal/models"

	"github.com/nats-io/stan.go"
)

// The handlers below are the audit trail of the booking and payment
// lifecycle. Notification delivery (email, SMS receipts) hangs off these
// same subjects when it lands.

func (s *Service) handleBookingCreated(msg *stan.Msg) {
	var event models.BookingCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking created event", "error", err)
		msg.Ack()
		return
	}

	slog.Info("Booking created",
		"booking_id", event.BookingID,
		"event_id", event.EventID,
		"user_id", event.UserID,
		"quantity", event.Quantity,
		"total_amount", event.TotalAmount,
	)
	msg.Ack()
}

func (s *Service) handlePaymentInitiated(msg *stan.Msg) {
	var event models.PaymentInitiatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment initiated event", "error", err)
		msg.Ack()
		return
	}

	slog.Info("Payment initiated",
		"booking_id", event.BookingID,
		"payment_id", event.PaymentID,
		"provider_ref", event.ProviderRef,
		"amount", event.Amount,
	)
	msg.Ack()
}

func (s *Service) handlePaymentCompleted(msg *stan.Msg) {
	var event models.PaymentCompletedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment completed event", "error", err)
		msg.Ack()
		return
	}

	slog.Info("Payment completed",
		"booking_id", event.BookingID,
		"payment_id", event.PaymentID,
		"receipt", event.Receipt,
		"amount", event.Amount,
	)
	msg.Ack()
}

func (s *Service) handlePaymentFailed(msg *stan.Msg) {
	var event models.PaymentFailedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment failed event", "error", err)
		msg.Ack()
		return
	}

	slog.Warn("Payment failed",
		"booking_id", event.BookingID,
		"payment_id", event.PaymentID,
		"reason", event.Reason,
	)
	msg.Ack()
}

func (s *Service) handleBookingCancelled(msg *stan.Msg) {
	var event models.BookingCancelledEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking cancelled event", "error", err)
		msg.Ack()
		return
	}

	slog.Info("Booking cancelled",
		"booking_id", event.BookingID,
		"event_id", event.EventID,
		"reason", event.Reason,
	)
	msg.Ack()
}
