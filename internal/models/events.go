package models

import "time"

// NATS Event Types
const (
	EventBookingCreated   = "booking.created"
	EventPaymentInitiated = "payment.initiated"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventBookingCancelled = "booking.cancelled"
)

// BookingCreatedEvent represents a booking creation event
type BookingCreatedEvent struct {
	BookingID   int64     `json:"booking_id"`
	EventID     int64     `json:"event_id"`
	UserID      int64     `json:"user_id"`
	Quantity    int       `json:"quantity"`
	TotalAmount int64     `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentInitiatedEvent represents a payment initiation event
type PaymentInitiatedEvent struct {
	BookingID   int64     `json:"booking_id"`
	PaymentID   int64     `json:"payment_id"`
	ProviderRef string    `json:"provider_ref"`
	Amount      int64     `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentCompletedEvent represents a successful payment event
type PaymentCompletedEvent struct {
	BookingID int64     `json:"booking_id"`
	PaymentID int64     `json:"payment_id"`
	Receipt   string    `json:"receipt"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentFailedEvent represents a failed payment event
type PaymentFailedEvent struct {
	BookingID int64     `json:"booking_id"`
	PaymentID int64     `json:"payment_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCancelledEvent represents a booking cancellation event
type BookingCancelledEvent struct {
	BookingID int64     `json:"booking_id"`
	EventID   int64     `json:"event_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
