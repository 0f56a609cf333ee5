package models

// CreateBookingRequest - request to claim tickets for an event
type CreateBookingRequest struct {
	EventID      int64 `json:"event_id" binding:"required"`
	TicketTypeID int64 `json:"ticket_type_id" binding:"required"`
	Quantity     int   `json:"quantity" binding:"required"`
}

// InitiatePaymentRequest - request to start an STK push for a booking
type InitiatePaymentRequest struct {
	BookingID   int64  `json:"booking_id" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// InitiatePaymentResponse - returned after a successful STK push
type InitiatePaymentResponse struct {
	Payment         *Payment `json:"payment"`
	CustomerMessage string   `json:"customer_message,omitempty"`
}

// PaymentStatusResponse - payment plus the booking it belongs to
type PaymentStatusResponse struct {
	Payment *Payment `json:"payment"`
	Booking *Booking `json:"booking"`
}

// CallbackAck is the body M-Pesa expects in response to a callback. Anything
// that does not look like a success makes Safaricom retry the delivery, so
// every callback is acknowledged with ResultCode 0.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// CreateTicketTypeRequest - nested under CreateEventRequest
type CreateTicketTypeRequest struct {
	Name     string `json:"name" binding:"required"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// CreateEventRequest - organizer request to publish an event
type CreateEventRequest struct {
	Title       string                    `json:"title" binding:"required"`
	Description *string                   `json:"description"`
	Category    string                    `json:"category" binding:"required"`
	Venue       string                    `json:"venue" binding:"required"`
	City        *string                   `json:"city"`
	StartTime   string                    `json:"start_time" binding:"required"`
	EndTime     *string                   `json:"end_time"`
	Capacity    int                       `json:"capacity" binding:"required"`
	ImageURL    *string                   `json:"image_url"`
	TicketTypes []CreateTicketTypeRequest `json:"ticket_types" binding:"required,min=1"`
}
