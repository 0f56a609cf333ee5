package models

import (
	"time"
)

// Booking statuses
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
)

// Payment statuses
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailed  = "FAILED"
)

// User roles
const (
	RoleAttendee  = "ATTENDEE"
	RoleOrganizer = "ORGANIZER"
	RoleAdmin     = "ADMIN"
)

// User represents a user in the system
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Event represents an event in the system
type Event struct {
	ID          int64        `json:"id" db:"id"`
	OrganizerID int64        `json:"organizer_id" db:"organizer_id"`
	Title       string       `json:"title" db:"title"`
	Description *string      `json:"description" db:"description"`
	Category    string       `json:"category" db:"category"`
	Venue       string       `json:"venue" db:"venue"`
	City        *string      `json:"city" db:"city"`
	StartTime   time.Time    `json:"start_time" db:"start_time"`
	EndTime     *time.Time   `json:"end_time" db:"end_time"`
	Capacity    int          `json:"capacity" db:"capacity"`
	ImageURL    *string      `json:"image_url" db:"image_url"`
	IsActive    bool         `json:"is_active" db:"is_active"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	TicketTypes []TicketType `json:"ticket_types,omitempty"` // Not from DB, filled separately
}

// TicketType represents a purchasable ticket category for an event.
// Prices and amounts are whole Kenyan shillings; M-Pesa does not accept
// fractional amounts.
type TicketType struct {
	ID                int64     `json:"id" db:"id"`
	EventID           int64     `json:"event_id" db:"event_id"`
	Name              string    `json:"name" db:"name"`
	Price             int64     `json:"price" db:"price"`
	QuantityTotal     int       `json:"quantity_total" db:"quantity_total"`
	QuantityAvailable int       `json:"quantity_available" db:"quantity_available"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Booking represents a user's claim on quantity tickets of one ticket type.
// TotalAmount is computed once at creation and never recomputed afterwards.
type Booking struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	EventID      int64     `json:"event_id" db:"event_id"`
	TicketTypeID int64     `json:"ticket_type_id" db:"ticket_type_id"`
	Quantity     int       `json:"quantity" db:"quantity"`
	TotalAmount  int64     `json:"total_amount" db:"total_amount"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	Payment      *Payment  `json:"payment,omitempty"` // Latest payment, filled separately
}

// Payment represents a payment attempt for a booking. ProviderRef holds the
// CheckoutRequestID while the payment is pending and the M-Pesa receipt
// number once it succeeds.
type Payment struct {
	ID          int64     `json:"id" db:"id"`
	BookingID   int64     `json:"booking_id" db:"booking_id"`
	Amount      int64     `json:"amount" db:"amount"`
	Provider    string    `json:"provider" db:"provider"`
	ProviderRef string    `json:"provider_ref" db:"provider_ref"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// AuthUser is the authenticated principal extracted from a JWT
type AuthUser struct {
	ID   int64
	Role string
}

// IsAdmin reports whether the user holds the admin role
func (u AuthUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanOrganize reports whether the user may create events
func (u AuthUser) CanOrganize() bool {
	return u.Role == RoleOrganizer || u.Role == RoleAdmin
}
