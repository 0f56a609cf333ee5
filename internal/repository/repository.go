package repository

import (
	"github.com/Ronaldkim807/NairobiLB/internal/database"
)

// Repositories holds all repository instances
type Repositories struct {
	Users       *UserRepository
	Events      *EventRepository
	TicketTypes *TicketTypeRepository
	Bookings    *BookingRepository
	Payments    *PaymentRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(db),
		Events:      NewEventRepository(db),
		TicketTypes: NewTicketTypeRepository(db),
		Bookings:    NewBookingRepository(db),
		Payments:    NewPaymentRepository(db),
	}
}
