package service

import (
	"context"
	"time"

	"github.com/Ronaldkim807/NairobiLB/internal/cache"
	"github.com/Ronaldkim807/NairobiLB/internal/external"
	"github.com/Ronaldkim807/NairobiLB/internal/models"
	"github.com/Ronaldkim807/NairobiLB/internal/repository"
	"github.com/Ronaldkim807/NairobiLB/internal/search"
)

// Store interfaces narrow the repositories to what each service needs so the
// services can be unit tested against in-memory implementations.

type BookingStore interface {
	CreateWithReservation(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error)
	CancelWithRelease(ctx context.Context, booking *models.Booking) error
	GetExpiredPending(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
}

type TicketTypeStore interface {
	GetByID(ctx context.Context, id int64) (*models.TicketType, error)
	GetByEventID(ctx context.Context, eventID int64) ([]models.TicketType, error)
}

type EventStore interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
}

type PaymentStore interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	FindPendingByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error)
	GetLatestByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error)
	MarkSuccess(ctx context.Context, paymentID, bookingID int64, receipt string, amount int64, phone string) (bool, error)
	MarkFailed(ctx context.Context, paymentID int64, booking *models.Booking) (bool, error)
}

// STKGateway is the slice of the M-Pesa client the payment service uses
type STKGateway interface {
	InitiateSTKPush(ctx context.Context, phone string, amount int64, accountRef, description string) (*external.STKPushResponse, error)
}

// EventPublisher decouples the services from the NATS client. Publishing is
// best effort; a broker outage never fails a user request.
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// Services bundles all business logic services
type Services struct {
	Bookings *BookingService
	Payments *PaymentService
	Events   *EventService
}

func NewServices(
	repos *repository.Repositories,
	mpesa *external.MpesaClient,
	publisher EventPublisher,
	redisClient *cache.RedisClient,
	searchClient *search.Client,
) *Services {
	return &Services{
		Bookings: NewBookingService(repos.Bookings, repos.TicketTypes, repos.Events, repos.Payments, publisher),
		Payments: NewPaymentService(repos.Payments, repos.Bookings, mpesa, publisher),
		Events:   NewEventService(repos.Events, repos.TicketTypes, redisClient, searchClient),
	}
}
