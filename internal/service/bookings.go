package service

import (
	"context"
	"time"

	apperrors "github.com/Ronaldkim807/NairobiLB/internal/errors"
	"github.com/Ronaldkim807/NairobiLB/internal/logger"
	"github.com/Ronaldkim807/NairobiLB/internal/metrics"
	"github.com/Ronaldkim807/NairobiLB/internal/models"
)

const maxTicketsPerBooking = 10

// BookingService owns the booking lifecycle: creation with inventory
// reservation, reads scoped to the owner, and cancellation with release.
type BookingService struct {
	bookings    BookingStore
	ticketTypes TicketTypeStore
	events      EventStore
	payments    PaymentStore
	publisher   EventPublisher
}

func NewBookingService(
	bookings BookingStore,
	ticketTypes TicketTypeStore,
	events EventStore,
	payments PaymentStore,
	publisher EventPublisher,
) *BookingService {
	return &BookingService{
		bookings:    bookings,
		ticketTypes: ticketTypes,
		events:      events,
		payments:    payments,
		publisher:   publisher,
	}
}

// Create validates the request, computes the total from the current ticket
// price and reserves inventory atomically. The total is fixed here and never
// recomputed, so later price edits cannot change what an existing booking owes.
func (s *BookingService) Create(ctx context.Context, user models.AuthUser, req *models.CreateBookingRequest) (*models.Booking, error) {
	log := logger.WithContext(ctx)

	if req.Quantity < 1 || req.Quantity > maxTicketsPerBooking {
		metrics.BookingsFailedTotal.WithLabelValues("invalid_quantity").Inc()
		return nil, apperrors.ErrInvalidQuantity
	}

	ticketType, err := s.ticketTypes.GetByID(ctx, req.TicketTypeID)
	if err != nil {
		return nil, err
	}
	if ticketType == nil {
		metrics.BookingsFailedTotal.WithLabelValues("not_found").Inc()
		return nil, apperrors.ErrNotFound
	}
	if ticketType.EventID != req.EventID {
		metrics.BookingsFailedTotal.WithLabelValues("ticket_type_mismatch").Inc()
		return nil, apperrors.ErrTicketTypeMismatch
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		metrics.BookingsFailedTotal.WithLabelValues("not_found").Inc()
		return nil, apperrors.ErrNotFound
	}
	if !event.IsActive {
		metrics.BookingsFailedTotal.WithLabelValues("event_inactive").Inc()
		return nil, apperrors.ErrEventInactive
	}

	booking := &models.Booking{
		UserID:       user.ID,
		EventID:      req.EventID,
		TicketTypeID: req.TicketTypeID,
		Quantity:     req.Quantity,
		TotalAmount:  ticketType.Price * int64(req.Quantity),
		Status:       models.BookingStatusPending,
	}

	if err := s.bookings.CreateWithReservation(ctx, booking); err != nil {
		if err == apperrors.ErrInsufficientTickets {
			metrics.BookingsFailedTotal.WithLabelValues("insufficient_tickets").Inc()
		}
		return nil, err
	}

	metrics.BookingsCreatedTotal.Inc()
	log.Info("Booking created",
		"booking_id", booking.ID,
		"event_id", booking.EventID,
		"ticket_type_id", booking.TicketTypeID,
		"quantity", booking.Quantity,
		"total_amount", booking.TotalAmount,
	)

	if err := s.publisher.Publish(models.EventBookingCreated, models.BookingCreatedEvent{
		BookingID:   booking.ID,
		EventID:     booking.EventID,
		UserID:      booking.UserID,
		Quantity:    booking.Quantity,
		TotalAmount: booking.TotalAmount,
		Timestamp:   time.Now(),
	}); err != nil {
		log.Warn("Failed to publish booking created event", "booking_id", booking.ID, "error", err)
	}

	return booking, nil
}

// GetByID returns the booking with its latest payment attached. Only the
// owner or an admin may read it.
func (s *BookingService) GetByID(ctx context.Context, user models.AuthUser, id int64) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if booking.UserID != user.ID && !user.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	payment, err := s.payments.GetLatestByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Payment = payment

	return booking, nil
}

// ListByUser returns the caller's bookings, newest first, each with its
// latest payment
func (s *BookingService) ListByUser(ctx context.Context, user models.AuthUser) ([]models.Booking, error) {
	bookings, err := s.bookings.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	for i := range bookings {
		payment, err := s.payments.GetLatestByBookingID(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].Payment = payment
	}

	return bookings, nil
}

// Cancel moves a pending booking to CANCELLED and releases its tickets.
// Confirmed bookings can not be cancelled here; that would need a refund
// flow, which this service does not have.
func (s *BookingService) Cancel(ctx context.Context, user models.AuthUser, id int64) (*models.Booking, error) {
	log := logger.WithContext(ctx)

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if booking.UserID != user.ID && !user.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	if err := s.bookings.CancelWithRelease(ctx, booking); err != nil {
		return nil, err
	}

	metrics.BookingsCancelledTotal.Inc()
	log.Info("Booking cancelled", "booking_id", booking.ID, "quantity", booking.Quantity)

	if err := s.publisher.Publish(models.EventBookingCancelled, models.BookingCancelledEvent{
		BookingID: booking.ID,
		EventID:   booking.EventID,
		Reason:    "user_cancelled",
		Timestamp: time.Now(),
	}); err != nil {
		log.Warn("Failed to publish booking cancelled event", "booking_id", booking.ID, "error", err)
	}

	return booking, nil
}

// ExpireStale cancels PENDING bookings older than the given age. Races with
// a late confirmation are settled by the status compare-and-set inside
// CancelWithRelease, so a booking confirmed mid-sweep is left alone.
func (s *BookingService) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	log := logger.WithContext(ctx)

	cutoff := time.Now().Add(-maxAge)
	stale, err := s.bookings.GetExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		booking := &stale[i]
		if err := s.bookings.CancelWithRelease(ctx, booking); err != nil {
			if err == apperrors.ErrAlreadyConfirmed || err == apperrors.ErrAlreadyCancelled || err == apperrors.ErrNotFound {
				continue
			}
			log.Error("Failed to expire booking", "booking_id", booking.ID, "error", err)
			continue
		}

		expired++
		metrics.BookingsCancelledTotal.Inc()
		log.Info("Booking expired", "booking_id", booking.ID, "created_at", booking.CreatedAt)

		if err := s.publisher.Publish(models.EventBookingCancelled, models.BookingCancelledEvent{
			BookingID: booking.ID,
			EventID:   booking.EventID,
			Reason:    "expired",
			Timestamp: time.Now(),
		}); err != nil {
			log.Warn("Failed to publish booking cancelled event", "booking_id", booking.ID, "error", err)
		}
	}

	return expired, nil
}
