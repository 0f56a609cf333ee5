package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Ronaldkim807/NairobiLB/internal/database"
	apperrors "github.com/Ronaldkim807/NairobiLB/internal/errors"
	"github.com/Ronaldkim807/NairobiLB/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateWithReservation inserts the booking and decrements the ticket type's
// available count in one transaction. The decrement is a single conditional
// statement, never a read-then-write pair, so concurrent bookings against the
// same ticket type can not oversell it. When the condition fails nothing is
// persisted and ErrInsufficientTickets is returned.
func (r *BookingRepository) CreateWithReservation(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	reserveQuery := `
		UPDATE ticket_types
		SET quantity_available = quantity_available - $1
		WHERE id = $2 AND quantity_available >= $1`

	res, err := tx.ExecContext(ctx, reserveQuery, booking.Quantity, booking.TicketTypeID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrInsufficientTickets
	}

	insertQuery := `
		INSERT INTO bookings (user_id, event_id, ticket_type_id, quantity, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowContext(ctx, insertQuery,
		booking.UserID,
		booking.EventID,
		booking.TicketTypeID,
		booking.Quantity,
		booking.TotalAmount,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		SELECT id, user_id, event_id, ticket_type_id, quantity, total_amount, status,
		       created_at, updated_at
		FROM bookings
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.EventID,
		&booking.TicketTypeID,
		&booking.Quantity,
		&booking.TotalAmount,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

func (r *BookingRepository) GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `
		SELECT id, user_id, event_id, ticket_type_id, quantity, total_amount, status,
		       created_at, updated_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.EventID,
			&booking.TicketTypeID,
			&booking.Quantity,
			&booking.TotalAmount,
			&booking.Status,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// CancelWithRelease moves a PENDING booking to CANCELLED and returns its
// tickets in one transaction. The status update is the compare-and-set guard:
// if another transition won the race the update hits zero rows and no tickets
// are released, so a reservation can never be released twice.
func (r *BookingRepository) CancelWithRelease(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cancelQuery := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	res, err := tx.ExecContext(ctx, cancelQuery,
		models.BookingStatusCancelled, booking.ID, models.BookingStatusPending)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = $1`, booking.ID).Scan(&current)
		if err == sql.ErrNoRows {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return err
		}
		if current == models.BookingStatusConfirmed {
			return apperrors.ErrAlreadyConfirmed
		}
		return apperrors.ErrAlreadyCancelled
	}

	releaseQuery := `
		UPDATE ticket_types
		SET quantity_available = quantity_available + $1
		WHERE id = $2`

	if _, err := tx.ExecContext(ctx, releaseQuery, booking.Quantity, booking.TicketTypeID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	booking.Status = models.BookingStatusCancelled
	return nil
}

// GetExpiredPending returns PENDING bookings created before the cutoff, for
// the expiry sweep
func (r *BookingRepository) GetExpiredPending(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `
		SELECT id, user_id, event_id, ticket_type_id, quantity, total_amount, status,
		       created_at, updated_at
		FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.BookingStatusPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.EventID,
			&booking.TicketTypeID,
			&booking.Quantity,
			&booking.TotalAmount,
			&booking.Status,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
