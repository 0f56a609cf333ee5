package repository

import (
	"context"
	"database/sql"

	"github.com/Ronaldkim807/NairobiLB/internal/database"
	"github.com/Ronaldkim807/NairobiLB/internal/models"
)

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (booking_id, amount, provider, provider_ref, phone_number, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		payment.BookingID,
		payment.Amount,
		payment.Provider,
		payment.ProviderRef,
		payment.PhoneNumber,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)

	return err
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT id, booking_id, amount, provider, provider_ref, phone_number, status,
		       created_at, updated_at
		FROM payments
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Amount,
		&payment.Provider,
		&payment.ProviderRef,
		&payment.PhoneNumber,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// FindPendingByProviderRef is the callback-time lookup. Only non-terminal
// payments match: a payment whose reference was already rotated to the
// receipt number is invisible here, which is what makes a replayed callback
// a no-op.
func (r *PaymentRepository) FindPendingByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT id, booking_id, amount, provider, provider_ref, phone_number, status,
		       created_at, updated_at
		FROM payments
		WHERE provider_ref = $1 AND status = $2`

	err := r.db.QueryRowContext(ctx, query, providerRef, models.PaymentStatusPending).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Amount,
		&payment.Provider,
		&payment.ProviderRef,
		&payment.PhoneNumber,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

func (r *PaymentRepository) GetLatestByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT id, booking_id, amount, provider, provider_ref, phone_number, status,
		       created_at, updated_at
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Amount,
		&payment.Provider,
		&payment.ProviderRef,
		&payment.PhoneNumber,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// MarkSuccess moves a PENDING payment to SUCCESS and confirms its booking in
// one transaction. The payment's provider_ref is overwritten with the receipt
// number so the original correlation reference can never match again. The
// booking update is its own compare-and-set: a booking the user already
// cancelled stays cancelled. Returns false when the payment was no longer
// pending.
func (r *PaymentRepository) MarkSuccess(ctx context.Context, paymentID, bookingID int64, receipt string, amount int64, phone string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	paymentQuery := `
		UPDATE payments
		SET status = $1, provider_ref = $2, amount = $3, phone_number = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6`

	res, err := tx.ExecContext(ctx, paymentQuery,
		models.PaymentStatusSuccess, receipt, amount, phone,
		paymentID, models.PaymentStatusPending)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	bookingQuery := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	if _, err := tx.ExecContext(ctx, bookingQuery,
		models.BookingStatusConfirmed, bookingID, models.BookingStatusPending); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// MarkFailed moves a PENDING payment to FAILED, cancels its booking, and
// returns the reserved tickets in one transaction. Tickets are released only
// when the booking compare-and-set actually transitions the row; a booking
// already cancelled by the user has released its tickets already.
func (r *PaymentRepository) MarkFailed(ctx context.Context, paymentID int64, booking *models.Booking) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	paymentQuery := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	res, err := tx.ExecContext(ctx, paymentQuery,
		models.PaymentStatusFailed, paymentID, models.PaymentStatusPending)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	bookingQuery := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	res, err = tx.ExecContext(ctx, bookingQuery,
		models.BookingStatusCancelled, booking.ID, models.BookingStatusPending)
	if err != nil {
		return false, err
	}

	cancelled, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if cancelled == 1 {
		releaseQuery := `
			UPDATE ticket_types
			SET quantity_available = quantity_available + $1
			WHERE id = $2`

		if _, err := tx.ExecContext(ctx, releaseQuery, booking.Quantity, booking.TicketTypeID); err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}
