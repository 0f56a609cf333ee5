package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Ronaldkim807/NairobiLB/internal/errors"
	"github.com/Ronaldkim807/NairobiLB/internal/external"
	"github.com/Ronaldkim807/NairobiLB/internal/logger"
	"github.com/Ronaldkim807/NairobiLB/internal/metrics"
	"github.com/Ronaldkim807/NairobiLB/internal/models"
)

// PaymentService drives the STK push flow and reconciles the asynchronous
// gateway callbacks against stored payments.
type PaymentService struct {
	payments PaymentStore
	bookings BookingStore
	gateway  STKGateway

	publisher EventPublisher
}

func NewPaymentService(payments PaymentStore, bookings BookingStore, gateway STKGateway, publisher EventPublisher) *PaymentService {
	return &PaymentService{
		payments:  payments,
		bookings:  bookings,
		gateway:   gateway,
		publisher: publisher,
	}
}

// Initiate pushes a charge for the booking's total to the customer's phone
// and persists the payment attempt keyed by the gateway's CheckoutRequestID.
// The charged amount always comes from the stored booking, never from the
// request.
func (s *PaymentService) Initiate(ctx context.Context, user models.AuthUser, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error) {
	log := logger.WithContext(ctx)

	booking, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if booking.UserID != user.ID && !user.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	switch booking.Status {
	case models.BookingStatusConfirmed:
		return nil, apperrors.ErrAlreadyConfirmed
	case models.BookingStatusCancelled:
		return nil, apperrors.ErrAlreadyCancelled
	}

	phone := external.FormatPhoneNumber(req.PhoneNumber)
	accountRef := fmt.Sprintf("Event-%d", booking.EventID)

	start := time.Now()
	resp, err := s.gateway.InitiateSTKPush(ctx, phone, booking.TotalAmount, accountRef, "Ticket payment")
	metrics.STKPushLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PaymentInitiationsFailed.Inc()
		log.Error("STK push failed", "booking_id", booking.ID, "error", err)
		return nil, err
	}

	payment := &models.Payment{
		BookingID:   booking.ID,
		Amount:      booking.TotalAmount,
		Provider:    "MPESA",
		ProviderRef: resp.CheckoutRequestID,
		PhoneNumber: phone,
		Status:      models.PaymentStatusPending,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		// The charge was accepted by the gateway but we lost the record of
		// it. Nothing safe to retry here; the callback will arrive and log
		// as unmatched.
		log.Error("Failed to persist payment after gateway accept",
			"booking_id", booking.ID,
			"checkout_request_id", resp.CheckoutRequestID,
			"error", err,
		)
		return nil, err
	}

	metrics.PaymentsInitiatedTotal.Inc()
	log.Info("Payment initiated",
		"payment_id", payment.ID,
		"booking_id", booking.ID,
		"amount", payment.Amount,
		"checkout_request_id", resp.CheckoutRequestID,
	)

	if err := s.publisher.Publish(models.EventPaymentInitiated, models.PaymentInitiatedEvent{
		BookingID:   booking.ID,
		PaymentID:   payment.ID,
		ProviderRef: payment.ProviderRef,
		Amount:      payment.Amount,
		Timestamp:   time.Now(),
	}); err != nil {
		log.Warn("Failed to publish payment initiated event", "payment_id", payment.ID, "error", err)
	}

	return &models.InitiatePaymentResponse{
		Payment:         payment,
		CustomerMessage: resp.CustomerMessage,
	}, nil
}

// HandleCallback reconciles a raw gateway callback body. It never returns an
// error: whatever happens, the gateway gets a success acknowledgement,
// because anything else makes Safaricom redeliver the same callback and
// every path below is already safe against replays.
func (s *PaymentService) HandleCallback(ctx context.Context, raw []byte) *models.CallbackAck {
	log := logger.WithContext(ctx)
	ack := &models.CallbackAck{ResultCode: 0, ResultDesc: "Success"}

	result, err := external.ParseSTKCallback(raw)
	if err != nil {
		metrics.CallbacksProcessedTotal.WithLabelValues("malformed").Inc()
		log.Warn("Discarding malformed callback", "error", err, "body_len", len(raw))
		return ack
	}

	payment, err := s.payments.FindPendingByProviderRef(ctx, result.CheckoutRequestID)
	if err != nil {
		metrics.CallbacksProcessedTotal.WithLabelValues("error").Inc()
		log.Error("Callback lookup failed", "checkout_request_id", result.CheckoutRequestID, "error", err)
		return ack
	}
	if payment == nil {
		// Unknown reference or a replay of an already-settled payment
		metrics.CallbacksProcessedTotal.WithLabelValues("unmatched").Inc()
		log.Info("Callback matched no pending payment", "checkout_request_id", result.CheckoutRequestID)
		return ack
	}

	if result.Success() {
		s.settleSuccess(ctx, payment, result)
	} else {
		s.settleFailure(ctx, payment, result)
	}

	return ack
}

func (s *PaymentService) settleSuccess(ctx context.Context, payment *models.Payment, result *external.CallbackResult) {
	log := logger.WithContext(ctx)

	amount := payment.Amount
	if result.Amount != nil {
		if *result.Amount != payment.Amount {
			log.Warn("Callback amount differs from initiated amount",
				"payment_id", payment.ID,
				"initiated", payment.Amount,
				"reported", *result.Amount,
			)
		}
		amount = *result.Amount
	}

	receipt := result.ReceiptNumber
	if receipt == "" {
		log.Warn("Success callback without receipt number", "payment_id", payment.ID)
		receipt = payment.ProviderRef
	}

	phone := result.PhoneNumber
	if phone == "" {
		phone = payment.PhoneNumber
	}

	transitioned, err := s.payments.MarkSuccess(ctx, payment.ID, payment.BookingID, receipt, amount, phone)
	if err != nil {
		metrics.CallbacksProcessedTotal.WithLabelValues("error").Inc()
		log.Error("Failed to settle successful payment", "payment_id", payment.ID, "error", err)
		return
	}
	if !transitioned {
		metrics.CallbacksProcessedTotal.WithLabelValues("replayed").Inc()
		log.Info("Payment already settled, callback ignored", "payment_id", payment.ID)
		return
	}

	metrics.CallbacksProcessedTotal.WithLabelValues("success").Inc()
	log.Info("Payment completed",
		"payment_id", payment.ID,
		"booking_id", payment.BookingID,
		"receipt", receipt,
		"amount", amount,
	)

	if err := s.publisher.Publish(models.EventPaymentCompleted, models.PaymentCompletedEvent{
		BookingID: payment.BookingID,
		PaymentID: payment.ID,
		Receipt:   receipt,
		Amount:    amount,
		Timestamp: time.Now(),
	}); err != nil {
		log.Warn("Failed to publish payment completed event", "payment_id", payment.ID, "error", err)
	}
}

func (s *PaymentService) settleFailure(ctx context.Context, payment *models.Payment, result *external.CallbackResult) {
	log := logger.WithContext(ctx)

	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if err != nil || booking == nil {
		metrics.CallbacksProcessedTotal.WithLabelValues("error").Inc()
		log.Error("Failed to load booking for failed payment",
			"payment_id", payment.ID, "booking_id", payment.BookingID, "error", err)
		return
	}

	transitioned, err := s.payments.MarkFailed(ctx, payment.ID, booking)
	if err != nil {
		metrics.CallbacksProcessedTotal.WithLabelValues("error").Inc()
		log.Error("Failed to settle failed payment", "payment_id", payment.ID, "error", err)
		return
	}
	if !transitioned {
		metrics.CallbacksProcessedTotal.WithLabelValues("replayed").Inc()
		log.Info("Payment already settled, callback ignored", "payment_id", payment.ID)
		return
	}

	metrics.CallbacksProcessedTotal.WithLabelValues("failed").Inc()
	log.Info("Payment failed",
		"payment_id", payment.ID,
		"booking_id", payment.BookingID,
		"result_code", result.ResultCode,
		"result_desc", result.ResultDesc,
	)

	if err := s.publisher.Publish(models.EventPaymentFailed, models.PaymentFailedEvent{
		BookingID: payment.BookingID,
		PaymentID: payment.ID,
		Reason:    result.ResultDesc,
		Timestamp: time.Now(),
	}); err != nil {
		log.Warn("Failed to publish payment failed event", "payment_id", payment.ID, "error", err)
	}
}

// Status returns the payment with its booking; only the booking owner or an
// admin may read it
func (s *PaymentService) Status(ctx context.Context, user models.AuthUser, paymentID int64) (*models.PaymentStatusResponse, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperrors.ErrNotFound
	}

	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if booking.UserID != user.ID && !user.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	return &models.PaymentStatusResponse{
		Payment: payment,
		Booking: booking,
	}, nil
}
