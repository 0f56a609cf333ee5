package service

import (
	"context"
	"fmt"
	"testing"

	apperrors "github.com/Ronaldkim807/NairobiLB/internal/errors"
	"github.com/Ronaldkim807/NairobiLB/internal/external"
	"github.com/Ronaldkim807/NairobiLB/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentService(store *memStore, gateway *fakeGateway) (*PaymentService, *fakePublisher) {
	publisher := &fakePublisher{}
	svc := NewPaymentService(&memPaymentStore{store: store}, store, gateway, publisher)
	return svc, publisher
}

func seedBooking(t *testing.T, store *memStore, userID int64, quantity int) *models.Booking {
	t.Helper()

	bookingSvc, _ := newBookingService(store)
	booking, err := bookingSvc.Create(context.Background(), models.AuthUser{ID: userID}, &models.CreateBookingRequest{
		EventID: 1, TicketTypeID: 1, Quantity: quantity,
	})
	require.NoError(t, err)
	return booking
}

func successCallback(checkoutRequestID, receipt string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": %q,
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": %d},
						{"Name": "MpesaReceiptNumber", "Value": %q},
						{"Name": "TransactionDate", "Value": 20260901143022},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`, checkoutRequestID, amount, receipt))
}

func failureCallback(checkoutRequestID string, code int, desc string) []byte {
	return []byte(fmt.Sprintf(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": %q,
				"ResultCode": %d,
				"ResultDesc": %q
			}
		}
	}`, checkoutRequestID, code, desc))
}

func TestInitiatePayment(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 2000, 10)
	booking := seedBooking(t, store, 5, 2)

	gateway := &fakeGateway{response: &external.STKPushResponse{
		CheckoutRequestID: "ws_CO_270820251234",
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}}
	svc, publisher := newPaymentService(store, gateway)

	resp, err := svc.Initiate(context.Background(), models.AuthUser{ID: 5}, &models.InitiatePaymentRequest{
		BookingID:   booking.ID,
		PhoneNumber: "0712345678",
	})
	require.NoError(t, err)

	payment := resp.Payment
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, "ws_CO_270820251234", payment.ProviderRef)
	assert.Equal(t, "MPESA", payment.Provider)
	// Amount comes from the stored booking, and the phone is normalized
	assert.Equal(t, int64(4000), payment.Amount)
	assert.Equal(t, "254712345678", payment.PhoneNumber)

	require.Equal(t, 1, gateway.callCount())
	assert.Equal(t, "254712345678", gateway.calls[0].Phone)
	assert.Equal(t, int64(4000), gateway.calls[0].Amount)
	assert.Equal(t, 1, publisher.countBySubject(models.EventPaymentInitiated))
}

// A price edit after booking must not change what the booking owes: the
// total is computed once at creation and the charge uses the stored total.
func TestInitiatePaymentUsesBookingTimeTotal(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 2)
	require.Equal(t, int64(2000), booking.TotalAmount)

	store.mu.Lock()
	store.ticketTypes[1].Price = 9999
	store.mu.Unlock()

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_1", ResponseCode: "0"}}
	svc, _ := newPaymentService(store, gateway)

	payment := initiatePayment(t, svc, 1, booking.ID)
	assert.Equal(t, int64(2000), payment.Amount)
	assert.Equal(t, int64(2000), gateway.calls[0].Amount)
}

func TestInitiatePaymentRejectsSettledBookings(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)

	confirmed := seedBooking(t, store, 1, 1)
	cancelled := seedBooking(t, store, 1, 1)

	store.mu.Lock()
	store.bookings[confirmed.ID].Status = models.BookingStatusConfirmed
	store.bookings[cancelled.ID].Status = models.BookingStatusCancelled
	store.mu.Unlock()

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_1", ResponseCode: "0"}}
	svc, _ := newPaymentService(store, gateway)
	user := models.AuthUser{ID: 1}

	_, err := svc.Initiate(context.Background(), user, &models.InitiatePaymentRequest{BookingID: confirmed.ID, PhoneNumber: "0712345678"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyConfirmed)

	_, err = svc.Initiate(context.Background(), user, &models.InitiatePaymentRequest{BookingID: cancelled.ID, PhoneNumber: "0712345678"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)

	_, err = svc.Initiate(context.Background(), user, &models.InitiatePaymentRequest{BookingID: 999, PhoneNumber: "0712345678"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, 0, gateway.callCount())
}

func TestInitiatePaymentForbiddenForStranger(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 1)

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_1", ResponseCode: "0"}}
	svc, _ := newPaymentService(store, gateway)

	_, err := svc.Initiate(context.Background(), models.AuthUser{ID: 2}, &models.InitiatePaymentRequest{
		BookingID: booking.ID, PhoneNumber: "0712345678",
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Equal(t, 0, gateway.callCount())
}

func TestInitiatePaymentGatewayFailure(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 1)

	gateway := &fakeGateway{err: &external.GatewayError{StatusCode: 503, Body: "Service Unavailable"}}
	svc, publisher := newPaymentService(store, gateway)

	_, err := svc.Initiate(context.Background(), models.AuthUser{ID: 1}, &models.InitiatePaymentRequest{
		BookingID: booking.ID, PhoneNumber: "0712345678",
	})

	var gatewayErr *external.GatewayError
	require.ErrorAs(t, err, &gatewayErr)

	// No payment row exists and the booking is still payable
	payments := &memPaymentStore{store: store}
	latest, err := payments.GetLatestByBookingID(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
	assert.Equal(t, models.BookingStatusPending, store.bookingStatus(booking.ID))
	assert.Equal(t, 0, publisher.countBySubject(models.EventPaymentInitiated))
}

func initiatePayment(t *testing.T, svc *PaymentService, userID, bookingID int64) *models.Payment {
	t.Helper()

	resp, err := svc.Initiate(context.Background(), models.AuthUser{ID: userID}, &models.InitiatePaymentRequest{
		BookingID:   bookingID,
		PhoneNumber: "0712345678",
	})
	require.NoError(t, err)
	return resp.Payment
}

func TestHandleCallbackSuccess(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 2)

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_abc", ResponseCode: "0"}}
	svc, publisher := newPaymentService(store, gateway)
	payment := initiatePayment(t, svc, 1, booking.ID)

	ack := svc.HandleCallback(context.Background(), successCallback("ws_CO_abc", "TAS1234XYZ", 2000))
	assert.Equal(t, 0, ack.ResultCode)

	settled := store.paymentByID(payment.ID)
	assert.Equal(t, models.PaymentStatusSuccess, settled.Status)
	// The provider reference rotates to the receipt number
	assert.Equal(t, "TAS1234XYZ", settled.ProviderRef)
	assert.Equal(t, models.BookingStatusConfirmed, store.bookingStatus(booking.ID))
	assert.Equal(t, 8, store.available(1))
	assert.Equal(t, 1, publisher.countBySubject(models.EventPaymentCompleted))
}

func TestHandleCallbackReplayIsNoOp(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 2)

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_abc", ResponseCode: "0"}}
	svc, publisher := newPaymentService(store, gateway)
	payment := initiatePayment(t, svc, 1, booking.ID)

	body := successCallback("ws_CO_abc", "TAS1234XYZ", 2000)
	ack := svc.HandleCallback(context.Background(), body)
	require.Equal(t, 0, ack.ResultCode)

	// Redelivery of the same callback: still acknowledged, nothing changes
	ack = svc.HandleCallback(context.Background(), body)
	assert.Equal(t, 0, ack.ResultCode)

	settled := store.paymentByID(payment.ID)
	assert.Equal(t, models.PaymentStatusSuccess, settled.Status)
	assert.Equal(t, "TAS1234XYZ", settled.ProviderRef)
	assert.Equal(t, 8, store.available(1))
	assert.Equal(t, 1, publisher.countBySubject(models.EventPaymentCompleted))
}

func TestHandleCallbackFailureReleasesTickets(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 3)

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_abc", ResponseCode: "0"}}
	svc, publisher := newPaymentService(store, gateway)
	payment := initiatePayment(t, svc, 1, booking.ID)
	require.Equal(t, 7, store.available(1))

	ack := svc.HandleCallback(context.Background(), failureCallback("ws_CO_abc", 1032, "Request cancelled by user"))
	assert.Equal(t, 0, ack.ResultCode)

	assert.Equal(t, models.PaymentStatusFailed, store.paymentByID(payment.ID).Status)
	assert.Equal(t, models.BookingStatusCancelled, store.bookingStatus(booking.ID))
	assert.Equal(t, 10, store.available(1))
	assert.Equal(t, 1, publisher.countBySubject(models.EventPaymentFailed))
}

func TestHandleCallbackFailureReplayReleasesOnce(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 3)

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_abc", ResponseCode: "0"}}
	svc, _ := newPaymentService(store, gateway)
	initiatePayment(t, svc, 1, booking.ID)

	body := failureCallback("ws_CO_abc", 1037, "DS timeout")
	svc.HandleCallback(context.Background(), body)
	svc.HandleCallback(context.Background(), body)

	assert.Equal(t, 10, store.available(1))
}

// A success callback that loses the race against a user cancellation settles
// the payment but must not resurrect the cancelled booking or double-release
// its tickets.
func TestHandleCallbackSuccessAfterUserCancel(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 2)

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_abc", ResponseCode: "0"}}
	svc, _ := newPaymentService(store, gateway)
	payment := initiatePayment(t, svc, 1, booking.ID)

	bookingSvc, _ := newBookingService(store)
	_, err := bookingSvc.Cancel(context.Background(), models.AuthUser{ID: 1}, booking.ID)
	require.NoError(t, err)
	require.Equal(t, 10, store.available(1))

	ack := svc.HandleCallback(context.Background(), successCallback("ws_CO_abc", "TAS1234XYZ", 2000))
	assert.Equal(t, 0, ack.ResultCode)

	// Payment settles with its receipt; the booking stays cancelled
	assert.Equal(t, models.PaymentStatusSuccess, store.paymentByID(payment.ID).Status)
	assert.Equal(t, models.BookingStatusCancelled, store.bookingStatus(booking.ID))
	assert.Equal(t, 10, store.available(1))
}

func TestHandleCallbackFailureAfterUserCancel(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 2)

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_abc", ResponseCode: "0"}}
	svc, _ := newPaymentService(store, gateway)
	payment := initiatePayment(t, svc, 1, booking.ID)

	bookingSvc, _ := newBookingService(store)
	_, err := bookingSvc.Cancel(context.Background(), models.AuthUser{ID: 1}, booking.ID)
	require.NoError(t, err)

	svc.HandleCallback(context.Background(), failureCallback("ws_CO_abc", 1032, "Request cancelled by user"))

	assert.Equal(t, models.PaymentStatusFailed, store.paymentByID(payment.ID).Status)
	// Cancellation already released the tickets; the callback must not again
	assert.Equal(t, 10, store.available(1))
}

func TestHandleCallbackUnmatchedAndMalformed(t *testing.T) {
	store := newMemStore()
	gateway := &fakeGateway{}
	svc, _ := newPaymentService(store, gateway)

	tests := []struct {
		name string
		body []byte
	}{
		{"unknown reference", successCallback("ws_CO_unknown", "TAS1", 100)},
		{"not json", []byte(`this is not json`)},
		{"empty body", nil},
		{"json without callback", []byte(`{"hello":"world"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := svc.HandleCallback(context.Background(), tt.body)
			require.NotNil(t, ack)
			assert.Equal(t, 0, ack.ResultCode)
			assert.Equal(t, "Success", ack.ResultDesc)
		})
	}
}

func TestHandleCallbackMissingMetadataFallsBack(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 2)

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_abc", ResponseCode: "0"}}
	svc, _ := newPaymentService(store, gateway)
	payment := initiatePayment(t, svc, 1, booking.ID)

	// Success callback with no CallbackMetadata at all
	body := []byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_abc","ResultCode":0,"ResultDesc":"ok"}}}`)
	ack := svc.HandleCallback(context.Background(), body)
	assert.Equal(t, 0, ack.ResultCode)

	settled := store.paymentByID(payment.ID)
	assert.Equal(t, models.PaymentStatusSuccess, settled.Status)
	// Stored amount and phone survive; the reference stays usable as receipt
	assert.Equal(t, int64(2000), settled.Amount)
	assert.Equal(t, "254712345678", settled.PhoneNumber)
	assert.Equal(t, models.BookingStatusConfirmed, store.bookingStatus(booking.ID))
}

func TestPaymentStatus(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, true)
	store.addTicketType(1, 1, 1000, 10)
	booking := seedBooking(t, store, 1, 1)

	gateway := &fakeGateway{response: &external.STKPushResponse{CheckoutRequestID: "ws_CO_abc", ResponseCode: "0"}}
	svc, _ := newPaymentService(store, gateway)
	payment := initiatePayment(t, svc, 1, booking.ID)

	resp, err := svc.Status(context.Background(), models.AuthUser{ID: 1}, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, resp.Payment.ID)
	assert.Equal(t, booking.ID, resp.Booking.ID)

	_, err = svc.Status(context.Background(), models.AuthUser{ID: 2}, payment.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Status(context.Background(), models.AuthUser{ID: 1}, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
