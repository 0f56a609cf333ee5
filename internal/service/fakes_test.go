package service

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/Ronaldkim807/NairobiLB/internal/errors"
	"github.com/Ronaldkim807/NairobiLB/internal/external"
	"github.com/Ronaldkim807/NairobiLB/internal/models"
)

// memStore is an in-memory implementation of the store interfaces with the
// same transactional semantics as the SQL repositories: one mutex plays the
// role of the database, so the conditional decrement and the status
// compare-and-sets behave atomically under concurrent callers.
type memStore struct {
	mu sync.Mutex

	events      map[int64]*models.Event
	ticketTypes map[int64]*models.TicketType
	bookings    map[int64]*models.Booking
	payments    map[int64]*models.Payment

	nextBookingID int64
	nextPaymentID int64
}

func newMemStore() *memStore {
	return &memStore{
		events:      make(map[int64]*models.Event),
		ticketTypes: make(map[int64]*models.TicketType),
		bookings:    make(map[int64]*models.Booking),
		payments:    make(map[int64]*models.Payment),
	}
}

func (m *memStore) addEvent(id int64, active bool) {
	m.events[id] = &models.Event{ID: id, Title: "Test Event", IsActive: active}
}

func (m *memStore) addTicketType(id, eventID, price int64, available int) {
	m.ticketTypes[id] = &models.TicketType{
		ID:                id,
		EventID:           eventID,
		Price:             price,
		QuantityTotal:     available,
		QuantityAvailable: available,
	}
}

func (m *memStore) available(ticketTypeID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticketTypes[ticketTypeID].QuantityAvailable
}

func (m *memStore) bookingStatus(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookings[id].Status
}

func (m *memStore) paymentByID(id int64) models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.payments[id]
}

// BookingStore

func (m *memStore) CreateWithReservation(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tt, ok := m.ticketTypes[booking.TicketTypeID]
	if !ok || tt.QuantityAvailable < booking.Quantity {
		return apperrors.ErrInsufficientTickets
	}
	tt.QuantityAvailable -= booking.Quantity

	m.nextBookingID++
	booking.ID = m.nextBookingID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	stored := *booking
	m.bookings[booking.ID] = &stored
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (m *memStore) GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Booking
	for id := m.nextBookingID; id >= 1; id-- {
		if booking, ok := m.bookings[id]; ok && booking.UserID == userID {
			result = append(result, *booking)
		}
	}
	return result, nil
}

func (m *memStore) CancelWithRelease(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.bookings[booking.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Status != models.BookingStatusPending {
		if stored.Status == models.BookingStatusConfirmed {
			return apperrors.ErrAlreadyConfirmed
		}
		return apperrors.ErrAlreadyCancelled
	}

	stored.Status = models.BookingStatusCancelled
	m.ticketTypes[stored.TicketTypeID].QuantityAvailable += stored.Quantity
	booking.Status = models.BookingStatusCancelled
	return nil
}

func (m *memStore) GetExpiredPending(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Booking
	for id := int64(1); id <= m.nextBookingID; id++ {
		booking, ok := m.bookings[id]
		if ok && booking.Status == models.BookingStatusPending && booking.CreatedAt.Before(cutoff) {
			result = append(result, *booking)
		}
	}
	return result, nil
}

// EventStore; the method set does not collide with BookingStore's GetByID
// because events are looked up through a separate fake

type memEventStore struct {
	store *memStore
}

func (m *memEventStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	event, ok := m.store.events[id]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

// TicketTypeStore

type memTicketTypeStore struct {
	store *memStore
}

func (m *memTicketTypeStore) GetByID(ctx context.Context, id int64) (*models.TicketType, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	tt, ok := m.store.ticketTypes[id]
	if !ok {
		return nil, nil
	}
	copied := *tt
	return &copied, nil
}

func (m *memTicketTypeStore) GetByEventID(ctx context.Context, eventID int64) ([]models.TicketType, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var result []models.TicketType
	for _, tt := range m.store.ticketTypes {
		if tt.EventID == eventID {
			result = append(result, *tt)
		}
	}
	return result, nil
}

// PaymentStore

type memPaymentStore struct {
	store *memStore
}

func (m *memPaymentStore) Create(ctx context.Context, payment *models.Payment) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	m.store.nextPaymentID++
	payment.ID = m.store.nextPaymentID
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt

	stored := *payment
	m.store.payments[payment.ID] = &stored
	return nil
}

func (m *memPaymentStore) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	payment, ok := m.store.payments[id]
	if !ok {
		return nil, nil
	}
	copied := *payment
	return &copied, nil
}

func (m *memPaymentStore) FindPendingByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	for _, payment := range m.store.payments {
		if payment.ProviderRef == providerRef && payment.Status == models.PaymentStatusPending {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memPaymentStore) GetLatestByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var latest *models.Payment
	for _, payment := range m.store.payments {
		if payment.BookingID == bookingID && (latest == nil || payment.ID > latest.ID) {
			latest = payment
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (m *memPaymentStore) MarkSuccess(ctx context.Context, paymentID, bookingID int64, receipt string, amount int64, phone string) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	payment, ok := m.store.payments[paymentID]
	if !ok || payment.Status != models.PaymentStatusPending {
		return false, nil
	}

	payment.Status = models.PaymentStatusSuccess
	payment.ProviderRef = receipt
	payment.Amount = amount
	payment.PhoneNumber = phone

	if booking, ok := m.store.bookings[bookingID]; ok && booking.Status == models.BookingStatusPending {
		booking.Status = models.BookingStatusConfirmed
	}
	return true, nil
}

func (m *memPaymentStore) MarkFailed(ctx context.Context, paymentID int64, booking *models.Booking) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	payment, ok := m.store.payments[paymentID]
	if !ok || payment.Status != models.PaymentStatusPending {
		return false, nil
	}
	payment.Status = models.PaymentStatusFailed

	if stored, ok := m.store.bookings[booking.ID]; ok && stored.Status == models.BookingStatusPending {
		stored.Status = models.BookingStatusCancelled
		m.store.ticketTypes[stored.TicketTypeID].QuantityAvailable += stored.Quantity
	}
	return true, nil
}

// fakePublisher records published messages

type publishedMessage struct {
	Subject string
	Data    interface{}
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, publishedMessage{Subject: subject, Data: data})
	return nil
}

func (p *fakePublisher) countBySubject(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, msg := range p.messages {
		if msg.Subject == subject {
			count++
		}
	}
	return count
}

// fakeGateway is a scripted STK gateway

type stkCall struct {
	Phone      string
	Amount     int64
	AccountRef string
}

type fakeGateway struct {
	mu       sync.Mutex
	calls    []stkCall
	response *external.STKPushResponse
	err      error
}

func (g *fakeGateway) InitiateSTKPush(ctx context.Context, phone string, amount int64, accountRef, description string) (*external.STKPushResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, stkCall{Phone: phone, Amount: amount, AccountRef: accountRef})
	if g.err != nil {
		return nil, g.err
	}
	return g.response, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
