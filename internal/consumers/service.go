package consumers

import (
	"log/slog"

	"github.com/Ronaldkim807/NairobiLB/internal/messaging"
	"github.com/Ronaldkim807/NairobiLB/internal/models"

	"github.com/nats-io/stan.go"
)

const queueGroup = "nairobilb-consumers"

// Service subscribes to the domain event subjects and fans each message out
// to its handler. Handlers ack explicitly; an unacked message is redelivered
// after the ack wait.
type Service struct {
	nats *messaging.NATSClient
	subs []stan.Subscription
}

func NewService(nats *messaging.NATSClient) *Service {
	return &Service{nats: nats}
}

// Start subscribes to all subjects. Subscriptions are durable, so messages
// published while the consumer was down are delivered on restart.
func (s *Service) Start() error {
	subjects := map[string]stan.MsgHandler{
		models.EventBookingCreated:   s.handleBookingCreated,
		models.EventPaymentInitiated: s.handlePaymentInitiated,
		models.EventPaymentCompleted: s.handlePaymentCompleted,
		models.EventPaymentFailed:    s.handlePaymentFailed,
		models.EventBookingCancelled: s.handleBookingCancelled,
	}

	for subject, handler := range subjects {
		sub, err := s.nats.SubscribeQueue(subject, queueGroup, handler)
		if err != nil {
			s.Stop()
			return err
		}
		s.subs = append(s.subs, sub)
	}

	slog.Info("Consumer service started", "subscriptions", len(s.subs))
	return nil
}

// Stop closes all subscriptions. Durable state is kept so redelivery resumes
// where it left off.
func (s *Service) Stop() {
	for _, sub := range s.subs {
		if err := sub.Close(); err != nil {
			slog.Error("Failed to close subscription", "error", err)
		}
	}
	s.subs = nil
}
