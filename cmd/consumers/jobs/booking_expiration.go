package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ronaldkim807/NairobiLB/internal/service"
)

// BookingExpiration periodically cancels PENDING bookings the user abandoned,
// returning their tickets to the pool. A booking confirmed between the sweep's
// read and its cancel attempt is skipped by the status compare-and-set.
type BookingExpiration struct {
	bookings *service.BookingService
	maxAge   time.Duration
	interval time.Duration
}

func NewBookingExpiration(bookings *service.BookingService, maxAge time.Duration) *BookingExpiration {
	interval := maxAge / 3
	if interval < time.Minute {
		interval = time.Minute
	}

	return &BookingExpiration{
		bookings: bookings,
		maxAge:   maxAge,
		interval: interval,
	}
}

// Run sweeps until the context is cancelled
func (j *BookingExpiration) Run(ctx context.Context) {
	slog.Info("Booking expiration job started", "max_age", j.maxAge, "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Booking expiration job stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *BookingExpiration) sweep(ctx context.Context) {
	expired, err := j.bookings.ExpireStale(ctx, j.maxAge)
	if err != nil {
		slog.Error("Booking expiration sweep failed", "error", err)
		return
	}
	if expired > 0 {
		slog.Info("Expired stale bookings", "count", expired)
	}
}
