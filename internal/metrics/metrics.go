package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of rejected booking attempts",
	}, []string{"reason"})

	BookingsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Total number of cancelled bookings",
	})

	PaymentsInitiatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_initiated_total",
		Help: "Total number of STK push payments initiated",
	})

	PaymentInitiationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_initiations_failed_total",
		Help: "Total number of failed STK push initiations",
	})

	CallbacksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpesa_callbacks_processed_total",
		Help: "Total number of M-Pesa callbacks processed",
	}, []string{"outcome"})

	STKPushLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mpesa_stk_push_latency_seconds",
		Help:    "Latency of STK push initiation calls",
		Buckets: prometheus.DefBuckets,
	})
)
