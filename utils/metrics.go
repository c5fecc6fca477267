package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AvailabilityQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metis_availability_queries_total",
			Help: "Slot availability queries by result",
		},
		[]string{"result"},
	)

	BookingSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metis_booking_submissions_total",
			Help: "Booking submissions by result",
		},
		[]string{"result"},
	)

	PaymentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metis_payment_outcomes_total",
			Help: "Payment workflow outcomes",
		},
		[]string{"outcome"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metis_http_requests_total",
			Help: "Local API requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metis_http_request_duration_seconds",
			Help:    "Local API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
