package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CallbacksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_received_total",
		Help: "Total number of gateway callbacks received, by resolved outcome",
	}, []string{"outcome"})

	CallbackVerificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_callback_verification_failures_total",
		Help: "Total number of callbacks rejected for hash mismatch",
	})

	CallbackProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_callback_processing_latency_seconds",
		Help:    "Latency of callback verification and state transition",
		Buckets: prometheus.DefBuckets,
	})

	PaymentsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_completed_total",
		Help: "Total number of orders transitioned to completed",
	})

	PaymentsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of orders transitioned to failed",
	})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created at checkout",
	})

	NotificationsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_recorded_total",
		Help: "Total number of customer notifications recorded",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
