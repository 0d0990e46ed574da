package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_router_payments_accepted_total",
		Help: "Payments accepted and queued for processing",
	})
	PaymentsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_router_payments_rejected_total",
		Help: "Payment submissions rejected by validation",
	})
	PaymentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_router_payments_processed_total",
		Help: "Payments confirmed by a gateway, by gateway",
	}, []string{"gateway"})
	PaymentAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_router_payment_attempts_total",
		Help: "Payment submissions sent upstream, by gateway and outcome",
	}, []string{"gateway", "outcome"})
	StoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_router_store_failures_total",
		Help: "Confirmed payments that could not be persisted",
	})
	GatewaySwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_router_gateway_switches_total",
		Help: "Changes of the selected gateway, by cause",
	}, []string{"cause"})
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_router_http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests, by route and status",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1},
	}, []string{"route", "status"})
)

const (
	OutcomeSuccess   = "success"
	OutcomeRetry     = "retry"
	OutcomeOverride  = "override"
	CauseHealthCheck = "health_check"
	CauseEmergency   = "emergency"
)

// RegisterQueueDepth exports the current length of a payment queue.
func RegisterQueueDepth(length func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "payment_router_queue_depth",
		Help: "Payments waiting in this process's queue",
	}, func() float64 {
		return float64(length())
	})
}
