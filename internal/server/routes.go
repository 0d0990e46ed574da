package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *HttpServer) loadRoutes(mux *http.ServeMux) http.HandlerFunc {
	mux.HandleFunc("GET /payments-summary", s.paymentsSummary)
	mux.HandleFunc("POST /purge-payments", s.purgePayments)
	mux.HandleFunc("POST /payments", s.createPayment)
	mux.HandleFunc("GET /healthcheck", s.healthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux.ServeHTTP
}
