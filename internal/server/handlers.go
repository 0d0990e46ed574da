package server

import (
	"io"
	"log/slog"
	"net/http"
	"payment-router/internal/dtos"
	"payment-router/internal/metrics"
)

func (s *HttpServer) paymentsSummary(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateTime(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	to, err := parseDateTime(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := s.ps.GetSummary(r.Context(), dtos.GetPaymentsSummaryFilters{From: from, To: to})
	if err != nil {
		slog.Error("error while fetching payments summary", "error", err)
		http.Error(w, "Error while fetching payments summary", http.StatusInternalServerError)
		return
	}

	summaryResponse := dtos.GetPaymentSummaryResponse{
		Default:  dtos.PaymentSummary(summary.Default),
		Fallback: dtos.PaymentSummary(summary.Fallback),
	}

	writeJSON(w, http.StatusOK, summaryResponse)
}

func (s *HttpServer) createPayment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("cannot read request body", "error", err)
		http.Error(w, "Cannot read request body", http.StatusUnprocessableEntity)
		return
	}

	defer r.Body.Close()

	var payment dtos.CreatePaymentRequest
	if err := json.Unmarshal(body, &payment); err != nil {
		metrics.PaymentsRejected.Inc()
		http.Error(w, "Cannot unmarshal request body", http.StatusUnprocessableEntity)
		return
	}

	if payment.CorrelationId == nil || payment.Amount == nil {
		metrics.PaymentsRejected.Inc()
		http.Error(w, "correlationId and amount are required", http.StatusUnprocessableEntity)
		return
	}

	if err := s.ps.RequestProcessing(*payment.CorrelationId, *payment.Amount); err != nil {
		metrics.PaymentsRejected.Inc()
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	metrics.PaymentsAccepted.Inc()
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *HttpServer) healthCheck(w http.ResponseWriter, r *http.Request) {
	err := writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{
		Status: "all good",
	})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *HttpServer) purgePayments(w http.ResponseWriter, r *http.Request) {
	err := s.ps.Clear(r.Context())
	if err != nil {
		slog.Error("error while purging payments", "error", err)
		http.Error(w, "Error when trying to purge payments: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}
