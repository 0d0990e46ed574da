package dtos

import "time"

// CreatePaymentRequest uses pointers so a missing field is distinguishable
// from a zero value during validation.
type CreatePaymentRequest struct {
	CorrelationId *string  `json:"correlationId"`
	Amount        *float64 `json:"amount"`
}

type GetPaymentSummaryResponse struct {
	Default  PaymentSummary `json:"default"`
	Fallback PaymentSummary `json:"fallback"`
}

type PaymentSummary struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

// GetPaymentsSummaryFilters bounds a summary; nil leaves that side open.
type GetPaymentsSummaryFilters struct {
	From *time.Time
	To   *time.Time
}
