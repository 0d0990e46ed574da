package dtos

// HealthCheckResponse is the body of GET /payments/service-health. Pointer
// fields let a decoder tell a missing field from a zero one.
type HealthCheckResponse struct {
	Failing         *bool `json:"failing"`
	MinResponseTime *int  `json:"minResponseTime"`
}

type PaymentProcessorRequest struct {
	CorrelationId string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
	RequestedAt   string  `json:"requestedAt"`
}
