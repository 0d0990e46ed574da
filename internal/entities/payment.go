package entities

// CorrelationIdLength is the fixed size of a caller supplied correlation id.
const CorrelationIdLength = 36

type PendingPayment struct {
	CorrelationId string
	Amount        float64
}

type PaymentsSummary struct {
	Default  PaymentStats
	Fallback PaymentStats
}

// For returns the stats of one gateway.
func (s *PaymentsSummary) For(g Gateway) *PaymentStats {
	if g == Fallback {
		return &s.Fallback
	}
	return &s.Default
}

type PaymentStats struct {
	TotalRequests int64
	TotalAmount   float64
}
