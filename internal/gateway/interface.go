package gateway

import (
	"context"
	"payment-router/internal/entities"
	"time"
)

type PaymentProcessorInterface interface {
	URL() string
	Healthcheck(ctx context.Context) (entities.GatewayHealth, error)
	// Process returns the HTTP status of the gateway's answer; err is set
	// only when no answer was received.
	Process(ctx context.Context, payment entities.PendingPayment, requestedAt time.Time) (status int, err error)
}
