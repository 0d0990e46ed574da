package services

import (
	"context"
	"payment-router/internal/dtos"
	"payment-router/internal/entities"
	"time"
)

type PaymentsInterface interface {
	RequestProcessing(correlationId string, amount float64) error
	GetSummary(ctx context.Context, filters dtos.GetPaymentsSummaryFilters) (entities.PaymentsSummary, error)
	Clear(ctx context.Context) error
}

type PaymentStoreInterface interface {
	PostPayment(ctx context.Context, g entities.Gateway, amount float64, correlationId string, sentAt time.Time) error
	GetSummary(ctx context.Context, from, to *time.Time) (entities.PaymentsSummary, error)
	PurgeAll(ctx context.Context) error
}
