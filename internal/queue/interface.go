package queue

import (
	"context"
	"payment-router/internal/entities"
)

type PaymentQueueInterface interface {
	Enqueue(p entities.PendingPayment)
	Dequeue(ctx context.Context) (entities.PendingPayment, error)
	Purge()
	Len() int
}
