package queue

import (
	"context"
	"payment-router/internal/config"
	"payment-router/internal/entities"
	internalErrors "payment-router/internal/errors"
	"sync"
	"time"
)

// PaymentQueue is an unbounded FIFO of accepted payments waiting to be sent.
// Producers never block. Consumers block until an item arrives, the context
// is cancelled, or the bounded wait elapses and they re-check.
type PaymentQueue struct {
	mu       sync.Mutex
	items    []entities.PendingPayment
	head     int
	wake     chan struct{}
	waitTime time.Duration
}

func NewPaymentQueue() *PaymentQueue {
	return NewPaymentQueueWithWait(config.QueueWaitTime)
}

func NewPaymentQueueWithWait(waitTime time.Duration) *PaymentQueue {
	return &PaymentQueue{
		wake:     make(chan struct{}, 1),
		waitTime: waitTime,
	}
}

func (pq *PaymentQueue) Enqueue(p entities.PendingPayment) {
	pq.mu.Lock()
	pq.items = append(pq.items, p)
	pq.mu.Unlock()

	pq.notify()
}

func (pq *PaymentQueue) Dequeue(ctx context.Context) (entities.PendingPayment, error) {
	timer := time.NewTimer(pq.waitTime)
	defer timer.Stop()

	for {
		if p, ok := pq.pop(); ok {
			return p, nil
		}

		if ctx.Err() != nil {
			return entities.PendingPayment{}, internalErrors.ErrShuttingDown
		}

		select {
		case <-pq.wake:
		case <-ctx.Done():
		case <-timer.C:
			timer.Reset(pq.waitTime)
		}
	}
}

func (pq *PaymentQueue) Purge() {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	pq.items = nil
	pq.head = 0
}

func (pq *PaymentQueue) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()

	return len(pq.items) - pq.head
}

func (pq *PaymentQueue) pop() (entities.PendingPayment, bool) {
	pq.mu.Lock()

	if pq.head == len(pq.items) {
		pq.mu.Unlock()
		return entities.PendingPayment{}, false
	}

	p := pq.items[pq.head]
	pq.items[pq.head] = entities.PendingPayment{}
	pq.head++

	// compact once the consumed prefix dominates the backing array
	if pq.head > 1024 && pq.head*2 >= len(pq.items) {
		n := copy(pq.items, pq.items[pq.head:])
		pq.items = pq.items[:n]
		pq.head = 0
	}

	remaining := len(pq.items) - pq.head
	pq.mu.Unlock()

	// pass the wake-up on so another blocked consumer picks the next item
	if remaining > 0 {
		pq.notify()
	}

	return p, true
}

func (pq *PaymentQueue) notify() {
	select {
	case pq.wake <- struct{}{}:
	default:
	}
}
