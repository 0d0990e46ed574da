package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"payment-router/internal/entities"
	"payment-router/internal/gateway"
)

type paymentRecord struct {
	SentAt        time.Time
	Amount        float64
	CorrelationId string
}

type storedPayment struct {
	gateway entities.Gateway
	record  paymentRecord
}

type fakeStore struct {
	mu       sync.Mutex
	payments []storedPayment
	postErr  error
	purgeErr error
}

func (f *fakeStore) PostPayment(_ context.Context, g entities.Gateway, amount float64, correlationId string, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.postErr != nil {
		return f.postErr
	}
	f.payments = append(f.payments, storedPayment{
		gateway: g,
		record:  paymentRecord{SentAt: sentAt, Amount: amount, CorrelationId: correlationId},
	})
	return nil
}

func (f *fakeStore) GetSummary(_ context.Context, from, to *time.Time) (entities.PaymentsSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var summary entities.PaymentsSummary
	for _, p := range f.payments {
		if from != nil && p.record.SentAt.Before(*from) || to != nil && p.record.SentAt.After(*to) {
			continue
		}
		stats := summary.For(p.gateway)
		stats.TotalRequests++
		stats.TotalAmount += p.record.Amount
	}
	return summary, nil
}

func (f *fakeStore) PurgeAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.purgeErr != nil {
		return f.purgeErr
	}
	f.payments = nil
	return nil
}

func (f *fakeStore) stored() []storedPayment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storedPayment(nil), f.payments...)
}

var errConnectionRefused = errors.New("connection refused")

type attempt struct {
	url         string
	requestedAt time.Time
}

// fakeGateways answers payment submissions from a per-URL script. Once a
// script is exhausted the last entry repeats.
type fakeGateways struct {
	mu        sync.Mutex
	scripts   map[string][]int
	attempts  []attempt
	factories int
	health    map[string]func() (entities.GatewayHealth, error)
}

// transportError is a scripted status meaning the request never got an answer.
const transportError = -1

func newFakeGateways() *fakeGateways {
	return &fakeGateways{
		scripts: make(map[string][]int),
		health:  make(map[string]func() (entities.GatewayHealth, error)),
	}
}

func (f *fakeGateways) factory(url string) gateway.PaymentProcessorInterface {
	f.mu.Lock()
	f.factories++
	f.mu.Unlock()
	return &fakeProcessor{url: url, gateways: f}
}

func (f *fakeGateways) recorded() []attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]attempt(nil), f.attempts...)
}

type fakeProcessor struct {
	url      string
	gateways *fakeGateways
}

func (p *fakeProcessor) URL() string {
	return p.url
}

func (p *fakeProcessor) Healthcheck(context.Context) (entities.GatewayHealth, error) {
	p.gateways.mu.Lock()
	fn := p.gateways.health[p.url]
	p.gateways.mu.Unlock()

	if fn == nil {
		return entities.GatewayHealth{}, errConnectionRefused
	}
	return fn()
}

func (p *fakeProcessor) Process(_ context.Context, _ entities.PendingPayment, requestedAt time.Time) (int, error) {
	f := p.gateways
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts = append(f.attempts, attempt{url: p.url, requestedAt: requestedAt})

	script := f.scripts[p.url]
	status := 200
	if len(script) > 0 {
		status = script[0]
		if len(script) > 1 {
			f.scripts[p.url] = script[1:]
		}
	}

	if status == transportError {
		return 0, errConnectionRefused
	}
	return status, nil
}
