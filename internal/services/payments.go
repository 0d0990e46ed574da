package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"payment-router/internal/dtos"
	"payment-router/internal/entities"
	internalErrors "payment-router/internal/errors"
	"payment-router/internal/gateway"
	"payment-router/internal/metrics"
	"payment-router/internal/queue"
	"payment-router/internal/selection"
	"sync"
	"time"
)

// ProcessorFactory builds a client for the gateway listening at url.
type ProcessorFactory func(url string) gateway.PaymentProcessorInterface

type PaymentService struct {
	store        PaymentStoreInterface
	q            queue.PaymentQueueInterface
	sel          selection.Selection
	urls         [len(entities.Gateways)]string
	newProcessor ProcessorFactory
	now          func() time.Time
}

func NewPaymentService(
	store PaymentStoreInterface,
	q queue.PaymentQueueInterface,
	sel selection.Selection,
	defaultURL string,
	fallbackURL string,
	newProcessor ProcessorFactory,
) *PaymentService {
	ps := &PaymentService{
		store:        store,
		q:            q,
		sel:          sel,
		newProcessor: newProcessor,
		now:          time.Now,
	}
	ps.urls[entities.Default] = defaultURL
	ps.urls[entities.Fallback] = fallbackURL

	return ps
}

// StartWorkers runs numWorkers payment workers and returns once all of them
// have stopped, which happens after ctx is cancelled.
func (ps *PaymentService) StartWorkers(ctx context.Context, numWorkers int) {
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			ps.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
}

func (ps *PaymentService) worker(ctx context.Context, workerID int) {
	slog.Debug("payment worker started", "workerID", workerID)
	defer slog.Debug("payment worker stopped", "workerID", workerID)

	for ctx.Err() == nil {
		payment, err := ps.q.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, internalErrors.ErrShuttingDown) {
				slog.Error("Worker error", "workerID", workerID, "err", err)
			}
			continue
		}

		ps.processPayment(ctx, payment)
	}
}

// processPayment sends payment until a gateway confirms it. Transport errors
// and 5xx answers are retried right away against whatever gateway is selected
// by then. Any other answer marks the selected gateway as unusable and
// switches every process to the other one before retrying. Only cancellation
// of ctx abandons the payment.
func (ps *PaymentService) processPayment(ctx context.Context, payment entities.PendingPayment) bool {
	var pp gateway.PaymentProcessorInterface

	for ctx.Err() == nil {
		g := ps.sel.Get()
		if !g.Valid() {
			g = entities.Default
		}

		url := ps.urls[g]
		if pp == nil || pp.URL() != url {
			pp = ps.newProcessor(url)
		}

		sentAt := ps.now().UTC().Truncate(time.Millisecond)

		status, err := pp.Process(ctx, payment, sentAt)
		switch {
		case err == nil && status == http.StatusOK:
			metrics.PaymentAttempts.WithLabelValues(g.String(), metrics.OutcomeSuccess).Inc()
			ps.persist(ctx, g, payment, sentAt)
			return true

		case err != nil || (status >= 500 && status <= 599):
			metrics.PaymentAttempts.WithLabelValues(g.String(), metrics.OutcomeRetry).Inc()

		default:
			metrics.PaymentAttempts.WithLabelValues(g.String(), metrics.OutcomeOverride).Inc()
			metrics.GatewaySwitches.WithLabelValues(metrics.CauseEmergency).Inc()
			ps.sel.Set(g.Opposite())
			slog.Warn("gateway rejected payment, switching",
				"gateway", g.String(),
				"status", status,
				"correlationId", payment.CorrelationId,
			)
		}
	}

	slog.Debug("abandoning in-flight payment", "correlationId", payment.CorrelationId)
	return false
}

func (ps *PaymentService) persist(ctx context.Context, g entities.Gateway, payment entities.PendingPayment, sentAt time.Time) {
	// the gateway already accepted it, so record it even during shutdown
	ctx = context.WithoutCancel(ctx)

	if err := ps.store.PostPayment(ctx, g, payment.Amount, payment.CorrelationId, sentAt); err != nil {
		metrics.StoreFailures.Inc()
		slog.Error("failed to persist confirmed payment",
			"gateway", g.String(),
			"correlationId", payment.CorrelationId,
			"error", err,
		)
		return
	}

	metrics.PaymentsProcessed.WithLabelValues(g.String()).Inc()
}

func (ps *PaymentService) RequestProcessing(correlationId string, amount float64) error {
	if len(correlationId) != entities.CorrelationIdLength {
		return internalErrors.ErrInvalidCorrelationId
	}

	if !(amount > 0) || math.IsInf(amount, 0) {
		return internalErrors.ErrInvalidAmount
	}

	ps.q.Enqueue(entities.PendingPayment{
		CorrelationId: correlationId,
		Amount:        amount,
	})

	return nil
}

func (ps *PaymentService) GetSummary(ctx context.Context, filters dtos.GetPaymentsSummaryFilters) (entities.PaymentsSummary, error) {
	return ps.store.GetSummary(ctx, filters.From, filters.To)
}

// Clear drops every stored payment and every payment still queued. Payments
// a worker already holds are not affected.
func (ps *PaymentService) Clear(ctx context.Context) error {
	if err := ps.store.PurgeAll(ctx); err != nil {
		return fmt.Errorf("cannot purge stored payments: %w", err)
	}

	ps.q.Purge()
	return nil
}
