package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"payment-router/internal/dtos"
	"payment-router/internal/entities"
	internalErrors "payment-router/internal/errors"
	"payment-router/internal/queue"
	"payment-router/internal/selection"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	defaultURL  = "http://default"
	fallbackURL = "http://fallback"
)

type harness struct {
	store    *fakeStore
	queue    *queue.PaymentQueue
	sel      *selection.Local
	gateways *fakeGateways
	service  *PaymentService
}

func newHarness() *harness {
	h := &harness{
		store:    &fakeStore{},
		queue:    queue.NewPaymentQueueWithWait(10 * time.Millisecond),
		sel:      selection.NewLocal(entities.Default),
		gateways: newFakeGateways(),
	}
	h.service = NewPaymentService(h.store, h.queue, h.sel, defaultURL, fallbackURL, h.gateways.factory)
	return h
}

func newPayment() entities.PendingPayment {
	return entities.PendingPayment{CorrelationId: uuid.NewString(), Amount: 19.90}
}

func TestProcessPayment_SuccessIsPersistedUnderGatewayUsed(t *testing.T) {
	h := newHarness()
	h.sel.Set(entities.Fallback)
	payment := newPayment()

	require.True(t, h.service.processPayment(context.Background(), payment))

	stored := h.store.stored()
	require.Len(t, stored, 1)
	require.Equal(t, entities.Fallback, stored[0].gateway)
	require.Equal(t, payment.CorrelationId, stored[0].record.CorrelationId)
	require.Equal(t, payment.Amount, stored[0].record.Amount)

	attempts := h.gateways.recorded()
	require.Len(t, attempts, 1)
	require.Equal(t, fallbackURL, attempts[0].url)
	require.Equal(t, attempts[0].requestedAt, stored[0].record.SentAt)
}

func TestProcessPayment_ServerErrorIsRetriedWithoutDuplicates(t *testing.T) {
	h := newHarness()
	h.gateways.scripts[defaultURL] = []int{http.StatusInternalServerError, http.StatusOK}

	require.True(t, h.service.processPayment(context.Background(), newPayment()))

	require.Len(t, h.gateways.recorded(), 2)
	require.Len(t, h.store.stored(), 1)
	require.Equal(t, entities.Default, h.sel.Get())
}

func TestProcessPayment_TransportErrorIsRetried(t *testing.T) {
	h := newHarness()
	h.gateways.scripts[defaultURL] = []int{transportError, transportError, http.StatusOK}

	require.True(t, h.service.processPayment(context.Background(), newPayment()))

	require.Len(t, h.gateways.recorded(), 3)
	require.Len(t, h.store.stored(), 1)
	require.Equal(t, entities.Default, h.store.stored()[0].gateway)
}

func TestProcessPayment_ClientErrorSwitchesToOtherGatewayImmediately(t *testing.T) {
	h := newHarness()
	h.gateways.scripts[defaultURL] = []int{http.StatusUnprocessableEntity}

	require.True(t, h.service.processPayment(context.Background(), newPayment()))

	attempts := h.gateways.recorded()
	require.Len(t, attempts, 2)
	require.Equal(t, defaultURL, attempts[0].url)
	require.Equal(t, fallbackURL, attempts[1].url)

	require.Equal(t, entities.Fallback, h.sel.Get())
	require.Equal(t, entities.Fallback, h.store.stored()[0].gateway)
}

func TestProcessPayment_RetryPicksUpSelectionChange(t *testing.T) {
	h := newHarness()
	h.gateways.scripts[defaultURL] = []int{http.StatusServiceUnavailable}

	// the monitor switches while the payment is being retried
	h.service.now = func() time.Time {
		if len(h.gateways.recorded()) == 1 {
			h.sel.Set(entities.Fallback)
		}
		return time.Now()
	}

	require.True(t, h.service.processPayment(context.Background(), newPayment()))

	attempts := h.gateways.recorded()
	require.Len(t, attempts, 3)
	require.Equal(t, fallbackURL, attempts[2].url)
	require.Equal(t, entities.Fallback, h.store.stored()[0].gateway)
}

func TestProcessPayment_ReusesClientUntilURLChanges(t *testing.T) {
	h := newHarness()
	h.gateways.scripts[defaultURL] = []int{500, 500, 500, http.StatusBadRequest}
	h.gateways.scripts[fallbackURL] = []int{500, http.StatusOK}

	require.True(t, h.service.processPayment(context.Background(), newPayment()))

	require.Len(t, h.gateways.recorded(), 6)
	require.Equal(t, 2, h.gateways.factories)
}

func TestProcessPayment_RestampsEveryAttempt(t *testing.T) {
	h := newHarness()
	h.gateways.scripts[defaultURL] = []int{500, 500, http.StatusOK}

	clock := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)
	h.service.now = func() time.Time {
		clock = clock.Add(1500 * time.Microsecond)
		return clock
	}

	require.True(t, h.service.processPayment(context.Background(), newPayment()))

	attempts := h.gateways.recorded()
	require.Len(t, attempts, 3)
	require.True(t, attempts[0].requestedAt.Before(attempts[1].requestedAt))
	require.True(t, attempts[1].requestedAt.Before(attempts[2].requestedAt))
	require.Equal(t, attempts[2].requestedAt, h.store.stored()[0].record.SentAt)
	require.Zero(t, attempts[2].requestedAt.Nanosecond()%int(time.Millisecond))
}

func TestProcessPayment_CancellationAbandonsRetry(t *testing.T) {
	h := newHarness()
	h.gateways.scripts[defaultURL] = []int{http.StatusInternalServerError}

	ctx, cancel := context.WithCancel(context.Background())
	h.service.now = func() time.Time {
		if len(h.gateways.recorded()) >= 5 {
			cancel()
		}
		return time.Now()
	}

	require.False(t, h.service.processPayment(ctx, newPayment()))
	require.Empty(t, h.store.stored())
}

func TestProcessPayment_StoreFailureDoesNotResend(t *testing.T) {
	h := newHarness()
	h.store.postErr = context.DeadlineExceeded

	require.True(t, h.service.processPayment(context.Background(), newPayment()))
	require.Len(t, h.gateways.recorded(), 1)
}

func TestStartWorkers_ProcessesQueueAndStopsOnCancel(t *testing.T) {
	h := newHarness()
	h.gateways.scripts[defaultURL] = []int{500, 200}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.service.StartWorkers(ctx, 4)
		close(done)
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, h.service.RequestProcessing(uuid.NewString(), 1))
	}

	require.Eventually(t, func() bool {
		return len(h.store.stored()) == 50
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop")
	}

	seen := make(map[string]bool)
	for _, p := range h.store.stored() {
		require.False(t, seen[p.record.CorrelationId], "payment stored twice")
		seen[p.record.CorrelationId] = true
	}
}

func TestRequestProcessing_Validation(t *testing.T) {
	tests := []struct {
		name          string
		correlationId string
		amount        float64
		wantErr       error
	}{
		{"valid", uuid.NewString(), 19.9, nil},
		{"short id", "abc", 19.9, internalErrors.ErrInvalidCorrelationId},
		{"long id", strings.Repeat("a", 37), 19.9, internalErrors.ErrInvalidCorrelationId},
		{"zero amount", uuid.NewString(), 0, internalErrors.ErrInvalidAmount},
		{"negative amount", uuid.NewString(), -1, internalErrors.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			err := h.service.RequestProcessing(tt.correlationId, tt.amount)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Zero(t, h.queue.Len())
				return
			}
			require.NoError(t, err)
			require.Equal(t, 1, h.queue.Len())
		})
	}
}

func TestGetSummaryAndClear(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	base := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, h.store.PostPayment(ctx, entities.Default, 10, uuid.NewString(), base))
	require.NoError(t, h.store.PostPayment(ctx, entities.Fallback, 5, uuid.NewString(), base.Add(time.Second)))
	require.NoError(t, h.service.RequestProcessing(uuid.NewString(), 1))

	to := base.Add(500 * time.Millisecond)
	summary, err := h.service.GetSummary(ctx, dtos.GetPaymentsSummaryFilters{To: &to})
	require.NoError(t, err)
	require.Equal(t, entities.PaymentStats{TotalRequests: 1, TotalAmount: 10}, summary.Default)
	require.Zero(t, summary.Fallback.TotalRequests)

	require.NoError(t, h.service.Clear(ctx))

	summary, err = h.service.GetSummary(ctx, dtos.GetPaymentsSummaryFilters{})
	require.NoError(t, err)
	require.Equal(t, entities.PaymentsSummary{}, summary)
	require.Zero(t, h.queue.Len())
}

func TestClear_StoreFailure(t *testing.T) {
	h := newHarness()
	h.store.purgeErr = context.DeadlineExceeded
	require.NoError(t, h.service.RequestProcessing(uuid.NewString(), 1))

	require.ErrorIs(t, h.service.Clear(context.Background()), context.DeadlineExceeded)
	require.Equal(t, 1, h.queue.Len())
}
