package services

import (
	"context"
	"log/slog"
	"payment-router/internal/config"
	"payment-router/internal/entities"
	"payment-router/internal/gateway"
	"payment-router/internal/metrics"
	"payment-router/internal/selection"
	"sync"
	"time"
)

// HealthMonitor polls both payment processors and keeps the shared gateway
// selection pointed at the better one. Only the initializer process runs it.
type HealthMonitor struct {
	sel          selection.Selection
	primary      gateway.PaymentProcessorInterface
	secondary    gateway.PaymentProcessorInterface
	interval     time.Duration
	probeTimeout time.Duration

	// last known health; nil until a probe succeeds
	primaryHealth   *entities.GatewayHealth
	secondaryHealth *entities.GatewayHealth
}

func NewHealthMonitor(
	sel selection.Selection,
	primary gateway.PaymentProcessorInterface,
	secondary gateway.PaymentProcessorInterface,
	interval time.Duration,
) *HealthMonitor {
	return &HealthMonitor{
		sel:          sel,
		primary:      primary,
		secondary:    secondary,
		interval:     interval,
		probeTimeout: config.HealthCheckTimeout,
	}
}

// Run checks immediately and then once per interval until ctx is done.
func (hm *HealthMonitor) Run(ctx context.Context) {
	slog.Info("health monitor started", "interval", hm.interval)
	defer slog.Info("health monitor stopped")

	ticker := time.NewTicker(hm.interval)
	defer ticker.Stop()

	for {
		hm.check(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (hm *HealthMonitor) check(ctx context.Context) {
	var (
		wg                 sync.WaitGroup
		primary, secondary *entities.GatewayHealth
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		primary = hm.probe(ctx, entities.Default, hm.primary)
	}()
	go func() {
		defer wg.Done()
		secondary = hm.probe(ctx, entities.Fallback, hm.secondary)
	}()
	wg.Wait()

	// an inconclusive probe keeps the previous answer
	if primary != nil {
		hm.primaryHealth = primary
	}
	if secondary != nil {
		hm.secondaryHealth = secondary
	}

	current := hm.sel.Get()
	choice := ChooseGateway(current, hm.primaryHealth, hm.secondaryHealth)

	if choice != current {
		hm.sel.Set(choice)
		metrics.GatewaySwitches.WithLabelValues(metrics.CauseHealthCheck).Inc()
		slog.Info("gateway switched", "from", current.String(), "to", choice.String())
	}

	slog.Debug("gateway health",
		"default", hm.primaryHealth,
		"fallback", hm.secondaryHealth,
		"current", choice.String(),
	)
}

func (hm *HealthMonitor) probe(ctx context.Context, g entities.Gateway, pp gateway.PaymentProcessorInterface) *entities.GatewayHealth {
	ctx, cancel := context.WithTimeout(ctx, hm.probeTimeout)
	defer cancel()

	health, err := pp.Healthcheck(ctx)
	if err != nil {
		slog.Debug("health probe inconclusive", "gateway", g.String(), "error", err)
		return nil
	}
	return &health
}

// ChooseGateway decides which gateway payments should go to, given the
// current choice and the last known health of each side (nil = unknown).
func ChooseGateway(current entities.Gateway, primary, secondary *entities.GatewayHealth) entities.Gateway {
	switch {
	case primary != nil && secondary != nil:
		switch {
		case !primary.Failing && !secondary.Failing:
			if primary.MinResponseTime > config.LatencyThresholdMs &&
				primary.MinResponseTime >= 2*secondary.MinResponseTime {
				return entities.Fallback
			}
			return entities.Default
		case !primary.Failing:
			return entities.Default
		case !secondary.Failing:
			return entities.Fallback
		default:
			return entities.Default
		}

	case primary != nil:
		if !primary.Failing {
			return entities.Default
		}
		return entities.Fallback

	case secondary != nil:
		if secondary.Failing {
			return entities.Default
		}
		// nothing is known about the primary, so do not flip away from it
		if current == entities.Default {
			return entities.Default
		}
		return entities.Fallback

	default:
		return entities.Default
	}
}
