package services

import (
	"context"
	"testing"
	"time"

	"payment-router/internal/entities"
	"payment-router/internal/selection"

	"github.com/stretchr/testify/require"
)

func healthy(ms int) *entities.GatewayHealth {
	return &entities.GatewayHealth{MinResponseTime: ms}
}

func failing() *entities.GatewayHealth {
	return &entities.GatewayHealth{Failing: true}
}

func TestChooseGateway(t *testing.T) {
	tests := []struct {
		name               string
		current            entities.Gateway
		primary, secondary *entities.GatewayHealth
		want               entities.Gateway
	}{
		{"primary much slower", entities.Default, healthy(150), healthy(50), entities.Fallback},
		{"primary slower but under twice", entities.Fallback, healthy(150), healthy(100), entities.Default},
		{"primary exactly twice as slow", entities.Default, healthy(200), healthy(100), entities.Fallback},
		{"primary fast in absolute terms", entities.Default, healthy(100), healthy(10), entities.Default},
		{"both fast", entities.Fallback, healthy(0), healthy(0), entities.Default},
		{"secondary failing", entities.Fallback, healthy(500), failing(), entities.Default},
		{"primary failing", entities.Default, failing(), healthy(0), entities.Fallback},
		{"both failing", entities.Fallback, failing(), failing(), entities.Default},
		{"only primary known, healthy", entities.Fallback, healthy(300), nil, entities.Default},
		{"only primary known, failing", entities.Default, failing(), nil, entities.Fallback},
		{"only secondary known, healthy, on default", entities.Default, nil, healthy(5), entities.Default},
		{"only secondary known, healthy, on fallback", entities.Fallback, nil, healthy(5), entities.Fallback},
		{"only secondary known, failing", entities.Fallback, nil, failing(), entities.Default},
		{"nothing known", entities.Fallback, nil, nil, entities.Default},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ChooseGateway(tt.current, tt.primary, tt.secondary))
		})
	}
}

func newTestMonitor(gateways *fakeGateways, sel selection.Selection) *HealthMonitor {
	return NewHealthMonitor(sel, gateways.factory(defaultURL), gateways.factory(fallbackURL), time.Hour)
}

func answer(h entities.GatewayHealth) func() (entities.GatewayHealth, error) {
	return func() (entities.GatewayHealth, error) { return h, nil }
}

func TestHealthMonitor_SwitchesOnDegradation(t *testing.T) {
	gateways := newFakeGateways()
	gateways.health[defaultURL] = answer(entities.GatewayHealth{MinResponseTime: 150})
	gateways.health[fallbackURL] = answer(entities.GatewayHealth{MinResponseTime: 50})

	sel := selection.NewLocal(entities.Default)
	hm := newTestMonitor(gateways, sel)

	hm.check(context.Background())
	require.Equal(t, entities.Fallback, sel.Get())

	gateways.health[defaultURL] = answer(entities.GatewayHealth{MinResponseTime: 20})
	hm.check(context.Background())
	require.Equal(t, entities.Default, sel.Get())
}

func TestHealthMonitor_InconclusiveProbeKeepsLastKnownHealth(t *testing.T) {
	gateways := newFakeGateways()
	gateways.health[defaultURL] = answer(entities.GatewayHealth{Failing: true})
	gateways.health[fallbackURL] = answer(entities.GatewayHealth{})

	sel := selection.NewLocal(entities.Default)
	hm := newTestMonitor(gateways, sel)

	hm.check(context.Background())
	require.Equal(t, entities.Fallback, sel.Get())

	// the default gateway stops answering; it is still considered failing
	delete(gateways.health, defaultURL)
	hm.check(context.Background())
	require.Equal(t, entities.Fallback, sel.Get())
	require.True(t, hm.primaryHealth.Failing)
}

func TestHealthMonitor_NothingKnownFallsBackToDefault(t *testing.T) {
	sel := selection.NewLocal(entities.Fallback)
	hm := newTestMonitor(newFakeGateways(), sel)

	hm.check(context.Background())
	require.Equal(t, entities.Default, sel.Get())
}

func TestHealthMonitor_DoesNotOverwriteUnchangedChoice(t *testing.T) {
	gateways := newFakeGateways()
	gateways.health[defaultURL] = answer(entities.GatewayHealth{})
	gateways.health[fallbackURL] = answer(entities.GatewayHealth{})

	sel := &countingSelection{Local: selection.NewLocal(entities.Default)}
	hm := newTestMonitor(gateways, sel)

	hm.check(context.Background())
	hm.check(context.Background())
	require.Zero(t, sel.sets)
}

func TestHealthMonitor_RunStopsOnCancel(t *testing.T) {
	gateways := newFakeGateways()
	gateways.health[defaultURL] = answer(entities.GatewayHealth{Failing: true})
	gateways.health[fallbackURL] = answer(entities.GatewayHealth{})

	sel := selection.NewLocal(entities.Default)
	hm := NewHealthMonitor(sel, gateways.factory(defaultURL), gateways.factory(fallbackURL), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hm.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return sel.Get() == entities.Fallback
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

type countingSelection struct {
	*selection.Local
	sets int
}

func (c *countingSelection) Set(g entities.Gateway) {
	c.sets++
	c.Local.Set(g)
}
