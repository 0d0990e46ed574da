package selection

import (
	"context"
	"fmt"
	"log/slog"
	"payment-router/internal/config"
	"payment-router/internal/entities"
	internalErrors "payment-router/internal/errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	currentKey      = "gateway:current"
	switchedChannel = "gateway:switched"
)

// Redis shares the selection through a Redis key. Reads are served from a
// process-local copy kept fresh by a pub/sub subscription, so Get never
// touches the network. Every resync interval the copy is reconciled with the
// key: a switch that could not be written is written again, otherwise the key
// is reloaded to catch switches published while the subscription was down.
type Redis struct {
	rc     *redis.Client
	local  Local
	pubsub *redis.PubSub

	// set while the local value has not reached the key
	dirty atomic.Bool
	// bumped on every local change so a resync never replaces a newer value
	generation atomic.Uint64

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRedis subscribes to gateway switches and loads the current value. The
// initializer resets the shared value to entities.Default.
func NewRedis(ctx context.Context, rc *redis.Client, initializer bool, resync time.Duration) (*Redis, error) {
	if resync <= 0 {
		return nil, fmt.Errorf("resync interval must be positive, got %s", resync)
	}

	r := &Redis{
		rc:   rc,
		stop: make(chan struct{}),
	}

	// subscribe before reading the key so no switch published in between is lost
	r.pubsub = rc.Subscribe(ctx, switchedChannel)
	if _, err := r.pubsub.Receive(ctx); err != nil {
		r.pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", switchedChannel, err)
	}

	if initializer {
		if err := rc.Set(ctx, currentKey, encodeGateway(entities.Default), 0).Err(); err != nil {
			r.pubsub.Close()
			return nil, fmt.Errorf("initializing %s: %w", currentKey, err)
		}
		r.local.Set(entities.Default)
	} else {
		g, err := r.load(ctx)
		if err != nil {
			r.pubsub.Close()
			return nil, err
		}
		r.local.Set(g)
	}

	r.wg.Add(2)
	go r.listen()
	go r.resyncLoop(resync)

	return r, nil
}

func (r *Redis) load(ctx context.Context) (entities.Gateway, error) {
	val, err := r.rc.Get(ctx, currentKey).Result()
	if err == redis.Nil {
		return entities.Default, nil
	}
	if err != nil {
		return entities.Default, fmt.Errorf("reading %s: %w", currentKey, err)
	}

	return decodeGateway(val)
}

func (r *Redis) listen() {
	defer r.wg.Done()

	for msg := range r.pubsub.Channel() {
		g, err := decodeGateway(msg.Payload)
		if err != nil {
			slog.Error("ignoring gateway switch", "payload", msg.Payload, "error", err)
			continue
		}
		r.generation.Add(1)
		r.local.Set(g)
	}
}

func (r *Redis) resyncLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.resync()
		}
	}
}

func (r *Redis) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), config.SelectionPublishTimeout)
	defer cancel()

	if r.dirty.Load() {
		g := r.local.Get()
		if r.publish(ctx, g) {
			slog.Info("gateway switch published after retry", "gateway", g.String())
		}
		return
	}

	gen := r.generation.Load()
	g, err := r.load(ctx)
	if err != nil {
		slog.Debug("gateway resync failed", "error", err)
		return
	}

	if r.generation.Load() == gen && !r.dirty.Load() && r.local.Get() != g {
		slog.Info("gateway resynced", "from", r.local.Get().String(), "to", g.String())
		r.local.Set(g)
	}
}

func (r *Redis) Get() entities.Gateway {
	return r.local.Get()
}

// Set switches locally right away and publishes to the other processes. A
// failed publish is retried on the next resync.
func (r *Redis) Set(g entities.Gateway) {
	r.generation.Add(1)
	r.local.Set(g)

	ctx, cancel := context.WithTimeout(context.Background(), config.SelectionPublishTimeout)
	defer cancel()

	if !r.publish(ctx, g) {
		slog.Error("failed to publish gateway switch, will retry", "gateway", g.String())
	}
}

func (r *Redis) publish(ctx context.Context, g entities.Gateway) bool {
	pipe := r.rc.Pipeline()
	pipe.Set(ctx, currentKey, encodeGateway(g), 0)
	pipe.Publish(ctx, switchedChannel, encodeGateway(g))
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Debug("gateway publish failed", "gateway", g.String(), "error", err)
		r.dirty.Store(true)
		return false
	}

	r.dirty.Store(r.local.Get() != g)
	return true
}

func (r *Redis) Close() error {
	close(r.stop)
	err := r.pubsub.Close()
	r.wg.Wait()
	return err
}

func encodeGateway(g entities.Gateway) string {
	return strconv.Itoa(int(g))
}

func decodeGateway(s string) (entities.Gateway, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !entities.Gateway(n).Valid() {
		return entities.Default, fmt.Errorf("%w: %q", internalErrors.ErrUnknownGateway, s)
	}
	return entities.Gateway(n), nil
}
