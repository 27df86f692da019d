package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/HorseArcher567/octopus/pkg/store"
	"github.com/HorseArcher567/octopus/pkg/xlog"
	"golang.org/x/sync/errgroup"
)

// minRefreshInterval bounds how aggressively the refresher re-sends
// heartbeats for very small TTLs used in tests.
const minRefreshInterval = 200 * time.Millisecond

// Register announces instance to a Store and keeps its lease alive until ctx
// is canceled. A single Register is good for exactly one instance; running
// two concurrently against the same instance would register it twice.
type Register struct {
	log      *xlog.Logger
	store    store.Store
	instance *ServiceInstance
	ttl      int64
}

// NewRegister builds a Register for instance, renewing its lease every
// ttl/2 seconds.
func NewRegister(log *xlog.Logger, st store.Store, instance *ServiceInstance, ttl int64) *Register {
	return &Register{log: log, store: st, instance: instance, ttl: ttl}
}

// Run grants a lease, publishes the instance, and keeps it alive until ctx is
// canceled. An invalid instance or a non-positive TTL is rejected up front
// with an error. Past that check it never returns on its own: a failed
// registration cycle is retried with exponential backoff rather than surfaced
// as a terminal error, since a transient etcd outage shouldn't take the
// process down, and Run returns only once ctx is done.
func (r *Register) Run(ctx context.Context) error {
	if err := r.instance.Validate(); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if r.ttl <= 0 {
		return fmt.Errorf("register: %w", ErrInvalidTTL)
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		err := r.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// Lease legitimately expired or its ack stream ended; re-register
			// right away rather than waiting out a backoff meant for errors.
			backoff = time.Second
			continue
		}

		r.log.Error("registration cycle failed", "instance", r.instance.Key, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// runOnce performs one full grant -> put -> keepalive cycle. It returns once
// the lease can no longer be kept alive (expired, or the ack stream ended).
func (r *Register) runOnce(ctx context.Context) error {
	leaseID, err := r.store.LeaseGrant(ctx, r.ttl)
	if err != nil {
		return fmt.Errorf("grant lease: %w", err)
	}

	data, err := json.Marshal(r.instance)
	if err != nil {
		return fmt.Errorf("marshal instance: %w", err)
	}

	if err := r.store.Put(ctx, r.instance.Key, string(data), leaseID); err != nil {
		return fmt.Errorf("put instance: %w", err)
	}

	sender, acks, err := r.store.LeaseKeepAlive(ctx, leaseID)
	if err != nil {
		return fmt.Errorf("start keepalive: %w", err)
	}

	interval := time.Duration(r.ttl) * time.Second / 2
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}

	// stop is the single-shot signal the observer uses to tell the refresher
	// to quit; either goroutine noticing trouble closes it exactly once.
	stop := make(chan struct{})
	var once sync.Once
	signalStop := func() { once.Do(func() { close(stop) }) }

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.refresh(gctx, sender, interval, stop, signalStop)
	})
	g.Go(func() error {
		return r.observe(gctx, acks, signalStop)
	})

	return g.Wait()
}

func (r *Register) refresh(ctx context.Context, sender store.KeepAliveSender, interval time.Duration, stop <-chan struct{}, signalStop func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			return nil
		case <-ticker.C:
			if err := sender.Send(ctx); err != nil {
				r.log.Error("keepalive heartbeat failed", "instance", r.instance.Key, "error", err)
				signalStop()
				return nil
			}
		}
	}
}

func (r *Register) observe(ctx context.Context, acks <-chan store.KeepAliveAck, signalStop func()) error {
	defer signalStop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ack, ok := <-acks:
			if !ok {
				r.log.Info("keepalive stream ended", "instance", r.instance.Key)
				return nil
			}
			if ack.TTL <= 0 {
				r.log.Warn("lease expired", "instance", r.instance.Key)
				return nil
			}
		}
	}
}
