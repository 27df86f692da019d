// Package resolver provides gRPC resolver implementations for service discovery.
// It includes a dynamic resolver driven by pkg/rpc/discovery and a direct
// resolver for fixed address lists.
package resolver

import (
	"context"

	"github.com/HorseArcher567/octopus/pkg/rpc/discovery"
	"github.com/HorseArcher567/octopus/pkg/xlog"
	"github.com/google/uuid"
	grpcresolver "google.golang.org/grpc/resolver"
	"google.golang.org/grpc/resolver/manual"
)

// NewDynamicBuilder returns a manual resolver builder scoped to a single
// dial. Its scheme is uuid-suffixed so that two BalancedClients discovering
// different services in the same process never share a resolver: a globally
// registered builder would mix addresses across unrelated targets.
func NewDynamicBuilder() *manual.Resolver {
	return manual.NewBuilderWithScheme("octopus-" + uuid.New().String())
}

// funcSink adapts a plain function to discovery.Sink.
type funcSink func(ctx context.Context, c discovery.Change) error

func (f funcSink) Send(ctx context.Context, c discovery.Change) error { return f(ctx, c) }

// Drive seeds b with name's current instances from disc, then applies
// Insert/Remove Changes streamed by disc.Watch until ctx is canceled. It
// blocks until then, so callers run it in its own goroutine. A watch error
// is logged; the caller decides whether to reconnect. capacity bounds how
// many buffered changes the watch sink queues before backpressuring disc.
func Drive(ctx context.Context, log *xlog.Logger, disc *discovery.Discovery, name string, b *manual.Resolver, capacity int) {
	addrs := make(map[string]grpcresolver.Address)
	apply := func(c discovery.Change) {
		switch c.Kind {
		case discovery.Insert:
			addrs[c.Key] = grpcresolver.Address{Addr: c.Endpoint}
		case discovery.Remove:
			delete(addrs, c.Key)
		}
	}
	push := func() {
		list := make([]grpcresolver.Address, 0, len(addrs))
		for _, a := range addrs {
			list = append(list, a)
		}
		b.UpdateState(grpcresolver.State{Addresses: list})
	}

	seed := funcSink(func(_ context.Context, c discovery.Change) error {
		apply(c)
		return nil
	})
	if err := disc.GetServer(ctx, name, seed); err != nil {
		log.Error("resolver: seed failed", "service", name, "error", err)
	}
	push()

	watchSink := discovery.NewChanSink(capacity)
	errCh := make(chan error, 1)
	go func() {
		errCh <- disc.Watch(ctx, name, watchSink)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-watchSink.C():
			apply(c)
			push()
		case err := <-errCh:
			if err != nil {
				log.Error("resolver: watch ended", "service", name, "error", err)
			}
			return
		}
	}
}
