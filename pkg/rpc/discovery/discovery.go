// Package discovery turns the raw PUT/DELETE events a Store reports for a
// service's prefix into a stream of typed Change values, decoupling
// consumers (a resolver, a debug dump, a test) from the coordination store
// and the registry's wire format.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/HorseArcher567/octopus/pkg/rpc/registry"
	"github.com/HorseArcher567/octopus/pkg/store"
	"github.com/HorseArcher567/octopus/pkg/xlog"
)

// ChangeKind distinguishes the two shapes a Change can take.
type ChangeKind int

const (
	Insert ChangeKind = iota
	Remove
)

// Change is a single addition or removal of a service instance.
type Change struct {
	Kind ChangeKind
	// Key is the instance's coordination-store key (set for both kinds).
	Key string
	// Endpoint is the dialable address; only set for Insert.
	Endpoint string
}

// Sink receives Change values. Implementations may block: a full sink stalls
// the discovery loop rather than dropping events.
type Sink interface {
	Send(ctx context.Context, c Change) error
}

// Discovery resolves and watches instances of a service under namespace.
type Discovery struct {
	log       *xlog.Logger
	store     store.Store
	namespace string
}

// New builds a Discovery over st, rooted at namespace (the same value used
// to construct ServiceInstances with registry.NewServiceInstance).
func New(log *xlog.Logger, st store.Store, namespace string) *Discovery {
	return &Discovery{log: log, store: st, namespace: namespace}
}

// GetServer sends an Insert Change to sink for every instance of name
// currently in the store. Used to seed a resolver before Watch takes over.
func (d *Discovery) GetServer(ctx context.Context, name string, sink Sink) error {
	prefix := registry.Prefix(d.namespace, name)

	kvs, err := d.store.Get(ctx, prefix)
	if err != nil {
		return fmt.Errorf("discovery: get %s: %w", prefix, err)
	}

	for _, kv := range kvs {
		if err := d.translatePut(ctx, name, kv.Key, kv.Value, sink); err != nil {
			return err
		}
	}
	return nil
}

// Watch streams Insert/Remove Changes for name to sink until ctx is
// canceled or the underlying watch ends. A decode failure for a single
// instance is logged and skipped; a sink send failure is fatal and returned.
func (d *Discovery) Watch(ctx context.Context, name string, sink Sink) error {
	prefix := registry.Prefix(d.namespace, name)

	events, cancel := d.store.Watch(ctx, prefix)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			switch ev.Type {
			case store.EventPut:
				if err := d.translatePut(ctx, name, ev.Key, ev.Value, sink); err != nil {
					return err
				}
			case store.EventDelete:
				if err := sink.Send(ctx, Change{Kind: Remove, Key: ev.Key}); err != nil {
					return fmt.Errorf("discovery: send remove: %w", err)
				}
			}
		}
	}
}

// translatePut decodes a raw key/value into an Insert Change. Undecodable or
// mismatched-name entries are dropped rather than propagated as errors,
// since a single corrupt registration shouldn't take discovery down.
func (d *Discovery) translatePut(ctx context.Context, name, key string, value []byte, sink Sink) error {
	var inst registry.ServiceInstance
	if err := json.Unmarshal(value, &inst); err != nil {
		d.log.Warn("discovery: dropping undecodable instance", "key", key, "error", err)
		return nil
	}

	if inst.Name != name {
		return nil
	}
	if _, _, err := net.SplitHostPort(inst.Endpoint); err != nil {
		d.log.Warn("discovery: dropping instance with unparsable endpoint", "key", key, "endpoint", inst.Endpoint, "error", err)
		return nil
	}

	if err := sink.Send(ctx, Change{Kind: Insert, Key: inst.Key, Endpoint: inst.Endpoint}); err != nil {
		return fmt.Errorf("discovery: send insert: %w", err)
	}
	return nil
}
