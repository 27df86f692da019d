package store

import (
	"context"
	"fmt"
	"sync"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// etcdClient is the slice of *clientv3.Client's method set Etcd actually
// calls. Narrowing to an interface here, rather than holding the concrete
// *clientv3.Client directly, lets tests exercise Etcd's lease/keepalive/watch
// translation logic against a fake without a live etcd server.
type etcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	KeepAliveOnce(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseKeepAliveResponse, error)
	Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan
	Close() error
}

// Etcd is the etcd-backed Store implementation: grant/put/keepalive and
// prefix get/watch against *clientv3.Client.
type Etcd struct {
	client etcdClient

	mu     sync.RWMutex
	closed bool
}

// NewEtcd wraps an already-constructed etcd client as a Store.
func NewEtcd(client *clientv3.Client) *Etcd {
	return &Etcd{client: client}
}

func (e *Etcd) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

func (e *Etcd) Get(ctx context.Context, prefix string) ([]KV, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}

	resp, err := e.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcd get %s: %w", prefix, err)
	}

	kvs := make([]KV, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		kvs = append(kvs, KV{Key: string(kv.Key), Value: kv.Value})
	}
	return kvs, nil
}

func (e *Etcd) Put(ctx context.Context, key, value string, leaseID int64) error {
	if e.isClosed() {
		return ErrClosed
	}

	var opts []clientv3.OpOption
	if leaseID != 0 {
		opts = append(opts, clientv3.WithLease(clientv3.LeaseID(leaseID)))
	}

	if _, err := e.client.Put(ctx, key, value, opts...); err != nil {
		return fmt.Errorf("etcd put %s: %w", key, err)
	}
	return nil
}

func (e *Etcd) LeaseGrant(ctx context.Context, ttlSeconds int64) (int64, error) {
	if e.isClosed() {
		return 0, ErrClosed
	}

	resp, err := e.client.Grant(ctx, ttlSeconds)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoLease, err)
	}
	return int64(resp.ID), nil
}

func (e *Etcd) LeaseKeepAlive(ctx context.Context, leaseID int64) (KeepAliveSender, <-chan KeepAliveAck, error) {
	if e.isClosed() {
		return nil, nil, ErrClosed
	}

	ch := make(chan KeepAliveAck, 1)
	sender := &etcdKeepAliveSender{
		client:  e.client,
		leaseID: clientv3.LeaseID(leaseID),
		ack:     ch,
	}
	return sender, ch, nil
}

// etcdKeepAliveSender issues a single LeaseKeepAliveOnce RPC per Send call,
// matching the store contract's "one heartbeat, at most one ack" shape
// rather than clientv3's own auto-renewing KeepAlive stream.
type etcdKeepAliveSender struct {
	client  etcdClient
	leaseID clientv3.LeaseID
	ack     chan KeepAliveAck

	mu     sync.Mutex
	closed bool
}

func (s *etcdKeepAliveSender) Send(ctx context.Context) error {
	resp, err := s.client.KeepAliveOnce(ctx, s.leaseID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	if err != nil {
		s.closed = true
		close(s.ack)
		return fmt.Errorf("etcd keepalive lease %d: %w", s.leaseID, err)
	}

	select {
	case s.ack <- KeepAliveAck{TTL: resp.TTL}:
	default:
		// Observer hasn't drained the previous ack yet; drop rather than block
		// the refresher, it'll see the latest state on its next send anyway.
	}

	if resp.TTL <= 0 {
		s.closed = true
		close(s.ack)
	}
	return nil
}

func (e *Etcd) Watch(ctx context.Context, prefix string) (<-chan WatchEvent, func()) {
	if e.isClosed() {
		out := make(chan WatchEvent)
		close(out)
		return out, func() {}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	out := make(chan WatchEvent)
	watchChan := e.client.Watch(watchCtx, prefix, clientv3.WithPrefix())

	go func() {
		defer close(out)
		for resp := range watchChan {
			if err := resp.Err(); err != nil {
				return
			}
			for _, ev := range resp.Events {
				we := WatchEvent{Key: string(ev.Kv.Key)}
				switch ev.Type {
				case mvccpb.PUT:
					we.Type = EventPut
					we.Value = ev.Kv.Value
				case mvccpb.DELETE:
					we.Type = EventDelete
				}

				select {
				case out <- we:
				case <-watchCtx.Done():
					return
				}
			}
		}
	}()

	return out, cancel
}

func (e *Etcd) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	return e.client.Close()
}
