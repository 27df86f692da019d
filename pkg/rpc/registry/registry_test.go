package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/HorseArcher567/octopus/pkg/store"
	"github.com/HorseArcher567/octopus/pkg/xlog"
	"github.com/stretchr/testify/require"
)

func testLogger() *xlog.Logger {
	return xlog.MustNew(xlog.Config{Output: "stdout", Level: "error"})
}

// fakeStore is a minimal in-memory store.Store double. sendTTLs, if set,
// scripts the TTL reported by successive Send calls; once exhausted it keeps
// returning the last value.
type fakeStore struct {
	mu sync.Mutex

	grants   int
	puts     int
	sendTTLs []int64
	sendIdx  int

	grantErr error
}

func (f *fakeStore) Get(ctx context.Context, prefix string) ([]store.KV, error) { return nil, nil }

func (f *fakeStore) Put(ctx context.Context, key, value string, leaseID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	return nil
}

func (f *fakeStore) LeaseGrant(ctx context.Context, ttlSeconds int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants++
	if f.grantErr != nil {
		return 0, f.grantErr
	}
	return int64(f.grants), nil
}

func (f *fakeStore) LeaseKeepAlive(ctx context.Context, leaseID int64) (store.KeepAliveSender, <-chan store.KeepAliveAck, error) {
	ch := make(chan store.KeepAliveAck, 1)
	return &fakeSender{parent: f, ack: ch}, ch, nil
}

func (f *fakeStore) Watch(ctx context.Context, prefix string) (<-chan store.WatchEvent, func()) {
	ch := make(chan store.WatchEvent)
	return ch, func() { close(ch) }
}

func (f *fakeStore) Close() error { return nil }

type fakeSender struct {
	parent *fakeStore
	ack    chan store.KeepAliveAck
	closed bool
}

func (s *fakeSender) Send(ctx context.Context) error {
	s.parent.mu.Lock()
	var ttl int64 = 60
	if len(s.parent.sendTTLs) > 0 {
		idx := s.parent.sendIdx
		if idx >= len(s.parent.sendTTLs) {
			idx = len(s.parent.sendTTLs) - 1
		}
		ttl = s.parent.sendTTLs[idx]
		s.parent.sendIdx++
	}
	s.parent.mu.Unlock()

	if s.closed {
		return nil
	}
	s.ack <- store.KeepAliveAck{TTL: ttl}
	if ttl <= 0 {
		s.closed = true
		close(s.ack)
	}
	return nil
}

func TestRegisterRun_ValidatesInstance(t *testing.T) {
	fs := &fakeStore{}
	inst := &ServiceInstance{Name: "", Endpoint: "127.0.0.1:9000"}
	r := NewRegister(testLogger(), fs, inst, 2)

	err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrEmptyName)
	require.Zero(t, fs.grants)
}

func TestRegisterRun_RejectsNonPositiveTTL(t *testing.T) {
	fs := &fakeStore{}
	inst := NewServiceInstance("/octopus/rpc/apps", "greeter", "127.0.0.1:9000")
	r := NewRegister(testLogger(), fs, inst, 0)

	err := r.Run(context.Background())
	require.ErrorIs(t, err, ErrInvalidTTL)
}

func TestRegisterRun_GrantsAndPutsOnStartup(t *testing.T) {
	fs := &fakeStore{sendTTLs: []int64{60, 60, 60}}
	inst := NewServiceInstance("/octopus/rpc/apps", "greeter", "127.0.0.1:9000")
	r := NewRegister(testLogger(), fs, inst, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_ = r.Run(ctx)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.GreaterOrEqual(t, fs.grants, 1)
	require.GreaterOrEqual(t, fs.puts, 1)
}

func TestRegisterRun_StopsOnLeaseExpiry(t *testing.T) {
	// A single TTL<=0 ack must stop both the refresher and the observer and
	// cause Register to re-enter runOnce (granting a fresh lease).
	fs := &fakeStore{sendTTLs: []int64{0}}
	inst := NewServiceInstance("/octopus/rpc/apps", "greeter", "127.0.0.1:9000")
	r := NewRegister(testLogger(), fs, inst, 1) // ttl=1s -> refresh interval 500ms, so the first heartbeat lands inside the 600ms run

	runCtx, runCancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer runCancel()
	_ = r.Run(runCtx)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	require.GreaterOrEqual(t, fs.grants, 2, "expired lease must trigger re-registration")
}
