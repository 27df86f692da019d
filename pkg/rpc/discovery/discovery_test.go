package discovery

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/HorseArcher567/octopus/pkg/rpc/registry"
	"github.com/HorseArcher567/octopus/pkg/store"
	"github.com/HorseArcher567/octopus/pkg/xlog"
	"github.com/stretchr/testify/require"
)

func testLogger() *xlog.Logger {
	return xlog.MustNew(xlog.Config{Output: "stdout", Level: "error"})
}

type fakeStore struct {
	kvs     []store.KV
	watchCh chan store.WatchEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{watchCh: make(chan store.WatchEvent)}
}

func (f *fakeStore) Get(ctx context.Context, prefix string) ([]store.KV, error) {
	return f.kvs, nil
}
func (f *fakeStore) Put(ctx context.Context, key, value string, leaseID int64) error { return nil }
func (f *fakeStore) LeaseGrant(ctx context.Context, ttlSeconds int64) (int64, error) {
	return 1, nil
}
func (f *fakeStore) LeaseKeepAlive(ctx context.Context, leaseID int64) (store.KeepAliveSender, <-chan store.KeepAliveAck, error) {
	return nil, nil, nil
}
func (f *fakeStore) Watch(ctx context.Context, prefix string) (<-chan store.WatchEvent, func()) {
	return f.watchCh, func() {}
}
func (f *fakeStore) Close() error { return nil }

func encode(t *testing.T, inst registry.ServiceInstance) []byte {
	t.Helper()
	data, err := json.Marshal(inst)
	require.NoError(t, err)
	return data
}

func TestGetServer_SeedsFromExistingInstances(t *testing.T) {
	fs := newFakeStore()
	inst := registry.NewServiceInstance("/octopus/rpc/apps", "greeter", "10.0.0.1:9000")
	fs.kvs = []store.KV{{Key: inst.Key, Value: encode(t, *inst)}}

	d := New(testLogger(), fs, "/octopus/rpc/apps")
	sink := NewChanSink(1)

	err := d.GetServer(context.Background(), "greeter", sink)
	require.NoError(t, err)

	select {
	case c := <-sink.C():
		require.Equal(t, Insert, c.Kind)
		require.Equal(t, "10.0.0.1:9000", c.Endpoint)
		require.Equal(t, inst.Key, c.Key)
	default:
		t.Fatal("expected a Change to be sent")
	}
}

func TestGetServer_FiltersByName(t *testing.T) {
	fs := newFakeStore()
	other := registry.NewServiceInstance("/octopus/rpc/apps", "other-service", "10.0.0.2:9001")
	fs.kvs = []store.KV{{Key: other.Key, Value: encode(t, *other)}}

	d := New(testLogger(), fs, "/octopus/rpc/apps")
	sink := NewChanSink(1)

	err := d.GetServer(context.Background(), "greeter", sink)
	require.NoError(t, err)

	select {
	case c := <-sink.C():
		t.Fatalf("expected no Change for mismatched name, got %+v", c)
	default:
	}
}

func TestGetServer_DropsCorruptValue(t *testing.T) {
	fs := newFakeStore()
	fs.kvs = []store.KV{{Key: "/octopus/rpc/apps/greeter/1/abc", Value: []byte("not json")}}

	d := New(testLogger(), fs, "/octopus/rpc/apps")
	sink := NewChanSink(1)

	err := d.GetServer(context.Background(), "greeter", sink)
	require.NoError(t, err)

	select {
	case c := <-sink.C():
		t.Fatalf("expected no Change for corrupt value, got %+v", c)
	default:
	}
}

func TestWatch_TranslatesPutAndDelete(t *testing.T) {
	fs := newFakeStore()
	d := New(testLogger(), fs, "/octopus/rpc/apps")
	sink := NewChanSink(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Watch(ctx, "greeter", sink) }()

	inst := registry.NewServiceInstance("/octopus/rpc/apps", "greeter", "10.0.0.3:9002")
	fs.watchCh <- store.WatchEvent{Type: store.EventPut, Key: inst.Key, Value: encode(t, *inst)}

	select {
	case c := <-sink.C():
		require.Equal(t, Insert, c.Kind)
		require.Equal(t, inst.Key, c.Key)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for insert")
	}

	fs.watchCh <- store.WatchEvent{Type: store.EventDelete, Key: inst.Key}

	select {
	case c := <-sink.C():
		require.Equal(t, Remove, c.Kind)
		require.Equal(t, inst.Key, c.Key)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for remove")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
