package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeEtcdClient is a minimal etcdClient double: it only implements the
// translation behavior Etcd.Get/Put/LeaseGrant/LeaseKeepAlive/Watch touch,
// not a real etcd wire protocol.
type fakeEtcdClient struct {
	getResp *clientv3.GetResponse
	getErr  error

	putErr error

	grantResp *clientv3.LeaseGrantResponse
	grantErr  error

	keepAliveResps []*clientv3.LeaseKeepAliveResponse
	keepAliveErrs  []error
	keepAliveCall  int

	watchCh chan clientv3.WatchResponse

	closed bool
}

func (f *fakeEtcdClient) Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	return f.getResp, f.getErr
}

func (f *fakeEtcdClient) Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &clientv3.PutResponse{}, nil
}

func (f *fakeEtcdClient) Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error) {
	return f.grantResp, f.grantErr
}

func (f *fakeEtcdClient) KeepAliveOnce(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseKeepAliveResponse, error) {
	i := f.keepAliveCall
	f.keepAliveCall++

	var err error
	if i < len(f.keepAliveErrs) {
		err = f.keepAliveErrs[i]
	}
	if err != nil {
		return nil, err
	}

	if i < len(f.keepAliveResps) {
		return f.keepAliveResps[i], nil
	}
	return f.keepAliveResps[len(f.keepAliveResps)-1], nil
}

func (f *fakeEtcdClient) Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan {
	return f.watchCh
}

func (f *fakeEtcdClient) Close() error {
	f.closed = true
	return nil
}

func TestEtcdGet_TranslatesKeyValues(t *testing.T) {
	fc := &fakeEtcdClient{getResp: &clientv3.GetResponse{
		Kvs: []*mvccpb.KeyValue{
			{Key: []byte("/octopus/rpc/apps/greeter/a"), Value: []byte("payload-a")},
			{Key: []byte("/octopus/rpc/apps/greeter/b"), Value: []byte("payload-b")},
		},
	}}
	e := &Etcd{client: fc}

	kvs, err := e.Get(context.Background(), "/octopus/rpc/apps/greeter")
	require.NoError(t, err)
	require.Len(t, kvs, 2)
	require.Equal(t, "/octopus/rpc/apps/greeter/a", kvs[0].Key)
	require.Equal(t, []byte("payload-a"), kvs[0].Value)
}

func TestEtcdGet_WrapsBackendError(t *testing.T) {
	fc := &fakeEtcdClient{getErr: errors.New("dial tcp: refused")}
	e := &Etcd{client: fc}

	_, err := e.Get(context.Background(), "/octopus/rpc/apps/greeter")
	require.Error(t, err)
}

func TestEtcdPut_PropagatesError(t *testing.T) {
	fc := &fakeEtcdClient{putErr: errors.New("etcdserver: mvcc: required revision has been compacted")}
	e := &Etcd{client: fc}

	err := e.Put(context.Background(), "k", "v", 0)
	require.Error(t, err)
}

func TestEtcdLeaseGrant_ReturnsLeaseID(t *testing.T) {
	fc := &fakeEtcdClient{grantResp: &clientv3.LeaseGrantResponse{ID: clientv3.LeaseID(42)}}
	e := &Etcd{client: fc}

	id, err := e.LeaseGrant(context.Background(), 10)
	require.NoError(t, err)
	require.EqualValues(t, 42, id)
}

func TestEtcdLeaseGrant_WrapsErrNoLease(t *testing.T) {
	fc := &fakeEtcdClient{grantErr: errors.New("etcdserver: too many requests")}
	e := &Etcd{client: fc}

	_, err := e.LeaseGrant(context.Background(), 10)
	require.ErrorIs(t, err, ErrNoLease)
}

func TestEtcdKeepAliveSender_SendAcksTTL(t *testing.T) {
	fc := &fakeEtcdClient{keepAliveResps: []*clientv3.LeaseKeepAliveResponse{{TTL: 30}}}
	e := &Etcd{client: fc}

	sender, ch, err := e.LeaseKeepAlive(context.Background(), 42)
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background()))
	ack := <-ch
	require.EqualValues(t, 30, ack.TTL)
}

func TestEtcdKeepAliveSender_ClosesAckChannelOnCleanExpiry(t *testing.T) {
	fc := &fakeEtcdClient{keepAliveResps: []*clientv3.LeaseKeepAliveResponse{{TTL: 0}}}
	e := &Etcd{client: fc}

	sender, ch, err := e.LeaseKeepAlive(context.Background(), 42)
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background()))
	ack, ok := <-ch
	require.True(t, ok)
	require.Zero(t, ack.TTL)

	_, ok = <-ch
	require.False(t, ok, "ack channel should be closed once TTL<=0 is reported")
}

func TestEtcdKeepAliveSender_ClosesAckChannelOnTransportError(t *testing.T) {
	fc := &fakeEtcdClient{keepAliveErrs: []error{errors.New("rpc error: code = Unavailable")}}
	e := &Etcd{client: fc}

	sender, ch, err := e.LeaseKeepAlive(context.Background(), 42)
	require.NoError(t, err)

	require.Error(t, sender.Send(context.Background()))
	_, ok := <-ch
	require.False(t, ok, "ack channel should be closed when the keepalive RPC itself fails")
}

func TestEtcdKeepAliveSender_SendAfterCloseIsNoop(t *testing.T) {
	fc := &fakeEtcdClient{keepAliveResps: []*clientv3.LeaseKeepAliveResponse{{TTL: 0}, {TTL: 30}}}
	e := &Etcd{client: fc}

	sender, ch, err := e.LeaseKeepAlive(context.Background(), 42)
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background()))
	<-ch

	// Second Send arrives after the sender has already observed a clean
	// expiry; it must not reopen or write to the now-closed ack channel.
	require.NoError(t, sender.Send(context.Background()))
}

func TestEtcdWatch_TranslatesPutAndDeleteEvents(t *testing.T) {
	fc := &fakeEtcdClient{watchCh: make(chan clientv3.WatchResponse, 1)}
	e := &Etcd{client: fc}

	events, cancel := e.Watch(context.Background(), "/octopus/rpc/apps/greeter")
	defer cancel()

	fc.watchCh <- clientv3.WatchResponse{
		Events: []*clientv3.Event{
			{Type: mvccpb.PUT, Kv: &mvccpb.KeyValue{Key: []byte("/octopus/rpc/apps/greeter/a"), Value: []byte("payload")}},
			{Type: mvccpb.DELETE, Kv: &mvccpb.KeyValue{Key: []byte("/octopus/rpc/apps/greeter/b")}},
		},
	}

	put := <-events
	require.Equal(t, EventPut, put.Type)
	require.Equal(t, "/octopus/rpc/apps/greeter/a", put.Key)
	require.Equal(t, []byte("payload"), put.Value)

	del := <-events
	require.Equal(t, EventDelete, del.Type)
	require.Equal(t, "/octopus/rpc/apps/greeter/b", del.Key)

	close(fc.watchCh)
	_, ok := <-events
	require.False(t, ok, "event channel should close once the underlying watch channel closes")
}

func TestEtcdClose_ClosesUnderlyingClient(t *testing.T) {
	fc := &fakeEtcdClient{}
	e := &Etcd{client: fc}

	require.NoError(t, e.Close())
	require.True(t, fc.closed)
}

func TestEtcd_OperationsAfterCloseReturnErrClosed(t *testing.T) {
	fc := &fakeEtcdClient{
		getResp:   &clientv3.GetResponse{},
		grantResp: &clientv3.LeaseGrantResponse{},
	}
	e := &Etcd{client: fc}
	require.NoError(t, e.Close())

	_, err := e.Get(context.Background(), "/octopus/rpc/apps/greeter")
	require.ErrorIs(t, err, ErrClosed)

	require.ErrorIs(t, e.Put(context.Background(), "k", "v", 0), ErrClosed)

	_, err = e.LeaseGrant(context.Background(), 10)
	require.ErrorIs(t, err, ErrClosed)

	_, _, err = e.LeaseKeepAlive(context.Background(), 1)
	require.ErrorIs(t, err, ErrClosed)

	events, cancel := e.Watch(context.Background(), "/octopus/rpc/apps/greeter")
	defer cancel()
	_, ok := <-events
	require.False(t, ok, "Watch after Close should return an already-closed channel")
}
