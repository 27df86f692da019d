package rpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/HorseArcher567/octopus/pkg/etcd"
	"github.com/HorseArcher567/octopus/pkg/rpc/discovery"
	"github.com/HorseArcher567/octopus/pkg/rpc/middleware"
	"github.com/HorseArcher567/octopus/pkg/rpc/resolver"
	"github.com/HorseArcher567/octopus/pkg/store"
	"github.com/HorseArcher567/octopus/pkg/xlog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// NewClient dials serverName. If cfg.Etcd is configured it discovers and
// load-balances across every registered instance of serverName under
// cfg.Model via NewBalancedClient; otherwise serverName is treated as a
// direct, comma-separated address list (e.g. "10.0.0.1:9090,10.0.0.2:9090").
//
// In discovery mode the coordination-store connection lives until ctx is
// canceled, as described on NewBalancedClient; closing the returned
// *grpc.ClientConn does not release it.
func NewClient(ctx context.Context, log *xlog.Logger, serverName string, cfg ClientConfig, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	cfg = cfg.withDefaults()

	if cfg.Etcd.isEmpty() {
		return newDirectClient(log, serverName, opts...)
	}
	return NewBalancedClient(ctx, log, serverName, cfg, opts...)
}

func newDirectClient(log *xlog.Logger, serverName string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	builder := resolver.NewDirectBuilder(log)
	target := fmt.Sprintf("direct:///%s", serverName)

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"round_robin"}`),
		grpc.WithResolvers(builder),
		grpc.WithChainUnaryInterceptor(middleware.UnaryClientLogging()),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", serverName, err)
	}
	return conn, nil
}

// NewBalancedClient dials serverName through a resolver fed by
// pkg/rpc/discovery, load-balancing across every instance registered under
// cfg.Model. cfg.BalancerCapacity bounds the discovery-change sink buffer
// the background resolver-driving goroutine reads from.
//
// The coordination-store connection and that goroutine both live for as
// long as ctx does; cancel ctx to release them. The returned conn itself
// must still be Closed by the caller as usual.
func NewBalancedClient(ctx context.Context, log *xlog.Logger, serverName string, cfg ClientConfig, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	if strings.TrimSpace(serverName) == "" {
		return nil, fmt.Errorf("rpc: serverName is required")
	}
	cfg = cfg.withDefaults()

	client, err := etcd.NewClient(cfg.Etcd.toEtcdConfig())
	if err != nil {
		return nil, fmt.Errorf("rpc: connect etcd: %w", err)
	}
	st := store.NewEtcd(client)

	disc := discovery.New(log, st, fmt.Sprintf("%s/%s", namespace, cfg.Model))
	builder := resolver.NewDynamicBuilder()

	go func() {
		resolver.Drive(ctx, log, disc, serverName, builder, cfg.BalancerCapacity)
		if err := st.Close(); err != nil {
			log.Error("rpc: close etcd store", "error", err)
		}
	}()

	target := fmt.Sprintf("%s:///%s", builder.Scheme(), serverName)
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"round_robin"}`),
		grpc.WithResolvers(builder),
		grpc.WithChainUnaryInterceptor(middleware.UnaryClientLogging()),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", serverName, err)
	}

	return conn, nil
}
