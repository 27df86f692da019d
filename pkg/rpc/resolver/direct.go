package resolver

import (
	"strings"

	"github.com/HorseArcher567/octopus/pkg/xlog"
	grpcresolver "google.golang.org/grpc/resolver"
)

// DirectResolverBuilder implements a fixed-address resolver.Builder. Targets
// take the form direct:///ip1:port1,ip2:port2; the resolver parses the
// endpoint list once at Build time and never updates it afterward.
type DirectResolverBuilder struct {
	log *xlog.Logger
}

// NewDirectBuilder creates a direct-mode resolver builder.
func NewDirectBuilder(log *xlog.Logger) *DirectResolverBuilder {
	return &DirectResolverBuilder{log: log}
}

// Scheme returns SchemeDirect. Pass the builder via grpc.WithResolvers; no
// global registration is required.
func (b *DirectResolverBuilder) Scheme() string {
	return SchemeDirect
}

// Build parses target.Endpoint's comma-separated address list and pushes it
// to cc once.
func (b *DirectResolverBuilder) Build(target grpcresolver.Target, cc grpcresolver.ClientConn, opts grpcresolver.BuildOptions) (grpcresolver.Resolver, error) {
	r := &directResolver{cc: cc, log: &xlog.Logger{Logger: b.log.With("component", "resolver", "scheme", "direct")}}

	raw := target.Endpoint()
	parts := strings.Split(raw, ",")

	addrs := make([]grpcresolver.Address, 0, len(parts))
	for _, ep := range parts {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		addrs = append(addrs, grpcresolver.Address{Addr: ep})
	}

	if len(addrs) == 0 {
		r.log.Warn("direct resolver initialized with empty endpoints", "raw_endpoint", raw)
	} else {
		r.log.Info("direct resolver initialized", "endpoints", raw)
	}

	cc.UpdateState(grpcresolver.State{Addresses: addrs})
	return r, nil
}

// directResolver serves a fixed address list; it needs no watch or cleanup.
type directResolver struct {
	cc  grpcresolver.ClientConn
	log *xlog.Logger
}

func (r *directResolver) ResolveNow(grpcresolver.ResolveNowOptions) {}

func (r *directResolver) Close() {}
