package rpc

import (
	"time"

	"github.com/HorseArcher567/octopus/pkg/prometheus/metrics"
	"github.com/HorseArcher567/octopus/pkg/rpc/breaker"
	"google.golang.org/grpc"
)

// Option configures a Server at construction time.
type Option func(s *serverSettings)

type serverSettings struct {
	grpcOptions    []grpc.ServerOption
	breakerK       float64
	breakerWindow  time.Duration
	breakerMetrics *breaker.Metrics
	grpcMetrics    *metrics.GrpcServerMetrics
}

func defaultServerSettings() serverSettings {
	return serverSettings{
		breakerK:      breaker.DefaultK,
		breakerWindow: 10 * time.Second,
	}
}

// WithGRPCOptions appends raw grpc.ServerOptions, applied after the server's
// own logging and breaker interceptors.
func WithGRPCOptions(opts ...grpc.ServerOption) Option {
	return func(s *serverSettings) {
		s.grpcOptions = append(s.grpcOptions, opts...)
	}
}

// WithBreakerAggressiveness overrides the adaptive throttle's K factor and
// counter window (defaults: breaker.DefaultK, 10s).
func WithBreakerAggressiveness(k float64, window time.Duration) Option {
	return func(s *serverSettings) {
		s.breakerK = k
		s.breakerWindow = window
	}
}

// WithBreakerMetrics registers a prometheus collector for per-path breaker
// admit/reject counts. Register it on the serving registry yourself; the
// Server only feeds it observations.
func WithBreakerMetrics(m *breaker.Metrics) Option {
	return func(s *serverSettings) {
		s.breakerMetrics = m
	}
}

// WithGrpcMetrics wires a GrpcServerMetrics collector into the server's
// unary and stream interceptor chains, and pre-registers its labels for
// every RegisterService call. Register m on the serving registry yourself.
func WithGrpcMetrics(m *metrics.GrpcServerMetrics) Option {
	return func(s *serverSettings) {
		s.grpcMetrics = m
	}
}
