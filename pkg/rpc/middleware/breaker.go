package middleware

import (
	"context"

	"github.com/HorseArcher567/octopus/pkg/rpc/breaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Breaker builds a unary interceptor that sheds requests per-path using m's
// adaptive throttles: look up the path's breaker, ask it to admit the call,
// forward on admission or fail fast with Unavailable, then feed the
// handler's outcome back into the breaker.
func Breaker(m *breaker.Map) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		b, ok := m.Allow(info.FullMethod)
		if !ok {
			return nil, status.Error(codes.Unavailable, "request shed by adaptive throttle")
		}

		resp, err := handler(ctx, req)
		if err != nil {
			b.MarkFailed()
		} else {
			b.MarkSuccess()
		}
		return resp, err
	}
}
