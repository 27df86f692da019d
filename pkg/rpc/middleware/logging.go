package middleware

import (
	"context"
	"time"

	"github.com/HorseArcher567/octopus/pkg/xlog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerLogging logs each unary RPC's method, duration and outcome.
func UnaryServerLogging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		log := withAttrs(xlog.FromContext(ctx), "method", info.FullMethod)
		if requestID := extractRequestID(ctx); requestID != "" {
			log = withAttrs(log, "request_id", requestID)
		}

		ctx = xlog.WithContext(ctx, log)

		resp, err := handler(ctx, req)
		duration := time.Since(start)

		if err != nil {
			st := status.Convert(err)
			log.Error("grpc request failed", "duration", duration, "code", st.Code().String(), "error", st.Message())
		} else {
			log.Info("grpc request completed", "duration", duration)
		}

		return resp, err
	}
}

// StreamServerLogging logs each streaming RPC's method, duration and outcome.
func StreamServerLogging() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		ctx := ss.Context()

		log := withAttrs(xlog.FromContext(ctx), "method", info.FullMethod)
		if requestID := extractRequestID(ctx); requestID != "" {
			log = withAttrs(log, "request_id", requestID)
		}

		log.Info("grpc stream started",
			"is_client_stream", info.IsClientStream,
			"is_server_stream", info.IsServerStream,
		)

		wrapped := &loggingServerStream{ServerStream: ss, ctx: xlog.WithContext(ctx, log)}
		err := handler(srv, wrapped)
		duration := time.Since(start)

		if err != nil {
			st := status.Convert(err)
			log.Error("grpc stream failed", "duration", duration, "code", st.Code().String(), "error", st.Message())
		} else {
			log.Info("grpc stream completed", "duration", duration)
		}

		return err
	}
}

// UnaryClientLogging logs each outgoing unary RPC made through the connection.
func UnaryClientLogging() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		log := xlog.FromContext(ctx)

		err := invoker(ctx, method, req, reply, cc, opts...)
		duration := time.Since(start)

		if err != nil {
			st := status.Convert(err)
			if st.Code() != codes.Canceled {
				log.Error("grpc client request failed", "method", method, "target", cc.Target(), "duration", duration, "code", st.Code().String(), "error", st.Message())
			}
		} else {
			log.Debug("grpc client request completed", "method", method, "target", cc.Target(), "duration", duration)
		}

		return err
	}
}

// withAttrs returns a new *xlog.Logger with args appended, re-wrapping the
// *slog.Logger that the embedded With returns.
func withAttrs(log *xlog.Logger, args ...any) *xlog.Logger {
	return &xlog.Logger{Logger: log.With(args...)}
}

func extractRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get("x-request-id"); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

type loggingServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *loggingServerStream) Context() context.Context {
	return s.ctx
}
