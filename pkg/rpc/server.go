package rpc

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/HorseArcher567/octopus/pkg/etcd"
	"github.com/HorseArcher567/octopus/pkg/rpc/breaker"
	"github.com/HorseArcher567/octopus/pkg/rpc/middleware"
	"github.com/HorseArcher567/octopus/pkg/rpc/registry"
	"github.com/HorseArcher567/octopus/pkg/store"
	"github.com/HorseArcher567/octopus/pkg/xlog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// namespace is the coordination-store root every registration and
// discovery lookup is rooted under.
const namespace = "/octopus/rpc"

// Server wraps a grpc.Server with the registration and admission-control
// concerns a deployed RPC service needs: it announces itself to the
// coordination store while it serves, and sheds load per-method under the
// breaker.Map before a handler ever runs.
type Server struct {
	log  *xlog.Logger
	cfg  ServerConfig
	sett serverSettings

	grpcServer   *grpc.Server
	healthServer *health.Server
	breakers     *breaker.Map
	store        store.Store // nil when cfg.Etcd is empty: direct-dial-only mode
}

// NewServer builds a Server from cfg. When cfg.Etcd is non-empty it also
// dials the coordination store; that connection is closed by Start once the
// server shuts down.
func NewServer(log *xlog.Logger, cfg ServerConfig, opts ...Option) (*Server, error) {
	cfg = cfg.withDefaults()

	sett := defaultServerSettings()
	for _, opt := range opts {
		opt(&sett)
	}

	s := &Server{
		log:      log,
		cfg:      cfg,
		sett:     sett,
		breakers: breaker.NewMap(sett.breakerK, sett.breakerWindow, sett.breakerMetrics),
	}

	if cfg.EnableHealth {
		s.healthServer = health.NewServer()
	}

	if !cfg.Etcd.isEmpty() {
		client, err := etcd.NewClient(cfg.Etcd.toEtcdConfig())
		if err != nil {
			return nil, fmt.Errorf("rpc: connect etcd: %w", err)
		}
		s.store = store.NewEtcd(client)
	}

	unaryInterceptors := []grpc.UnaryServerInterceptor{
		middleware.UnaryServerLogging(),
		middleware.Breaker(s.breakers),
	}
	streamInterceptors := []grpc.StreamServerInterceptor{
		middleware.StreamServerLogging(),
	}
	if sett.grpcMetrics != nil {
		unaryInterceptors = append(unaryInterceptors, sett.grpcMetrics.UnaryServerInterceptor())
		streamInterceptors = append(streamInterceptors, sett.grpcMetrics.StreamServerInterceptor())
	}

	serverOpts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
		grpc.ChainStreamInterceptor(streamInterceptors...),
	}, sett.grpcOptions...)

	s.grpcServer = grpc.NewServer(serverOpts...)

	if cfg.EnableHealth {
		grpc_health_v1.RegisterHealthServer(s.grpcServer, s.healthServer)
	}
	if cfg.EnableReflection {
		reflection.Register(s.grpcServer)
	}

	return s, nil
}

// RegisterService exposes the underlying grpc.Server to a generated
// RegisterXxxServer call. Call it as many times as the process serves
// distinct services, before Start.
func (s *Server) RegisterService(register func(*grpc.Server)) {
	register(s.grpcServer)
	if s.sett.grpcMetrics != nil {
		s.sett.grpcMetrics.InitializeMetrics(s.grpcServer)
	}
}

// Breakers returns the per-method admission-control map, for exposing a
// diagnostics endpoint alongside the RPC server.
func (s *Server) Breakers() *breaker.Map {
	return s.breakers
}

// Start listens on cfg.Endpoint, registers with the coordination store (if
// configured), and serves until ctx is canceled or the process receives
// SIGINT/SIGTERM. It returns once the grpc.Server has fully drained.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", s.cfg.Endpoint, err)
	}

	if s.healthServer != nil {
		s.healthServer.SetServingStatus(s.cfg.ServerName, grpc_health_v1.HealthCheckResponse_SERVING)
		s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("rpc server listening", "endpoint", s.cfg.Endpoint, "server", s.cfg.ServerName)
		if err := s.grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("rpc: serve: %w", err)
		}
		return nil
	})

	if s.store != nil {
		instance := registry.NewServiceInstance(s.namespace(), s.cfg.ServerName, s.cfg.Endpoint)
		reg := registry.NewRegister(s.log, s.store, instance, s.cfg.TTL)
		g.Go(func() error {
			if err := reg.Run(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("rpc: registration: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	err = g.Wait()
	if s.store != nil {
		if cerr := s.store.Close(); cerr != nil {
			s.log.Error("rpc: close store", "error", cerr)
		}
	}
	return err
}

func (s *Server) shutdown() {
	s.log.Info("rpc server shutting down")
	if s.healthServer != nil {
		s.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.grpcServer.Stop()
	}
}

func (s *Server) namespace() string {
	return fmt.Sprintf("%s/%s", namespace, s.cfg.Model)
}
