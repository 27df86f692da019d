package app

import (
	"context"
	"fmt"
	"time"

	"github.com/HorseArcher567/octopus/pkg/api"
	"github.com/HorseArcher567/octopus/pkg/config"
	"github.com/HorseArcher567/octopus/pkg/rpc"
	"github.com/HorseArcher567/octopus/pkg/xlog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// Config is the application-level configuration, aggregating logging, RPC
// and API server configuration.
type Config struct {
	Logger    xlog.Config      `yaml:"logger" json:"logger" toml:"logger"`
	RpcServer rpc.ServerConfig `yaml:"rpcServer" json:"rpcServer" toml:"rpcServer"`
	ApiServer api.ServerConfig `yaml:"apiServer" json:"apiServer" toml:"apiServer"`
}

// BeforeRunHook runs before the servers start; a returned error aborts startup.
type BeforeRunHook func(ctx context.Context, a *App) error

// ShutdownHook runs during shutdown; later hooks still run even if an
// earlier one returns an error.
type ShutdownHook func(ctx context.Context, a *App) error

// App hosts a gRPC server and an HTTP API server sharing one lifecycle.
type App struct {
	cfgPath string
	cfg     *Config

	rpcOpt  []rpc.Option
	httpOpt []api.Option

	log *xlog.Logger

	rpcServer *rpc.Server
	apiServer *api.Server

	ctx context.Context

	beforeRunHooks []BeforeRunHook
	shutdownHooks  []ShutdownHook
}

// New creates an App and runs init immediately, applying opts first.
func New(opts ...Option) *App {
	a := &App{
		cfgPath: "config.yaml",
		ctx:     context.Background(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.init()
	return a
}

func (a *App) init() {
	if a.cfg == nil {
		var cfg Config
		config.MustLoadWithEnvAndUnmarshal(a.cfgPath, &cfg)
		a.cfg = &cfg
	}

	if a.log == nil {
		a.log = xlog.MustNew(a.cfg.Logger)
	}

	a.ctx = xlog.WithContext(a.ctx, a.log)

	if a.cfg.RpcServer.Endpoint != "" {
		srv, err := rpc.NewServer(a.log, a.cfg.RpcServer, a.rpcOpt...)
		if err != nil {
			panic(fmt.Sprintf("app: failed to create rpc server: %v", err))
		}
		a.rpcServer = srv
	}

	if a.cfg.ApiServer.Port > 0 {
		a.apiServer = api.NewServer(a.ctx, &a.cfg.ApiServer, a.httpOpt...)
	}
}

// OnBeforeRun registers a hook run before Run starts any server, in
// registration order; the first error aborts startup.
func (a *App) OnBeforeRun(h BeforeRunHook) *App {
	if h != nil {
		a.beforeRunHooks = append(a.beforeRunHooks, h)
	}
	return a
}

// OnShutdown registers a hook run once every server has stopped.
func (a *App) OnShutdown(h ShutdownHook) *App {
	if h != nil {
		a.shutdownHooks = append(a.shutdownHooks, h)
	}
	return a
}

// RpcServer returns the app's underlying RPC server, or nil if RpcServer
// config was not set. Useful for wiring its debug handler onto the API
// server, or inspecting its breaker map.
func (a *App) RpcServer() *rpc.Server {
	return a.rpcServer
}

// RegisterRpcService registers a gRPC service on the app's RPC server.
func (a *App) RegisterRpcService(register func(s *grpc.Server)) *App {
	if a.rpcServer == nil {
		panic("app: rpc server is not initialized (check RpcServer config)")
	}
	a.rpcServer.RegisterService(register)
	return a
}

// RegisterApiRoutes registers HTTP routes on the app's gin.Engine.
func (a *App) RegisterApiRoutes(register func(engine *api.Engine)) *App {
	if a.apiServer == nil {
		panic("app: api server is not initialized (check ApiServer config)")
	}
	if register != nil {
		register(a.apiServer.Engine())
	}
	return a
}

// Run starts every configured server and blocks until they all stop:
//  1. runs OnBeforeRun hooks, aborting on the first error;
//  2. starts the RPC and API servers concurrently;
//  3. once both have stopped, runs OnShutdown hooks.
func (a *App) Run() error {
	if a.rpcServer == nil && a.apiServer == nil {
		return fmt.Errorf("app: no server is initialized, check RpcServer/ApiServer config")
	}

	if err := a.runBeforeRunHooks(); err != nil {
		return err
	}

	var g errgroup.Group

	if a.rpcServer != nil {
		srv := a.rpcServer
		g.Go(func() error {
			return srv.Start(a.ctx)
		})
	}

	if a.apiServer != nil {
		httpSrv := a.apiServer
		g.Go(func() error {
			return httpSrv.Start()
		})
	}

	err := g.Wait()

	shutdownErr := a.runShutdownHooks()
	if err := a.log.Close(); err != nil {
		a.log.Error("app: failed to close logger", "error", err)
	}

	if err != nil {
		return err
	}
	return shutdownErr
}

func (a *App) runBeforeRunHooks() error {
	ctx := a.ctx
	for i, h := range a.beforeRunHooks {
		if h == nil {
			continue
		}
		if err := h(ctx, a); err != nil {
			a.log.Error("before run hook failed", "index", i, "error", err)
			return err
		}
	}
	return nil
}

func (a *App) runShutdownHooks() error {
	if len(a.shutdownHooks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var firstErr error
	for i, h := range a.shutdownHooks {
		if h == nil {
			continue
		}
		if err := h(ctx, a); err != nil {
			a.log.Error("shutdown hook failed", "index", i, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
