package app

import (
	"github.com/HorseArcher567/octopus/pkg/api"
	"github.com/HorseArcher567/octopus/pkg/rpc"
	"github.com/HorseArcher567/octopus/pkg/xlog"
)

// Option customizes App initialization.
type Option func(a *App)

// WithConfigFile sets the config file path (default "config.yaml").
func WithConfigFile(path string) Option {
	return func(a *App) {
		if path != "" {
			a.cfgPath = path
		}
	}
}

// WithConfig provides a Config directly, skipping file loading.
func WithConfig(cfg *Config) Option {
	return func(a *App) {
		if cfg != nil {
			a.cfg = cfg
		}
	}
}

// WithLogger uses an already-constructed logger instead of building one from
// config.
func WithLogger(log *xlog.Logger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// WithRpcOptions passes rpc.Options through to rpc.NewServer.
func WithRpcOptions(opts ...rpc.Option) Option {
	return func(a *App) {
		a.rpcOpt = append(a.rpcOpt, opts...)
	}
}

// WithApiOptions passes api.Options through to api.NewServer.
func WithApiOptions(opts ...api.Option) Option {
	return func(a *App) {
		a.httpOpt = append(a.httpOpt, opts...)
	}
}
