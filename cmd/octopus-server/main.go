// Command octopus-server runs an RPC server: it registers itself with the
// coordination store (when configured) and serves the standard gRPC health
// service (when enableHealth is set in its config), with an optional HTTP debug surface exposing breaker state and
// pprof.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/HorseArcher567/octopus/pkg/api"
	"github.com/HorseArcher567/octopus/pkg/app"
	"github.com/HorseArcher567/octopus/pkg/prometheus/metrics"
	"github.com/HorseArcher567/octopus/pkg/rpc"
	"github.com/HorseArcher567/octopus/pkg/rpc/breaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "octopus-server",
	Short: "Run an Octopus RPC server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ginMetrics := metrics.NewGinServerMetrics("octopus", "api")
		grpcMetrics := metrics.NewGrpcServerMetrics("octopus", "rpc")
		breakerMetrics := breaker.NewMetrics("octopus", "rpc")
		for _, c := range []prometheus.Collector{ginMetrics, grpcMetrics, breakerMetrics} {
			if err := prometheus.Register(c); err != nil {
				fmt.Fprintln(os.Stderr, "octopus-server: metrics collector already registered:", err)
			}
		}

		app.Init(
			app.WithConfigFile(cfgPath),
			app.WithApiOptions(api.WithGinMetrics(ginMetrics)),
			app.WithRpcOptions(rpc.WithGrpcMetrics(grpcMetrics), rpc.WithBreakerMetrics(breakerMetrics)),
		)

		app.OnBeforeRun(func(ctx context.Context, a *app.App) error {
			if srv := a.RpcServer(); srv != nil {
				a.RegisterApiRoutes(func(engine *api.Engine) {
					api.Register(engine, srv.DebugHandler())
				})
			}
			return nil
		})

		app.OnShutdown(func(ctx context.Context, a *app.App) error {
			fmt.Println("octopus-server: shutdown complete")
			return nil
		})

		return app.Run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
