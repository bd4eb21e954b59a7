package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/mcpserver"
	"github.com/Iron-Ham/workplan/internal/metrics"
	"github.com/Iron-Ham/workplan/internal/planner"
)

const metricsShutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planner as MCP tools over stdio",
	Long: `Serve runs an MCP server on stdin/stdout exposing two tools:

  plan_parallel_execution  plan the children of a parent work item
  explain_risk_policy      describe the active risk policy

With --metrics-addr, plan outcomes, durations, detail batch results and
routing decisions are exported for Prometheus at /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", "", "listen address for the Prometheus /metrics endpoint (e.g. :9090)")
	_ = viper.BindPFlag("metrics.addr", serveCmd.Flags().Lookup("metrics-addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var opts []planner.Option
	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		reg, m := metrics.NewRegistry()
		opts = append(opts, planner.WithRecorder(m))
		metricsSrv = newMetricsServer(cfg.Metrics.Addr, metrics.HandlerFor(reg))
	}

	rt, err := newRuntime(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if metricsSrv != nil {
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.logger.Error("metrics server failed", "addr", metricsSrv.Addr, "error", err.Error())
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = metricsSrv.Shutdown(ctx)
		}()
		rt.logger.Info("metrics endpoint listening", "addr", metricsSrv.Addr)
	}

	policy := planner.FromConfig(cfg).Policy
	rt.logger.Info("mcp server starting", "tracker", cfg.Tracker.Kind, "policy_version", mcpserver.DescribePolicy(policy).Version)
	if err := server.ServeStdio(mcpserver.NewServer(rt.planner, policy)); err != nil {
		return perrors.Wrap(err, "mcp server error")
	}
	return nil
}

// newMetricsServer builds the HTTP server that exposes handler at /metrics.
func newMetricsServer(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
