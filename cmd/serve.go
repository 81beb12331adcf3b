package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/contactstats/internal/config"
	"github.com/teemow/contactstats/internal/instrumentation"
	"github.com/teemow/contactstats/internal/logging"
	"github.com/teemow/contactstats/internal/server"
	"github.com/teemow/contactstats/internal/tools/stats_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		transport     string
		httpAddr      string
		metricsConfig MetricsConfig
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server exposing the contact_stats tool.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

The mailbox settings come from the same configuration as the stats command.
Addresses are passed with each tool call.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "true" {
				metricsConfig.Enabled = true
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					metricsConfig.Addr = addr
				}
			}
			return runServe(cmd, transport, httpAddr, metricsConfig)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&metricsConfig.Enabled, "metrics-enabled", true, "Serve metrics and health checks (for streamable-http transport)")
	cmd.Flags().StringVar(&metricsConfig.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")
	cmd.Flags().String("provider", config.ProviderGmail, "Mail provider: gmail or imap")
	cmd.Flags().String("account", config.DefaultAccount, "Default Google account for tool calls")
	cmd.Flags().Int64("max-results", config.DefaultMaxResults, "Upper bound on messages examined per address")
	cmd.Flags().Bool("strict", false, "Fail an address when a message has an unparseable date or lacks From/To")

	return cmd
}

func runServe(cmd *cobra.Command, transport, httpAddr string, metricsConfig MetricsConfig) error {
	if transport != transportStdio && transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}

	shutdownCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.ValidateSource(); err != nil {
		return err
	}

	// stdout carries the protocol in stdio mode; logs stay on stderr.
	logger := newLogger()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instr, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := instr.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	deps, closeDeps := openDeps(cfg, logger, instr.Metrics())
	defer closeDeps()

	serverContext := server.NewServerContext(shutdownCtx, cfg, deps)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("contactstats", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := stats_tools.RegisterStatsTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	switch transport {
	case transportStdio:
		return runStdioServer(mcpSrv)
	default:
		health := server.NewHealthChecker(serverContext)
		var metricsServer *server.MetricsServer
		if metricsConfig.Enabled && instr.Enabled() {
			metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
				Addr:                    metricsConfig.Addr,
				InstrumentationProvider: instr,
				Health:                  health,
			})
			if err != nil {
				return fmt.Errorf("failed to create metrics server: %w", err)
			}
		}
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, httpAddr, metricsServer, health, logger)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, addr string, metricsServer *server.MetricsServer, health *server.HealthChecker, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv, mcpserver.WithEndpointPath("/mcp")))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan error, 2)
	go func() {
		serverDone <- httpServer.ListenAndServe()
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverDone <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	logger.Info("MCP server listening",
		"addr", addr,
		"endpoint", "/mcp")
	if metricsServer != nil {
		logger.Info("metrics server listening",
			"addr", metricsServer.Addr(),
			"endpoints", "/metrics, /healthz, /readyz")
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case err := <-serverDone:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	// /readyz reports not ready while MCP connections drain.
	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("error shutting down HTTP server: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}
	return serveErr
}
