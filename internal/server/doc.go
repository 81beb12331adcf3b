// Package server holds the state shared by MCP tool handlers and the
// auxiliary HTTP endpoints of the serve command.
//
// ServerContext opens one fetcher per account on first use and keeps it
// for later tool calls. MetricsServer exposes Prometheus metrics and the
// health checks of HealthChecker on a dedicated address.
package server
