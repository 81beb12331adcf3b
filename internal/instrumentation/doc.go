// Package instrumentation provides OpenTelemetry metrics and tracing for
// contactstats.
//
// Metrics are exported through Prometheus (scraped from the metrics server
// started by `contactstats serve`), OTLP or stdout. Traces are off unless a
// tracing exporter is configured.
//
// # Metrics
//
// Provider Metrics:
//   - provider_operations_total: Counter of mail provider calls by provider, operation, status
//   - provider_operation_duration_seconds: Histogram of mail provider call durations
//
// Aggregation Metrics:
//   - messages_processed_total: Counter of messages folded into statistics, by provider
//   - header_failures_total: Counter of unusable headers by header and reason
//   - addresses_processed_total: Counter of aggregated addresses by status
//
// Cache Metrics:
//   - cache_lookups_total: Counter of metadata cache lookups by result (hit, miss)
//
// OAuth Metrics:
//   - oauth_auth_total: Counter of interactive authorization attempts by result
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: contactstats)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordProviderOperation(ctx, instrumentation.ProviderGmail,
//		instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(start))
//
// A nil *Metrics is valid and records nothing.
package instrumentation
