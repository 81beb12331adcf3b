package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrProvider  = "provider"
	attrResult    = "result"
	attrTool      = "tool"
	attrHeader    = "header"
	attrReason    = "reason"
	attrDomain    = "domain"
)

// Metrics provides methods for recording observability metrics.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	providerOperationsTotal   metric.Int64Counter
	providerOperationDuration metric.Float64Histogram

	messagesProcessedTotal metric.Int64Counter
	headerFailuresTotal    metric.Int64Counter
	addressesProcessed     metric.Int64Counter

	cacheLookupsTotal metric.Int64Counter

	oauthAuthTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether the counterparty domain label is recorded
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.providerOperationsTotal, err = meter.Int64Counter(
		"provider_operations_total",
		metric.WithDescription("Total number of mail provider operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_operations_total counter: %w", err)
	}

	m.providerOperationDuration, err = meter.Float64Histogram(
		"provider_operation_duration_seconds",
		metric.WithDescription("Mail provider operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider_operation_duration_seconds histogram: %w", err)
	}

	m.messagesProcessedTotal, err = meter.Int64Counter(
		"messages_processed_total",
		metric.WithDescription("Total number of messages folded into contact statistics"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages_processed_total counter: %w", err)
	}

	m.headerFailuresTotal, err = meter.Int64Counter(
		"header_failures_total",
		metric.WithDescription("Total number of missing or unparseable message headers"),
		metric.WithUnit("{header}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create header_failures_total counter: %w", err)
	}

	m.addressesProcessed, err = meter.Int64Counter(
		"addresses_processed_total",
		metric.WithDescription("Total number of aggregated counterparty addresses"),
		metric.WithUnit("{address}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create addresses_processed_total counter: %w", err)
	}

	m.cacheLookupsTotal, err = meter.Int64Counter(
		"cache_lookups_total",
		metric.WithDescription("Total number of metadata cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache_lookups_total counter: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authorization attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordProviderOperation records a mail provider call.
//
// Parameters:
//   - provider: "gmail" or "imap"
//   - operation: list, get, search or login
//   - status: "success" or "error"
//   - duration: time taken for the call
func (m *Metrics) RecordProviderOperation(ctx context.Context, provider, operation, status string, duration time.Duration) {
	if m == nil || m.providerOperationsTotal == nil || m.providerOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.providerOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.providerOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMessageProcessed counts one message folded into statistics.
func (m *Metrics) RecordMessageProcessed(ctx context.Context, provider string) {
	if m == nil || m.messagesProcessedTotal == nil {
		return
	}

	m.messagesProcessedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrProvider, provider)))
}

// RecordHeaderFailure counts a header that was missing or could not be parsed.
// Reason is "missing" or "unparseable".
func (m *Metrics) RecordHeaderFailure(ctx context.Context, header, reason string) {
	if m == nil || m.headerFailuresTotal == nil {
		return
	}

	m.headerFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrHeader, header),
		attribute.String(attrReason, reason),
	))
}

// RecordAddressProcessed counts one aggregated address. The address itself
// is reduced to its domain and only recorded when detailed labels are on.
func (m *Metrics) RecordAddressProcessed(ctx context.Context, address, status string) {
	if m == nil || m.addressesProcessed == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(address)))
	}

	m.addressesProcessed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheLookup records a metadata cache lookup. Result is "hit" or "miss".
func (m *Metrics) RecordCacheLookup(ctx context.Context, result string) {
	if m == nil || m.cacheLookupsTotal == nil {
		return
	}

	m.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthAuth records an interactive OAuth authorization attempt.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
