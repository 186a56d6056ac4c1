package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "graphloader"

// LoaderMetrics records cache and flush behavior of the request-scoped
// loaders. It implements loader.Hooks.
type LoaderMetrics struct {
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	flushBatches metric.Int64Counter
	flushErrors  metric.Int64Counter
	batchQueued  metric.Int64Histogram
	batchKeys    metric.Int64Histogram
	queriesSaved metric.Int64Counter
}

// NewLoaderMetrics creates the loader metric instruments on the global
// meter provider.
func NewLoaderMetrics() (*LoaderMetrics, error) {
	meter := otel.Meter(meterName)
	m := &LoaderMetrics{}

	var err error
	if m.cacheHits, err = meter.Int64Counter(
		"loader.cache.hits",
		metric.WithDescription("Loads served from the request-scoped cache"),
	); err != nil {
		return nil, fmt.Errorf("create cache hits counter: %w", err)
	}
	if m.cacheMisses, err = meter.Int64Counter(
		"loader.cache.misses",
		metric.WithDescription("Loads that queued a key for the next flush"),
	); err != nil {
		return nil, fmt.Errorf("create cache misses counter: %w", err)
	}
	if m.flushBatches, err = meter.Int64Counter(
		"loader.flush.batches",
		metric.WithDescription("Batched fetches issued by loader flushes"),
	); err != nil {
		return nil, fmt.Errorf("create flush batches counter: %w", err)
	}
	if m.flushErrors, err = meter.Int64Counter(
		"loader.flush.errors",
		metric.WithDescription("Loader flushes whose batch fetch failed"),
	); err != nil {
		return nil, fmt.Errorf("create flush errors counter: %w", err)
	}
	if m.batchQueued, err = meter.Int64Histogram(
		"loader.flush.queued",
		metric.WithDescription("Queued load count per flush, duplicates included"),
	); err != nil {
		return nil, fmt.Errorf("create batch queued histogram: %w", err)
	}
	if m.batchKeys, err = meter.Int64Histogram(
		"loader.flush.distinct_keys",
		metric.WithDescription("Distinct key count per flush"),
	); err != nil {
		return nil, fmt.Errorf("create batch keys histogram: %w", err)
	}
	if m.queriesSaved, err = meter.Int64Counter(
		"loader.queries_saved",
		metric.WithDescription("Fetches avoided by coalescing loads into one batch"),
	); err != nil {
		return nil, fmt.Errorf("create queries saved counter: %w", err)
	}
	return m, nil
}

func loaderAttrs(name string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("loader", name))
}

func (m *LoaderMetrics) CacheHit(ctx context.Context, loaderName string) {
	m.cacheHits.Add(ctx, 1, loaderAttrs(loaderName))
}

func (m *LoaderMetrics) CacheMiss(ctx context.Context, loaderName string) {
	m.cacheMisses.Add(ctx, 1, loaderAttrs(loaderName))
}

func (m *LoaderMetrics) FlushBatch(ctx context.Context, loaderName string, queued, distinct int) {
	attrs := loaderAttrs(loaderName)
	m.flushBatches.Add(ctx, 1, attrs)
	m.batchQueued.Record(ctx, int64(queued), attrs)
	m.batchKeys.Record(ctx, int64(distinct), attrs)
	// Every queued load would have been its own query without batching.
	if saved := queued - 1; saved > 0 {
		m.queriesSaved.Add(ctx, int64(saved), attrs)
	}
}

func (m *LoaderMetrics) FlushError(ctx context.Context, loaderName string) {
	m.flushErrors.Add(ctx, 1, loaderAttrs(loaderName))
}

// RequestMetrics records HTTP-level GraphQL request outcomes.
type RequestMetrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	errored  metric.Int64Counter
	active   metric.Int64UpDownCounter
}

// NewRequestMetrics creates the request metric instruments on the
// global meter provider.
func NewRequestMetrics() (*RequestMetrics, error) {
	meter := otel.Meter(meterName)
	m := &RequestMetrics{}

	var err error
	if m.duration, err = meter.Float64Histogram(
		"graphql.request.duration",
		metric.WithDescription("GraphQL request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("create request duration histogram: %w", err)
	}
	if m.requests, err = meter.Int64Counter(
		"graphql.requests.total",
		metric.WithDescription("GraphQL requests served"),
	); err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}
	if m.errored, err = meter.Int64Counter(
		"graphql.errors.total",
		metric.WithDescription("GraphQL requests that returned errors"),
	); err != nil {
		return nil, fmt.Errorf("create error counter: %w", err)
	}
	if m.active, err = meter.Int64UpDownCounter(
		"graphql.requests.active",
		metric.WithDescription("GraphQL requests in flight"),
	); err != nil {
		return nil, fmt.Errorf("create active requests counter: %w", err)
	}
	return m, nil
}

// RecordRequest records one finished request.
func (m *RequestMetrics) RecordRequest(ctx context.Context, duration time.Duration, status int) {
	attrs := metric.WithAttributes(attribute.Int("status", status))
	m.duration.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.requests.Add(ctx, 1, attrs)
	if status >= 400 {
		m.errored.Add(ctx, 1, attrs)
	}
}

// RequestStarted marks a request in flight; the returned func marks it
// finished.
func (m *RequestMetrics) RequestStarted(ctx context.Context) func() {
	m.active.Add(ctx, 1)
	return func() { m.active.Add(ctx, -1) }
}
