package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all npcbrain metrics.
const meterName = "github.com/cory-johannsen/npcbrain"

// Metrics holds the OpenTelemetry instruments of the decision core.
// All fields are safe for concurrent use.
type Metrics struct {
	// Decisions counts combat decisions. Attributes: path, source.
	Decisions metric.Int64Counter

	// ModelFailures counts model calls that ended in fallback. Attribute: reason.
	ModelFailures metric.Int64Counter

	// CacheLookups counts cache reads. Attributes: cache, result.
	CacheLookups metric.Int64Counter

	// CacheEvictions counts entries removed by sweeps.
	CacheEvictions metric.Int64Counter

	// TradeOutcomes counts terminal negotiation results. Attribute: outcome.
	TradeOutcomes metric.Int64Counter

	// ModelDuration tracks model call latency in seconds.
	ModelDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds for model calls.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 2.5, 5,
}

// NewMetrics creates all instruments on mp.
//
// Precondition: mp is non-nil.
// Postcondition: Returns a fully initialised Metrics or the first instrument error.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Decisions, err = m.Int64Counter("npcbrain.decisions",
		metric.WithDescription("Combat decisions by orchestrator path and provenance."),
	); err != nil {
		return nil, err
	}
	if met.ModelFailures, err = m.Int64Counter("npcbrain.model.failures",
		metric.WithDescription("Model calls that did not yield a validated decision."),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("npcbrain.cache.lookups",
		metric.WithDescription("Cache reads by cache name and hit or miss."),
	); err != nil {
		return nil, err
	}
	if met.CacheEvictions, err = m.Int64Counter("npcbrain.cache.evictions",
		metric.WithDescription("Stale cache entries removed by sweeps."),
	); err != nil {
		return nil, err
	}
	if met.TradeOutcomes, err = m.Int64Counter("npcbrain.trade.outcomes",
		metric.WithDescription("Terminal trade negotiation outcomes."),
	); err != nil {
		return nil, err
	}
	if met.ModelDuration, err = m.Float64Histogram("npcbrain.model.duration",
		metric.WithDescription("Latency of model calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// NopMetrics returns Metrics backed by a no-op provider.
func NopMetrics() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observability: no-op metrics: " + err.Error())
	}
	return met
}

// RecordDecision counts one combat decision.
func (m *Metrics) RecordDecision(ctx context.Context, path, source string) {
	m.Decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("source", source),
	))
}

// RecordModelFailure counts one model call that fell back.
func (m *Metrics) RecordModelFailure(ctx context.Context, reason string) {
	m.ModelFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordCacheLookup counts one cache read.
func (m *Metrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

// RecordEvictions counts n entries removed from cache.
func (m *Metrics) RecordEvictions(ctx context.Context, cache string, n int) {
	if n <= 0 {
		return
	}
	m.CacheEvictions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("cache", cache)))
}

// RecordTradeOutcome counts one terminal negotiation.
func (m *Metrics) RecordTradeOutcome(ctx context.Context, outcome string) {
	m.TradeOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordModelDuration records the latency of one model call.
func (m *Metrics) RecordModelDuration(ctx context.Context, d time.Duration) {
	m.ModelDuration.Record(ctx, d.Seconds())
}
