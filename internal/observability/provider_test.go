package observability

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewMeterProvider_TagsServiceResource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp, err := NewMeterProvider("1.2.3", reader)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	m.RecordDecision(context.Background(), "FALLBACK", "FALLBACK")

	rm := collect(t, reader)
	name, ok := rm.Resource.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, ServiceName, name.AsString())
	version, ok := rm.Resource.Set().Value(semconv.ServiceVersionKey)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", version.AsString())
	assert.NotNil(t, findMetric(rm, "npcbrain.decisions"))
}

func TestNewPrometheusReader_ExposesInstruments(t *testing.T) {
	reg := prometheus.NewRegistry()
	reader, err := NewPrometheusReader(reg)
	require.NoError(t, err)
	mp, err := NewMeterProvider("test", reader)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	m.RecordTradeOutcome(context.Background(), "COMPLETED")

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	found := false
	for _, n := range names {
		if strings.HasPrefix(n, "npcbrain_trade_outcomes") {
			found = true
		}
	}
	assert.True(t, found, "gathered families: %v", names)
}
