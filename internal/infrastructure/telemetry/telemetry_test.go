package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	tp, err := NewTracerProvider(ctx, Config{ServiceName: "test"}, log)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	tp.EnableSpanProfiles()
	assert.False(t, tp.SpanProfilesEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, MetricsConfig{}, log)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, LogsConfig{}, log)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Nil(t, lp.ZapCore(zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(ctx))

	p, err := NewProfiler(ProfilerConfig{}, log)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "solar"}, zap.NewNop())
	require.Error(t, err)
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestStartServiceSpan_RecordsErrorAndOK(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, failed := StartServiceSpan(context.Background(), "negotiation", "execute_loan_action",
		attribute.String(SpanAttrEntityID, "L1"))
	RecordError(failed, errors.New("upstream down"))
	failed.End()

	_, ok := StartServiceSpan(context.Background(), "negotiation", "get_quote")
	RecordError(ok, nil)
	SetOK(ok)
	ok.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "negotiation.execute_loan_action", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(SpanAttrEntityID, "L1"))
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestNegotiationMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewNegotiationMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordTransition(ctx, "quote", "accept", "succeeded")
	m.RecordTransition(ctx, "quote", "accept", "succeeded")
	m.RecordConfirmationIssued(ctx, "loan", "cancel")
	m.RecordCacheLookup(ctx, "entity", true)
	m.RecordUpstreamCall(ctx, "loan.get", 200, 40*time.Millisecond)
	m.RecordWatched(ctx, 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		byName[metric.Name] = metric
	}
	transitions, ok := byName["negotiation_transitions_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, transitions.DataPoints, 1)
	assert.Equal(t, int64(2), transitions.DataPoints[0].Value)

	watched, ok := byName["negotiation_watched_entities"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(3), watched.DataPoints[0].Value)

	assert.Contains(t, byName, "negotiation_upstream_duration_seconds")
	assert.Contains(t, byName, "negotiation_confirmations_total")
	assert.Contains(t, byName, "negotiation_cache_lookups_total")
}

func TestNegotiationMetrics_NilSafe(t *testing.T) {
	var m *NegotiationMetrics
	assert.NotPanics(t, func() {
		m.RecordTransition(context.Background(), "loan", "cancel", "failed")
		m.RecordWatched(context.Background(), 1)
	})
	_, err := NewNegotiationMetrics(nil)
	assert.ErrorIs(t, err, ErrMeterNil)
}

func TestLevelFilterCore(t *testing.T) {
	core := &levelFilterCore{Core: zapcore.NewNopCore(), minLevel: zapcore.WarnLevel}
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.Nil(t, core.Check(zapcore.Entry{Level: zapcore.InfoLevel}, nil))
	_, ok := core.With(nil).(*levelFilterCore)
	assert.True(t, ok)
}
