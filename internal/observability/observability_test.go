package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracing_DisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "pariposhan-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "pariposhan-test", Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "unknown tracing exporter")
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		assert.Contains(t, newSampler(tt.ratio).Description(), tt.want, "ratio %v", tt.ratio)
	}
}

func TestStartSpan_RecordsErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() { Tracer = prev })

	_, ok := StartSpan(context.Background(), "reaction.toggle", attribute.String("item_kind", "post"))
	EndSpan(ok, nil)
	_, bad := StartSpan(context.Background(), "moderation.resolve")
	EndSpan(bad, errors.New("report gone"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "reaction.toggle", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("item_kind", "post"))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "report gone", spans[1].Status().Description)
}

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ExtractCorrelationID(ctx))

	id := GenerateCorrelationID()
	assert.Len(t, id, 36)
	assert.Equal(t, id, ExtractCorrelationID(WithCorrelationID(ctx, id)))
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(CounterDriftCorrections.WithLabelValues("like_count"))
	CounterDriftCorrections.WithLabelValues("like_count").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CounterDriftCorrections.WithLabelValues("like_count")))
}
