package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestQueryTracer_Span(t *testing.T) {
	exporter := installTracer(t)

	ctx, end := QueryTracer{}.Trace(context.Background(), "FindProducts", "SELECT 1")
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.FindProducts", spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestQueryTracer_Error(t *testing.T) {
	exporter := installTracer(t)

	_, end := QueryTracer{}.Trace(context.Background(), "Aggregate", "SELECT 1")
	end(errors.New("relation \"products\" does not exist"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)
}

func TestQueryTracer_SlowQueryLogging(t *testing.T) {
	installTracer(t)
	var buf bytes.Buffer
	qt := QueryTracer{SlowThreshold: time.Millisecond, Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	_, end := qt.Trace(context.Background(), "FindProducts", "SELECT pg_sleep(1)")
	time.Sleep(5 * time.Millisecond)
	end(nil)
	assert.Contains(t, buf.String(), "slow query")
	assert.Contains(t, buf.String(), "FindProducts")

	buf.Reset()
	qt.SlowThreshold = time.Hour
	_, end = qt.Trace(context.Background(), "FindProducts", "SELECT 1")
	end(nil)
	assert.Zero(t, buf.Len())
}
