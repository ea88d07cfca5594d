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
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
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

func spanAttrs(span tracetest.SpanStub) map[string]string {
	attrs := make(map[string]string, len(span.Attributes))
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	return attrs
}

func TestTraceQuery_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "GetReview", "SELECT * FROM reviews WHERE id = $1")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.GetReview", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetReview", attrs["db.operation"])
	assert.Equal(t, "SELECT * FROM reviews WHERE id = $1", attrs["db.statement"])
}

func TestTraceQuery_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, end := TraceQuery(context.Background(), "UpdateGameAggregates", "UPDATE games SET num_reviews = $1")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.NotEmpty(t, spans[0].Events)
}

func TestTraceQuery_ChildOfCallerSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "create review")
	_, end := TraceQuery(ctx, "CreateReview", "INSERT INTO reviews")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestSlowQueryLogging(t *testing.T) {
	setupTestTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	SetSlowQueryLogging(time.Hour, logger)
	_, end := TraceQuery(context.Background(), "FastSelect", "SELECT 1")
	end(nil)
	assert.Empty(t, buf.String())

	SetSlowQueryLogging(time.Nanosecond, logger)
	_, end = TraceQuery(context.Background(), "ListReviews", "SELECT * FROM reviews")
	time.Sleep(time.Millisecond)
	end(errors.New("statement timeout"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"slow query"`)
	assert.Contains(t, out, "ListReviews")
	assert.Contains(t, out, "statement timeout")

	buf.Reset()
	SetSlowQueryLogging(0, logger)
	_, end = TraceQuery(context.Background(), "AnyOp", "SELECT 1")
	end(nil)
	assert.Empty(t, buf.String())
}
