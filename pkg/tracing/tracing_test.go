package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_Recorded(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := NewProvider(nil, 1, sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "test", "parent")
	assert.NotEmpty(t, ExtractTraceID(ctx))

	_, child := StartSpan(ctx, "test", "child")
	EndSpan(child, errors.New("boom"))
	EndSpan(span, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "child", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
}

func TestExtractTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, ExtractTraceID(context.Background()))
}
