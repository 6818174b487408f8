package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/escola/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "payment_recorder", "record",
		telemetry.WithAttribute(telemetry.SpanAttrAcademicYear, 2025),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "payment_recorder.record", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	v, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrAcademicYear)
	require.True(t, ok)
	assert.Equal(t, int64(2025), v.AsInt64())
}

func TestStartSpan_WithSpanKind(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "notify", telemetry.WithSpanKind(trace.SpanKindProducer))
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, trace.SpanKindProducer, sr.Ended()[0].SpanKind())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	studentID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "statement.ledger")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStudentID, studentID,
		telemetry.SpanAttrPaymentType, "MONTHLY",
		42, "ignored because the key is not a string",
		"dangling",
	)
	telemetry.SetAttribute(span, "late", true)
	span.End()

	attrs := sr.Ended()[0].Attributes()
	v, ok := attrValue(attrs, telemetry.SpanAttrStudentID)
	require.True(t, ok)
	assert.Equal(t, studentID.String(), v.AsString())
	v, ok = attrValue(attrs, telemetry.SpanAttrPaymentType)
	require.True(t, ok)
	assert.Equal(t, "MONTHLY", v.AsString())
	v, ok = attrValue(attrs, "late")
	require.True(t, ok)
	assert.True(t, v.AsBool())
	_, ok = attrValue(attrs, "dangling")
	assert.False(t, ok)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "payment_recorder.record")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("registration blocked"))
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "registration blocked", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "payment_recorder.record")
	telemetry.AddEvent(span, "registration_blocked", "debt_years", 2)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "registration_blocked", events[0].Name)
	v, ok := attrValue(events[0].Attributes, "debt_years")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt64())
}

func TestGetTraceID(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))

	setupTestTracer(t)
	ctx, span := telemetry.StartSpan(context.Background(), "any")
	defer span.End()
	assert.Len(t, telemetry.GetTraceID(ctx), 32)
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.AddEvent(nil, "e")
	})
}
