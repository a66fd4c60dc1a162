package observability

import (
	"context"
	"errors"
	"testing"

	"tourbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpan_SetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	previous := Tracer
	Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")
	t.Cleanup(func() { Tracer = previous })

	tests := []struct {
		name   string
		err    error
		status codes.Code
		code   string
	}{
		{name: "validation", err: models.NewValidationError("Content is required"), status: codes.Unset, code: models.CodeValidation},
		{name: "forbidden", err: models.NewForbiddenError("You can only delete your own comments"), status: codes.Unset, code: models.CodeForbidden},
		{name: "storage", err: models.NewStorageError(errors.New("deadlock detected"), true), status: codes.Error, code: models.CodeStorage},
		{name: "plain", err: errors.New("boom"), status: codes.Error},
	}

	for _, tt := range tests {
		span, _ := NewSpan(context.Background(), "CommentService."+tt.name, AttrCommentID.Int64(1))
		span.SetError(tt.err)
		span.End()
	}

	ended := recorder.Ended()
	require.Len(t, ended, len(tests))
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ended[i]
			assert.Equal(t, tt.status, s.Status().Code)
			var code string
			for _, kv := range s.Attributes() {
				if kv.Key == AttrErrorCode {
					code = kv.Value.AsString()
				}
			}
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "tourbook-api"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_UnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "tourbook-api", Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}
