package observability

import (
	"context"
	"errors"
	"fmt"

	"tourbook/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceNamespace = "tourbook"

// Span attribute keys shared by the comment engine.
const (
	AttrPostID          = attribute.Key("tourbook.post.id")
	AttrCommentID       = attribute.Key("tourbook.comment.id")
	AttrCommentReply    = attribute.Key("tourbook.comment.reply")
	AttrTargetType      = attribute.Key("tourbook.reaction.target_type")
	AttrTargetID        = attribute.Key("tourbook.reaction.target_id")
	AttrViewerAnonymous = attribute.Key("tourbook.viewer.anonymous")
	AttrTreeCacheHit    = attribute.Key("tourbook.tree_cache.hit")
	AttrCascadeComments = attribute.Key("tourbook.cascade.comments")
	AttrCascadeReacts   = attribute.Key("tourbook.cascade.reactions")
	AttrErrorCode       = attribute.Key("tourbook.error.code")
)

// Tracer starts every tourbook span. It is a no-op until InitTracing installs
// a provider.
var Tracer trace.Tracer = otel.Tracer("tourbook-api")

// TracingConfig holds configuration for initializing the tracer.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	Exporter       string // "stdout" or "otlp"
	OTLPEndpoint   string
	SamplerRatio   float64
}

// InitTracing installs the tracer provider and W3C propagation. The returned
// function flushes and stops the provider.
func InitTracing(cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		Tracer = otel.Tracer(cfg.ServiceName)
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter %q: %w", cfg.Exporter, err)
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceNamespace(serviceNamespace),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Tracer = tp.Tracer(cfg.ServiceName)

	return tp.Shutdown, nil
}

func newExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		return otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	case "", "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, errors.New("unknown exporter")
	}
}

// samplerFor honours upstream sampling decisions and samples new traces at ratio.
func samplerFor(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// Span wraps an OpenTelemetry span for convenience.
type Span struct {
	span trace.Span
}

// NewSpan starts an internal span and returns it with the derived context.
func NewSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (*Span, context.Context) {
	ctx, span := Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return &Span{span: span}, ctx
}

func (s *Span) AddAttributes(attrs ...attribute.KeyValue) {
	if s.span != nil {
		s.span.SetAttributes(attrs...)
	}
}

// SetError records err on the span. Caller mistakes (validation, auth, missing
// rows) are tagged with their code but leave the span status unset; storage
// and unexpected failures mark the span as failed.
func (s *Span) SetError(err error) {
	if s.span == nil || err == nil {
		return
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		s.span.SetAttributes(AttrErrorCode.String(appErr.Code))
		switch appErr.Code {
		case models.CodeValidation, models.CodeNotFound, models.CodeForbidden, models.CodeUnauthorized:
			s.span.AddEvent("request rejected", trace.WithAttributes(attribute.String("message", appErr.Message)))
			return
		}
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *Span) End() {
	if s.span != nil {
		s.span.End()
	}
}
