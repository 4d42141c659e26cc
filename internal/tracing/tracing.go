// Package tracing is a thin wrapper around OpenTelemetry so remote calls and
// task transitions can open spans without importing the upstream packages
// directly. Until Init is called the global no-op provider is in effect and
// every span is free.
package tracing

import (
	"context"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/specialistvlad/modgrid"

// Kind selects the OpenTelemetry span kind.
type Kind int

const (
	KindInternal Kind = iota
	KindServer
	KindClient
)

var (
	providerOnce sync.Once
	providerErr  error
)

// Init installs a tracer provider that writes spans as JSON to w. Only the
// first call has an effect; later calls return the first call's error.
func Init(serviceName, serviceVersion string, w io.Writer) error {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return InitWithExporter(serviceName, serviceVersion, exporter)
}

// InitWithExporter installs a tracer provider backed by exporter.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	providerOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				attribute.String("service.name", serviceName),
				attribute.String("service.version", serviceVersion),
			),
		)
		if err != nil {
			providerErr = err
			return
		}
		otel.SetTracerProvider(sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		))
	})
	return providerErr
}

// Span wraps trace.Span.
type Span struct {
	span trace.Span
}

// StartSpan starts a child span of whatever span ctx carries.
func StartSpan(ctx context.Context, name string, kind Kind, attrs ...attribute.KeyValue) (context.Context, *Span) {
	var spanKind trace.SpanKind
	switch kind {
	case KindServer:
		spanKind = trace.SpanKindServer
	case KindClient:
		spanKind = trace.SpanKindClient
	default:
		spanKind = trace.SpanKindInternal
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(spanKind),
		trace.WithAttributes(attrs...),
	)
	return ctx, &Span{span: span}
}

// EndSpan records err (if any) as the span status and ends it.
func EndSpan(s *Span, err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// String is a shorthand for attribute.String.
func String(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}
