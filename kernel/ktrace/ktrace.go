// Package ktrace wraps OpenTelemetry so the rest of the kernel can
// open spans without importing the upstream packages. A machine that
// never calls Init gets no-op spans.
package ktrace

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "jos-in-go/kernel"

var (
	providerOnce sync.Once
	providerErr  error
)

// Init installs a stdout-exporting tracer provider tagged with the
// service name and a fresh boot id. The first successful call wins;
// later calls are no-ops returning the first error.
func Init(serviceName string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return InitWithExporter(serviceName, exporter)
}

// InitWithExporter installs the given exporter, letting callers plug
// in any SpanExporter the OpenTelemetry SDK supports.
func InitWithExporter(serviceName string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	providerOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				attribute.String("service.name", serviceName),
				attribute.String("boot.id", uuid.New().String()),
			),
		)
		if err != nil {
			providerErr = err
			return
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
	})
	return providerErr
}

// Span wraps trace.Span so callers stay decoupled from the upstream
// API.
type Span struct {
	span trace.Span
}

// StartSpan opens a child span on ctx.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	ctx, s := otel.Tracer(tracerName).Start(ctx, name)
	return ctx, &Span{span: s}
}

// WithAttributes attaches string attributes to the span.
func (s *Span) WithAttributes(attrs map[string]string) *Span {
	if s == nil || len(attrs) == 0 {
		return s
	}
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, attribute.String(k, v))
	}
	s.span.SetAttributes(kv...)
	return s
}

// WithInt attaches one integer attribute to the span.
func (s *Span) WithInt(key string, v int64) *Span {
	if s == nil {
		return s
	}
	s.span.SetAttributes(attribute.Int64(key, v))
	return s
}

// SetStatus records err on the span, or OK when err is nil.
func (s *Span) SetStatus(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
}

// End closes the span.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.span.End()
}
