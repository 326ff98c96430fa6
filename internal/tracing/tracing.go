// Package tracing wires OpenTelemetry export and provides the named
// span helpers the reply pipeline uses.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "deskagent"

// Config configures the OTLP trace exporter.
type Config struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// Init sets up the global tracer provider with an OTLP/HTTP exporter
// and returns a shutdown function that flushes pending spans.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("tracing: creating exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartReplySpan opens a span covering one dispatched reply.
func StartReplySpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "dispatch.reply",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
		),
	)
}

// StartActionSpan opens a span covering one executor action.
func StartActionSpan(ctx context.Context, action string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "executor.action",
		trace.WithAttributes(
			attribute.String("action.name", action),
		),
	)
}

// StartCompletionSpan opens a span covering one LLM completion call.
func StartCompletionSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "provider.complete",
		trace.WithAttributes(
			attribute.String("llm.model", model),
		),
	)
}
