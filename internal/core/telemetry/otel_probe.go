package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskapp/internal/core/port"
)

const tracerName = "taskapp"

const (
	componentRepository = "repository"
	componentService    = "service"
)

// OTELProbe reports repository and service work as OpenTelemetry spans and
// mirrors failures into the structured log.
type OTELProbe struct {
	logger *slog.Logger
	tracer trace.Tracer
}

func NewOTELProbe(logger *slog.Logger) port.Telemetry {
	if logger == nil {
		logger = slog.Default()
	}

	return &OTELProbe{logger: logger, tracer: otel.Tracer(tracerName)}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) SetAttributes(attrs map[string]interface{}) {
	s.span.SetAttributes(toAttributes(attrs)...)
}

func (s otelSpan) SetStatus(code string, message string) {
	s.span.SetStatus(statusCode(code), message)
}

func (s otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

func (s otelSpan) End() {
	s.span.End()
}

func statusCode(code string) codes.Code {
	switch code {
	case "ok":
		return codes.Ok
	case "error":
		return codes.Error
	}

	return codes.Unset
}

func (p *OTELProbe) start(ctx context.Context, component, scope, operation string, attrs map[string]interface{}) (context.Context, port.Span) {
	kv := []attribute.KeyValue{
		attribute.String("component", component),
		attribute.String(component+".scope", scope),
		attribute.String(component+".operation", operation),
	}

	ctx, span := p.tracer.Start(ctx, component+"."+scope+"."+operation,
		trace.WithAttributes(append(kv, toAttributes(attrs)...)...))

	return ctx, otelSpan{span: span}
}

func (p *OTELProbe) StartRepositorySpan(ctx context.Context, operation string, entity string, attrs map[string]interface{}) (context.Context, port.Span) {
	return p.start(ctx, componentRepository, entity, operation, attrs)
}

func (p *OTELProbe) StartServiceSpan(ctx context.Context, service string, operation string, attrs map[string]interface{}) (context.Context, port.Span) {
	return p.start(ctx, componentService, service, operation, attrs)
}

// outcome stamps the span active in ctx with the result of a finished call.
func (p *OTELProbe) outcome(ctx context.Context, component, scope, operation string, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int64("elapsed_ms", elapsed.Milliseconds()),
		attribute.Bool("failed", err != nil),
	)

	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	p.logger.ErrorContext(ctx, component+" call failed",
		slog.String("scope", scope),
		slog.String("operation", operation),
		slog.Duration("elapsed", elapsed),
		slog.Any("error", err))
}

func (p *OTELProbe) RecordRepositoryOperation(ctx context.Context, operation string, entity string, duration time.Duration, err error) {
	p.outcome(ctx, componentRepository, entity, operation, duration, err)
}

func (p *OTELProbe) RecordServiceOperation(ctx context.Context, service string, operation string, duration time.Duration, err error) {
	p.outcome(ctx, componentService, service, operation, duration, err)
}

// RecordRepositoryQuery logs SQL at debug level. Bound values can hold task
// text, so only their Go types are written.
func (p *OTELProbe) RecordRepositoryQuery(ctx context.Context, operation string, entity string, query string, args []interface{}) {
	if !p.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	types := make([]string, 0, len(args))
	for _, arg := range args {
		types = append(types, fmt.Sprintf("%T", arg))
	}

	p.logger.DebugContext(ctx, "sql",
		slog.String("scope", entity),
		slog.String("operation", operation),
		slog.String("query", query),
		slog.Any("arg_types", types))
}

// RecordBusinessEvent attaches a span event to the current span rather than
// opening a child span per event.
func (p *OTELProbe) RecordBusinessEvent(ctx context.Context, event string, entity string, entityID string, metadata map[string]interface{}) {
	kv := append([]attribute.KeyValue{
		attribute.String("event.scope", entity),
		attribute.String("event.entity_id", entityID),
	}, toAttributes(metadata)...)

	trace.SpanFromContext(ctx).AddEvent(entity+"."+event, trace.WithAttributes(kv...))

	p.logger.InfoContext(ctx, entity+" "+event,
		slog.String("entity_id", entityID),
		slog.Any("metadata", metadata))
}

func (p *OTELProbe) RecordError(ctx context.Context, operation string, err error, metadata map[string]interface{}) {
	trace.SpanFromContext(ctx).RecordError(err, trace.WithAttributes(toAttributes(metadata)...))

	p.logger.ErrorContext(ctx, operation+" failed",
		slog.Any("error", err),
		slog.Any("metadata", metadata))
}

func toAttributes(attrs map[string]interface{}) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))

	for key, value := range attrs {
		switch v := value.(type) {
		case string:
			out = append(out, attribute.String(key, v))
		case int:
			out = append(out, attribute.Int(key, v))
		case int64:
			out = append(out, attribute.Int64(key, v))
		case float64:
			out = append(out, attribute.Float64(key, v))
		case bool:
			out = append(out, attribute.Bool(key, v))
		case []string:
			out = append(out, attribute.StringSlice(key, v))
		case fmt.Stringer:
			out = append(out, attribute.String(key, v.String()))
		default:
			out = append(out, attribute.String(key, fmt.Sprint(v)))
		}
	}

	return out
}
