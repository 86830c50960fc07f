package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "taskapp"

// Start opens a child span of whatever span ctx carries.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// Fail records err on span and flags it as an error.
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func Event(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SpanIDs returns the hex trace and span ids of ctx. ok is false when ctx
// carries no valid span context.
func SpanIDs(ctx context.Context) (traceID, spanID string, ok bool) {
	sc := trace.SpanContextFromContext(ctx)

	if !sc.IsValid() {
		return "", "", false
	}

	return sc.TraceID().String(), sc.SpanID().String(), true
}

// Run executes fn inside a span named name and ends it when fn returns.
func Run(ctx context.Context, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := Start(ctx, name, attrs...)
	defer span.End()

	err := fn(ctx)
	Fail(span, err)

	return err
}

// Query wraps a single statement against table in a client span.
func Query(ctx context.Context, system, table, operation string, fn func(context.Context) error) error {
	return Run(ctx, "db."+table+"."+operation, fn,
		attribute.String("db.system", system),
		semconv.DBSQLTableKey.String(table),
		semconv.DBOperationKey.String(operation),
	)
}
