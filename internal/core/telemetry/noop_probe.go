package telemetry

import (
	"context"
	"time"

	"taskapp/internal/core/port"
)

// NoOpProbe discards everything. Services and repositories fall back to it
// when no probe is configured.
type NoOpProbe struct{}

func NewNoOpProbe() port.Telemetry {
	return NoOpProbe{}
}

type noopSpan struct{}

func (noopSpan) End()                                 {}
func (noopSpan) SetAttributes(map[string]interface{}) {}
func (noopSpan) SetStatus(string, string)             {}
func (noopSpan) RecordError(error)                    {}

func (NoOpProbe) StartRepositorySpan(ctx context.Context, _, _ string, _ map[string]interface{}) (context.Context, port.Span) {
	return ctx, noopSpan{}
}

func (NoOpProbe) StartServiceSpan(ctx context.Context, _, _ string, _ map[string]interface{}) (context.Context, port.Span) {
	return ctx, noopSpan{}
}

func (NoOpProbe) RecordRepositoryOperation(context.Context, string, string, time.Duration, error) {}

func (NoOpProbe) RecordRepositoryQuery(context.Context, string, string, string, []interface{}) {}

func (NoOpProbe) RecordServiceOperation(context.Context, string, string, time.Duration, error) {}

func (NoOpProbe) RecordBusinessEvent(context.Context, string, string, string, map[string]interface{}) {
}

func (NoOpProbe) RecordError(context.Context, string, error, map[string]interface{}) {}
