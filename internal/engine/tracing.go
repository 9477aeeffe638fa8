package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/maxkimambo/bake/internal/report"
)

const tracerName = "github.com/maxkimambo/bake/internal/engine"

const (
	attrRunID    = attribute.Key("bake.run_id")
	attrTargets  = attribute.Key("bake.targets")
	attrTask     = attribute.Key("bake.task")
	attrStatus   = attribute.Key("bake.status")
	attrParallel = attribute.Key("bake.parallel")
	attrTasks    = attribute.Key("bake.task_count")
)

// startSpan starts a span on the engine's tracer.
func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records the outcome of a report entry on span and ends it.
func endSpan(span trace.Span, status report.Status, err error) {
	if status != "" {
		span.SetAttributes(attrStatus.String(string(status)))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
