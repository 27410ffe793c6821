package mysqlkit

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmoiron/sqlx"
)

const (
	instrumentationName    = "github.com/prodevkit/mysqlkit"
	instrumentationVersion = "v0.1.0"
)

var tracer = otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))

// EnableTelemetry enables or disables OpenTelemetry tracing for this pool.
func (p *Pool) EnableTelemetry(enabled bool) {
	if p == nil {
		return
	}
	p.telemetryEnabled = enabled
}

func (p *Pool) startSpan(ctx context.Context, operation, query string) (context.Context, trace.Span) {
	if p == nil || !p.telemetryEnabled {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := tracer.Start(ctx, "mysqlkit."+operation)
	span.SetAttributes(
		attribute.String("db.system", "mysql"),
		attribute.String("db.operation", operation),
	)
	if query != "" {
		span.SetAttributes(attribute.String("db.statement", query))
	}
	return ctx, span
}

func (p *Pool) finishSpan(span trace.Span, err error) {
	if p == nil || !p.telemetryEnabled {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (p *Pool) instrumentedQuery(ctx context.Context, conn *sqlx.Conn, query string, args ...any) (*sqlx.Rows, error) {
	spanCtx, span := p.startSpan(ctx, "query", query)
	rows, err := conn.QueryxContext(spanCtx, query, args...)
	p.finishSpan(span, err)
	return rows, err
}

func (p *Pool) instrumentedExec(ctx context.Context, conn *sqlx.Conn, query string, args ...any) (sql.Result, error) {
	spanCtx, span := p.startSpan(ctx, "exec", query)
	res, err := conn.ExecContext(spanCtx, query, args...)
	p.finishSpan(span, err)
	return res, err
}
