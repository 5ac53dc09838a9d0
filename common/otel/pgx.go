package otel

import (
	"context"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"strings"
)

// PgxCustomTracer opens one client span per query, named after the sqlc
// query when the statement carries a "-- name:" header.
type PgxCustomTracer struct{}

func (p PgxCustomTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	name := queryName(data.SQL)

	spanName := "pgx.query"
	if name != "" {
		spanName = "pgx." + name
	}

	ctx, span := Tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))

	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", data.SQL),
		attribute.Int("db.args.count", len(data.Args)),
	)
	if name != "" {
		span.SetAttributes(attribute.String("db.operation.name", name))
	}

	return ctx
}

func (p PgxCustomTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	if data.Err != nil {
		span.SetStatus(codes.Error, data.Err.Error())
		span.RecordError(data.Err)
		return
	}

	span.SetStatus(codes.Ok, "")
	span.SetAttributes(
		attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()),
	)
}

// queryName extracts InsertTicketEvent from "-- name: InsertTicketEvent :execresult".
func queryName(sql string) string {
	header, _, _ := strings.Cut(strings.TrimSpace(sql), "\n")

	rest, ok := strings.CutPrefix(header, "-- name:")
	if !ok {
		return ""
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}
