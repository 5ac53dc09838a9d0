package event

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"log/slog"
	"ticketer/common"
	"ticketer/common/constant"
	"ticketer/common/contract"
	"ticketer/common/otel"
	"ticketer/model"
	"ticketer/outbound/sqlgen"
	"time"
)

// HistoryEvent records queue events in Postgres. Every event row and the
// matching day counters are written in one transaction; a redelivered event
// hits the unique key and is skipped.
type HistoryEvent struct {
	Db      contract.DbConn
	Querier *sqlgen.Queries

	Timeout time.Duration
}

func (in HistoryEvent) Handler(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, in.Timeout)
	defer cancel()

	var req model.QueueEventMessage
	err := json.Unmarshal(msg, &req)
	if err != nil {
		slog.WarnContext(ctx, "queue event unmarshal error", slog.Any(constant.LogFieldErr, err))
		return nil
	}

	ctx, span := otel.Tracer.Start(ctx, "HistoryEvent.Handler")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "queue event receive request", slog.Any(constant.LogFieldPayload, req), traceIdAttr)

	day, err := time.Parse(constant.DayKeyLayout, req.Day)
	if err != nil {
		slog.WarnContext(ctx, "queue event has invalid day", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return nil
	}

	occurredAt, err := time.Parse(time.RFC3339Nano, req.OccurredAt)
	if err != nil {
		slog.WarnContext(ctx, "queue event has invalid time", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		return nil
	}

	summary := sqlgen.AddDaySummaryParams{Day: pgtype.Date{Time: day, Valid: true}}
	switch req.Kind {
	case model.QueueEventIssued:
		summary.Issued = 1
	case model.QueueEventCalled:
		summary.Called = 1
	case model.QueueEventReset:
		summary.Resets = 1
	case model.QueueEventRollover:
	default:
		slog.WarnContext(ctx, "queue event has unknown kind", traceIdAttr)
		return nil
	}

	tx, err := in.Db.Begin(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to begin transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return err
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		}
	}()

	withTx := in.Querier.WithTx(tx)

	cmd, err := withTx.InsertTicketEvent(ctx, sqlgen.InsertTicketEventParams{
		Kind:       string(req.Kind),
		Day:        summary.Day,
		Number:     req.Number,
		TicketKey:  req.Key,
		OccurredAt: pgtype.Timestamptz{Time: occurredAt, Valid: true},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert ticket event", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return err
	}

	if cmd.RowsAffected() == 0 {
		slog.DebugContext(ctx, "queue event already recorded", traceIdAttr)
		return nil
	}

	err = withTx.AddDaySummary(ctx, summary)
	if err != nil {
		slog.ErrorContext(ctx, "failed to update day summary", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to commit transaction", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		return err
	}

	slog.InfoContext(ctx, "queue event recorded", traceIdAttr)

	return nil
}
