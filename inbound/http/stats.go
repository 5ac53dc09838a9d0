package http

import (
	"errors"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"log/slog"
	"net/http"
	"ticketer/common"
	"ticketer/common/constant"
	"ticketer/common/otel"
	"ticketer/model"
	"ticketer/outbound/sqlgen"
	"time"
)

type StatsHttp struct {
	Querier  *sqlgen.Queries
	Validate *validator.Validate
}

func RegisterStatsHttp(mux *http.ServeMux, querier *sqlgen.Queries, validate *validator.Validate) *StatsHttp {
	in := &StatsHttp{Querier: querier, Validate: validate}

	mux.HandleFunc("GET /api/stats", in.get)

	return in
}

func (in StatsHttp) get(w http.ResponseWriter, r *http.Request) {
	req := model.StatsRequest{Date: r.URL.Query().Get("date")}
	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "StatsHttp.get")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "get stats receive request", slog.Any(constant.LogFieldPayload, req), traceIdAttr)

	day, _ := time.Parse(constant.DayKeyLayout, req.Date)

	summary, err := in.Querier.GetDaySummary(ctx, pgtype.Date{Time: day, Valid: true})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		slog.ErrorContext(ctx, "failed to get day summary", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, model.StatsResponse{
		Date:   req.Date,
		Issued: summary.Issued,
		Called: summary.Called,
		Resets: summary.Resets,
	})
}
