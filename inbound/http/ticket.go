package http

import (
	"log/slog"
	"net/http"
	"ticketer/common"
	"ticketer/common/constant"
	"ticketer/common/otel"
	"ticketer/queue"
)

type TicketHttp struct {
	Coordinator *queue.Coordinator
}

func RegisterTicketHttp(mux *http.ServeMux, coordinator *queue.Coordinator) *TicketHttp {
	in := &TicketHttp{Coordinator: coordinator}

	mux.HandleFunc("POST /api/tickets", in.issue)

	return in
}

func (in TicketHttp) issue(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer.Start(r.Context(), "TicketHttp.issue")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "issue ticket receive request", traceIdAttr)

	ticket, err := in.Coordinator.IssueTicket(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue ticket", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "issue ticket success", traceIdAttr, slog.Any(constant.LogFieldResponse, ticket))

	writeJSONResponse(w, http.StatusOK, ticket)
}
