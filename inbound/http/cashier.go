package http

import (
	"encoding/json"
	"github.com/go-playground/validator/v10"
	"log/slog"
	"net/http"
	"ticketer/common"
	"ticketer/common/constant"
	"ticketer/common/errs"
	"ticketer/common/otel"
	"ticketer/model"
	"ticketer/queue"
	"time"
)

// CashierHttp serves the counter. Everything except login requires a
// session token issued by Gate.
type CashierHttp struct {
	Coordinator *queue.Coordinator
	Gate        *queue.Gate
	Validate    *validator.Validate
}

func RegisterCashierHttp(
	mux *http.ServeMux,
	coordinator *queue.Coordinator,
	gate *queue.Gate,
	validate *validator.Validate,
) *CashierHttp {
	in := &CashierHttp{
		Coordinator: coordinator,
		Gate:        gate,
		Validate:    validate,
	}

	auth := AuthMiddleware(gate)

	mux.HandleFunc("POST /api/cashier/login", in.login)
	mux.Handle("GET /api/cashier/queue", auth(http.HandlerFunc(in.dashboard)))
	mux.Handle("POST /api/cashier/next", auth(http.HandlerFunc(in.next)))
	mux.Handle("POST /api/cashier/reset", auth(http.HandlerFunc(in.reset)))
	mux.Handle("PUT /api/cashier/pin", auth(http.HandlerFunc(in.changePin)))

	return in
}

func (in CashierHttp) login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "CashierHttp.login")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "cashier login receive request", traceIdAttr)

	if err := in.Gate.Verify(ctx, req.Pin); err != nil {
		slog.WarnContext(ctx, "cashier login rejected", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	if _, err := in.Coordinator.StartSession(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to start cashier session", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	token, expiresAt, err := in.Gate.IssueToken()
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue session token", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		common.UtilSpanError(span, err)
		writeErrorResponse(w, err)
		return
	}

	slog.InfoContext(ctx, "cashier login success", traceIdAttr)

	writeJSONResponse(w, http.StatusOK, model.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

func (in CashierHttp) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer.Start(r.Context(), "CashierHttp.dashboard")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)

	view, err := in.Coordinator.CurrentView(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read queue", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, queue.DashboardOf(view))
}

func (in CashierHttp) next(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer.Start(r.Context(), "CashierHttp.next")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "call next receive request", traceIdAttr)

	ticket, ok, err := in.Coordinator.CallNext(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to call next ticket", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	var resp model.CallNextResponse
	if ok {
		resp.Called = &ticket
	}

	slog.InfoContext(ctx, "call next success", traceIdAttr, slog.Any(constant.LogFieldResponse, resp))

	writeJSONResponse(w, http.StatusOK, resp)
}

func (in CashierHttp) reset(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer.Start(r.Context(), "CashierHttp.reset")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "reset queue receive request", traceIdAttr)

	if err := in.Coordinator.ResetQueue(ctx); err != nil {
		slog.WarnContext(ctx, "failed to reset queue", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, nil)
}

func (in CashierHttp) changePin(w http.ResponseWriter, r *http.Request) {
	var req model.ChangePinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, &errs.HttpError{Code: http.StatusBadRequest, Message: "Invalid request"})
		return
	}

	if err := in.Validate.Struct(req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	ctx, span := otel.Tracer.Start(r.Context(), "CashierHttp.changePin")
	defer span.End()

	traceIdAttr := common.ExtractTraceIDFromCtx(ctx)
	slog.InfoContext(ctx, "change pin receive request", traceIdAttr)

	if err := in.Gate.ChangePin(ctx, req.Pin, req.Confirm); err != nil {
		slog.WarnContext(ctx, "failed to change pin", traceIdAttr, slog.Any(constant.LogFieldErr, err))
		writeErrorResponse(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, nil)
}
