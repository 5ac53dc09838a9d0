package http

import (
	"encoding/json"
	"errors"
	"github.com/go-playground/validator/v10"
	"net/http"
	"strings"
	"ticketer/common/errs"
	"ticketer/model"
)

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeErrorResponse(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var message string
	var data any
	if httpErr, ok := asHttpError(err); ok {
		message = httpErr.Message
		data = httpErr.Data
		w.WriteHeader(httpErr.Code)
	} else if validationErr, ok := err.(validator.ValidationErrors); ok {
		message = "Validation failed"
		w.WriteHeader(http.StatusBadRequest)

		validationErrors := make(map[string]string)
		for _, fieldErr := range validationErr {
			fieldName := fieldErr.Field()
			validationErrors[fieldName] = fieldErr.Tag()
		}

		data = validationErrors
	} else {
		message = "Internal Server Error"
		w.WriteHeader(500)
	}

	errorResponse := model.ErrorResponse{Error: message, Data: data}
	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// asHttpError maps queue errors to the response the caller should see.
func asHttpError(err error) (*errs.HttpError, bool) {
	var httpErr *errs.HttpError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}

	switch {
	case errors.Is(err, errs.ErrGeneratorExhausted):
		return &errs.HttpError{Code: http.StatusServiceUnavailable, Message: "Ticket numbers exhausted"}, true
	case errors.Is(err, errs.ErrDayNotReady), errs.IsTransient(err):
		return &errs.HttpError{Code: http.StatusServiceUnavailable, Message: "Queue store unavailable"}, true
	case errors.Is(err, errs.ErrQueueNotEmpty):
		return &errs.HttpError{Code: http.StatusConflict, Message: "Queue is not empty"}, true
	case errors.Is(err, errs.ErrInvalidPin):
		return &errs.HttpError{Code: http.StatusUnauthorized, Message: "Invalid PIN"}, true
	case errors.Is(err, errs.ErrInvalidSession):
		return &errs.HttpError{Code: http.StatusUnauthorized, Message: "Unauthorized"}, true
	case errors.Is(err, errs.ErrPinFormat):
		return &errs.HttpError{Code: http.StatusBadRequest, Message: "PIN must be exactly 6 digits"}, true
	case errors.Is(err, errs.ErrPinMismatch):
		return &errs.HttpError{Code: http.StatusBadRequest, Message: "PIN confirmation does not match"}, true
	}

	return nil, false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}

	return strings.TrimSpace(token)
}
