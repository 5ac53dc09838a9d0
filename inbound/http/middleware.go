package http

import (
	"log/slog"
	"net/http"
	"ticketer/common/constant"
	"time"
)

type SessionParser interface {
	ParseToken(token string) error
}

func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, "request timeout")
	}
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware admits only requests carrying a valid cashier session.
func AuthMiddleware(sessions SessionParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sessions.ParseToken(bearerToken(r)); err != nil {
				slog.DebugContext(r.Context(), "cashier session rejected", slog.Any(constant.LogFieldErr, err))
				writeErrorResponse(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
