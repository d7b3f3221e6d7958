package middleware

import (
	"log/slog"
	"net/http"

	"hrms/internal/transport/http/api"
)

// Recoverer converts a handler panic into a 500 so one bad request cannot
// take the process down.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("handler panic",
					"panic", rec,
					"path", r.URL.Path,
					"requestId", GetRequestID(r.Context()))
				api.Fail(w, http.StatusInternalServerError, "INTERNAL", "internal server error", GetRequestID(r.Context()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
