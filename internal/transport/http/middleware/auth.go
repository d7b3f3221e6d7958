package middleware

import (
	"context"
	"net/http"
	"strings"

	"hrms/internal/auth"
)

type ctxKey string

const ctxKeyActor ctxKey = "actor"

// Auth resolves the acting user from a bearer token. Requests without a
// valid token still proceed, attributed to the system actor; writes record
// who performed them but are not otherwise gated.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := auth.DefaultActor

			header := r.Header.Get("Authorization")
			if parts := strings.Split(header, " "); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				if claims, err := auth.ParseToken(secret, parts[1]); err == nil {
					actor = claims.Actor()
				}
			}

			ctx := context.WithValue(r.Context(), ctxKeyActor, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Actor returns the identity attached by Auth, or the system default.
func Actor(ctx context.Context) string {
	if actor, ok := ctx.Value(ctxKeyActor).(string); ok && actor != "" {
		return actor
	}
	return auth.DefaultActor
}
