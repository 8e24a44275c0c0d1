package middleware

import (
	"log/slog"
	"net/http"

	"ballotbox/pkg/requestcontext"
)

// RequireAdmin gates a route to principals whose stored role is admin.
// It must be mounted after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != "admin" {
				logger.WarnContext(ctx, "forbidden - admin role required",
					"request_id", requestcontext.RequestID(ctx),
					"account_id", requestcontext.AccountID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireVoter gates a route to principals whose stored role is voter.
// It must be mounted after RequireAuth.
func RequireVoter(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != "voter" {
				logger.WarnContext(ctx, "forbidden - voter role required",
					"request_id", requestcontext.RequestID(ctx),
					"account_id", requestcontext.AccountID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"voter role required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
