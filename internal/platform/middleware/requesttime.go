package middleware

import (
	"net/http"
	"time"

	"ballotbox/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request and
// stores it in the context. Every time-sensitive decision within the request
// (election window checks, cast timestamps) observes this single instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
