package middleware

import (
	"net/http"

	"ballotbox/pkg/requestcontext"
)

// ClientMetadata captures the User-Agent header into the context so the
// login audit record can name the device without the service touching
// net/http.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithUserAgent(r.Context(), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
