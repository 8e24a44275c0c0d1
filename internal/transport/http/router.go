// Package http assembles the full route table and middleware chain.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ballothandler "ballotbox/internal/ballot/handler"
	electionhandler "ballotbox/internal/election/handler"
	identityhandler "ballotbox/internal/identity/handler"
	"ballotbox/internal/platform/middleware"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	Identity     *identityhandler.Handler
	Elections    *electionhandler.Handler
	Ballots      *ballothandler.Handler
	JWTValidator middleware.JWTValidator
	Revocations  middleware.TokenRevocationChecker
}

// NewRouter builds the chi router. The outer chain (recovery, request id,
// request time, logging) wraps everything; auth and role gates wrap route
// groups.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.Handler())

	deps.Identity.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.JWTValidator, deps.Revocations, deps.Logger))

		deps.Identity.RegisterAuthenticated(r)
		deps.Elections.RegisterAuthenticated(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireVoter(deps.Logger))
			deps.Identity.RegisterVoter(r)
			deps.Ballots.RegisterVoter(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(deps.Logger))
			deps.Identity.RegisterAdmin(r)
			deps.Elections.RegisterAdmin(r)
		})
	})

	return r
}

// Healthz writes a minimal liveness response.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
