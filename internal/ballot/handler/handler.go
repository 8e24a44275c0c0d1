// Package handler exposes the voting routes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ballotbox/internal/ballot/service"
	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
	"ballotbox/pkg/platform/httputil"
	"ballotbox/pkg/requestcontext"
)

// BallotService is the slice of the ballot service the handler needs.
type BallotService interface {
	Cast(ctx context.Context, accountID id.AccountID, electionID id.ElectionID, candidate string) (*service.Receipt, error)
	History(ctx context.Context, accountID id.AccountID) ([]service.HistoryEntry, error)
}

// Handler serves the voting routes.
type Handler struct {
	ballots BallotService
	logger  *slog.Logger
}

func New(ballots BallotService, logger *slog.Logger) *Handler {
	return &Handler{ballots: ballots, logger: logger}
}

// RegisterVoter mounts the routes behind RequireAuth+RequireVoter.
func (h *Handler) RegisterVoter(r chi.Router) {
	r.Post("/votes", h.handleCast)
	r.Get("/votes/history", h.handleHistory)
}

type castRequest struct {
	ElectionID string `json:"election_id"`
	Candidate  string `json:"candidate"`
}

func (r *castRequest) Validate() error {
	if strings.TrimSpace(r.ElectionID) == "" || strings.TrimSpace(r.Candidate) == "" {
		return dErrors.New(dErrors.CodeValidation, "election_id and candidate are required")
	}
	return nil
}

func (h *Handler) handleCast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[castRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	electionID, err := id.ParseElectionID(req.ElectionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	receipt, err := h.ballots.Cast(ctx, requestcontext.AccountID(ctx), electionID, strings.TrimSpace(req.Candidate))
	if err != nil {
		h.logger.WarnContext(ctx, "vote rejected",
			"request_id", requestID,
			"election_id", req.ElectionID,
			"reason", dErrors.CodeOf(err),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := h.ballots.History(ctx, requestcontext.AccountID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"votes": history,
		"count": len(history),
	})
}
