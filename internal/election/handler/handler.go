// Package handler exposes the election catalog routes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ballotbox/internal/election/models"
	"ballotbox/internal/election/service"
	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
	"ballotbox/pkg/platform/httputil"
	"ballotbox/pkg/requestcontext"
)

// ElectionService is the slice of the election service the handler needs.
type ElectionService interface {
	Create(ctx context.Context, adminID id.AccountID, params service.CreateParams) (*models.Election, error)
	Delete(ctx context.Context, adminID id.AccountID, electionID id.ElectionID) error
	List(ctx context.Context) ([]service.ElectionWithStatus, error)
	GetStats(ctx context.Context) (*service.Stats, error)
}

// Handler serves the election routes.
type Handler struct {
	elections ElectionService
	logger    *slog.Logger
}

func New(elections ElectionService, logger *slog.Logger) *Handler {
	return &Handler{elections: elections, logger: logger}
}

// RegisterAuthenticated mounts the routes every logged-in caller can use.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/elections", h.handleList)
}

// RegisterAdmin mounts the admin-only catalog routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/elections", h.handleCreate)
	r.Delete("/elections/{id}", h.handleDelete)
	r.Get("/elections/stats", h.handleStats)
}

type createRequest struct {
	Title      string    `json:"title"`
	Candidates []string  `json:"candidates"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

func (r *createRequest) Validate() error {
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start_date and end_date are required")
	}
	return nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	election, err := h.elections.Create(ctx, requestcontext.AccountID(ctx), service.CreateParams{
		Title:      req.Title,
		Candidates: req.Candidates,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "election creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, election)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	electionID, err := id.ParseElectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.elections.Delete(ctx, requestcontext.AccountID(ctx), electionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	elections, err := h.elections.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"elections": elections,
		"count":     len(elections),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.elections.GetStats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "stats aggregation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
