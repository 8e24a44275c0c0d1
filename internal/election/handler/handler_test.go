package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotbox/internal/election/service"
	"ballotbox/internal/election/store"
	id "ballotbox/pkg/domain"
	"ballotbox/pkg/requestcontext"
)

type stubVoterCounter int

func (c stubVoterCounter) CountVoters(context.Context) (int, error) { return int(c), nil }

type stubBallotCounter int

func (c stubBallotCounter) Count(context.Context) (int, error) { return int(c), nil }

func newRouter(t *testing.T, now time.Time) (chi.Router, *service.Service) {
	t.Helper()

	svc := service.New(store.NewInMemory(), stubVoterCounter(5), stubBallotCounter(2))
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	adminID := id.NewAccountID()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithTime(req.Context(), now)
			ctx = requestcontext.WithAccountID(ctx, adminID)
			ctx = requestcontext.WithRole(ctx, "admin")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.RegisterAuthenticated(r)
	h.RegisterAdmin(r)
	return r, svc
}

func TestElectionEndpoints(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	router, _ := newRouter(t, now)

	createBody := func(title string, start, end time.Time) []byte {
		raw, err := json.Marshal(map[string]any{
			"title":      title,
			"candidates": []string{"Alice", "Bob"},
			"start_date": start,
			"end_date":   end,
		})
		require.NoError(t, err)
		return raw
	}

	var createdID string

	t.Run("create returns 201 with the election", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/elections",
			bytes.NewReader(createBody("Mayor", now.Add(-time.Hour), now.Add(time.Hour))))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		createdID = body["id"].(string)
		assert.NotEmpty(t, createdID)
	})

	t.Run("invalid window returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/elections",
			bytes.NewReader(createBody("Backwards", now.Add(time.Hour), now)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list carries derived status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/elections", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Elections []struct {
				Title  string `json:"title"`
				Status string `json:"status"`
			} `json:"elections"`
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, 1, body.Count)
		assert.Equal(t, "active", body.Elections[0].Status)
	})

	t.Run("stats aggregates counts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/elections/stats", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var stats map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, float64(1), stats["total_elections"])
		assert.Equal(t, float64(5), stats["total_voters"])
		assert.Equal(t, float64(2), stats["total_votes"])
		assert.InDelta(t, 40.0, stats["participation_percentage"], 0.001)
	})

	t.Run("delete then delete again", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/elections/"+createdID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req = httptest.NewRequest(http.MethodDelete, "/elections/"+createdID, nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed election id is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/elections/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
