package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ballotservice "ballotbox/internal/ballot/service"
	ballotstore "ballotbox/internal/ballot/store"
	electionmodels "ballotbox/internal/election/models"
	electionstore "ballotbox/internal/election/store"
	identitymodels "ballotbox/internal/identity/models"
	identitystore "ballotbox/internal/identity/store"
	id "ballotbox/pkg/domain"
	"ballotbox/pkg/requestcontext"
)

type fixture struct {
	router   chi.Router
	voterID  id.AccountID
	election id.ElectionID
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctx := context.Background()

	accounts := identitystore.NewInMemory()
	elections := electionstore.NewInMemory()
	ballots := ballotstore.NewInMemory()

	account, err := identitymodels.NewAccount(id.NewAccountID(), "Voter", "v@example.com",
		identitymodels.RoleVoter, "hash", now)
	require.NoError(t, err)
	account.ApplyProfile(identitymodels.Profile{
		FullName: "Voter", Age: 30, Address: "1 Poll Road",
		PhotoRef: "photos/v.jpg", DocumentRef: "documents/v.pdf",
	}, now)
	require.NoError(t, accounts.CreateIfEmailAvailable(ctx, account))
	_, err = accounts.ApproveIfVoterIDAvailable(ctx, account.ID, "VTR-TEST", now)
	require.NoError(t, err)

	election, err := electionmodels.NewElection(id.NewElectionID(), "Mayor",
		[]string{"Alice", "Bob"}, now.Add(-time.Hour), now.Add(time.Hour), now)
	require.NoError(t, err)
	require.NoError(t, elections.Create(ctx, election))

	svc := ballotservice.New(ballots, elections, accounts)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			reqCtx := requestcontext.WithTime(req.Context(), now)
			reqCtx = requestcontext.WithAccountID(reqCtx, account.ID)
			reqCtx = requestcontext.WithRole(reqCtx, "voter")
			next.ServeHTTP(w, req.WithContext(reqCtx))
		})
	})
	h.RegisterVoter(r)

	return &fixture{router: r, voterID: account.ID, election: election.ID}
}

func (f *fixture) cast(t *testing.T, electionID, candidate string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"election_id":"` + electionID + `","candidate":"` + candidate + `"}`
	req := httptest.NewRequest(http.MethodPost, "/votes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCastEndpoint(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	t.Run("valid vote returns a receipt", func(t *testing.T) {
		rec := f.cast(t, f.election.String(), "Alice")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var receipt map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
		assert.NotEmpty(t, receipt["ballot_id"])
		assert.Equal(t, "Alice", receipt["candidate_name"])
	})

	t.Run("second vote is 409", func(t *testing.T) {
		rec := f.cast(t, f.election.String(), "Bob")
		require.Equal(t, http.StatusConflict, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "already_voted", body["error"])
	})

	t.Run("unknown election is 404", func(t *testing.T) {
		rec := f.cast(t, id.NewElectionID().String(), "Alice")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad candidate is 400", func(t *testing.T) {
		f2 := newFixture(t, now)
		rec := f2.cast(t, f2.election.String(), "Mallory")
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "invalid_candidate", body["error"])
	})

	t.Run("missing fields are 400", func(t *testing.T) {
		rec := f.cast(t, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed election id is 400", func(t *testing.T) {
		rec := f.cast(t, "not-a-uuid", "Alice")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHistoryEndpoint(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	rec := f.cast(t, f.election.String(), "Alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/votes/history", nil)
	historyRec := httptest.NewRecorder()
	f.router.ServeHTTP(historyRec, req)
	require.Equal(t, http.StatusOK, historyRec.Code)

	var body struct {
		Votes []struct {
			ElectionTitle string `json:"election_title"`
			CandidateName string `json:"candidate_name"`
		} `json:"votes"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(historyRec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "Mayor", body.Votes[0].ElectionTitle)
	assert.Equal(t, "Alice", body.Votes[0].CandidateName)
}
