package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ballotbox/internal/audit"
	"ballotbox/internal/identity/models"
	"ballotbox/internal/identity/service/mocks"
	"ballotbox/internal/identity/store"
	"ballotbox/internal/identity/store/revocation"
	"ballotbox/internal/jwttoken"
	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
)

const testAdminCode = "let-me-admin"

type IdentityServiceSuite struct {
	suite.Suite
	accounts    *store.InMemory
	revocations *revocation.InMemory
	tokens      *jwttoken.Service
	service     *Service
	ctx         context.Context
}

func (s *IdentityServiceSuite) SetupTest() {
	s.accounts = store.NewInMemory()
	s.revocations = revocation.NewInMemory()
	s.tokens = jwttoken.NewService("test-signing-key", "ballotbox", "ballotbox")
	s.service = New(s.accounts, s.tokens, s.revocations,
		WithAdminCode(testAdminCode),
		WithTokenTTL(time.Hour),
	)
	s.ctx = context.Background()
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) register(email string) *models.Account {
	account, err := s.service.Register(s.ctx, RegisterParams{
		Name:     "Voter One",
		Email:    email,
		Password: "correct horse",
		Role:     "voter",
	})
	s.Require().NoError(err)
	return account
}

func (s *IdentityServiceSuite) submitProfile(accountID id.AccountID) *models.Account {
	account, err := s.service.SubmitProfile(s.ctx, accountID, models.Profile{
		FullName:    "Voter One",
		Age:         34,
		Address:     "12 Poll Street",
		PhotoRef:    "photos/a.jpg",
		DocumentRef: "documents/a.pdf",
	})
	s.Require().NoError(err)
	return account
}

func (s *IdentityServiceSuite) TestRegister() {
	s.Run("voter registration succeeds", func() {
		account := s.register("one@example.com")
		s.Equal(models.RoleVoter, account.Role)
		s.NotEmpty(account.PasswordHash)
		s.NotEqual("correct horse", account.PasswordHash)
	})

	s.Run("duplicate email is a conflict", func() {
		s.register("dup@example.com")
		_, err := s.service.Register(s.ctx, RegisterParams{
			Name: "Other", Email: "dup@example.com", Password: "correct horse", Role: "voter",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("admin requires the registration code", func() {
		_, err := s.service.Register(s.ctx, RegisterParams{
			Name: "Admin", Email: "admin@example.com", Password: "correct horse",
			Role: "admin", AdminCode: "wrong",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		account, err := s.service.Register(s.ctx, RegisterParams{
			Name: "Admin", Email: "admin@example.com", Password: "correct horse",
			Role: "admin", AdminCode: testAdminCode,
		})
		s.Require().NoError(err)
		s.Equal(models.RoleAdmin, account.Role)
	})

	s.Run("short password is rejected", func() {
		_, err := s.service.Register(s.ctx, RegisterParams{
			Name: "Short", Email: "short@example.com", Password: "hunter2", Role: "voter",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown role is rejected", func() {
		_, err := s.service.Register(s.ctx, RegisterParams{
			Name: "X", Email: "x@example.com", Password: "correct horse", Role: "superuser",
		})
		s.Error(err)
	})
}

func (s *IdentityServiceSuite) TestAuthenticate() {
	account := s.register("login@example.com")

	s.Run("valid credentials mint a token", func() {
		token, got, err := s.service.Authenticate(s.ctx, "login@example.com", "correct horse", "")
		s.Require().NoError(err)
		s.Equal(account.ID, got.ID)

		claims, err := s.tokens.ValidateToken(token)
		s.Require().NoError(err)
		s.Equal(account.ID.String(), claims.AccountID)
		s.Equal("voter", claims.Role)
	})

	s.Run("wrong password is unauthorized", func() {
		_, _, err := s.service.Authenticate(s.ctx, "login@example.com", "wrong", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown email is unauthorized", func() {
		_, _, err := s.service.Authenticate(s.ctx, "ghost@example.com", "correct horse", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("role hint mismatching the stored role is unauthorized", func() {
		_, _, err := s.service.Authenticate(s.ctx, "login@example.com", "correct horse", "admin")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("matching role hint is accepted", func() {
		_, _, err := s.service.Authenticate(s.ctx, "login@example.com", "correct horse", "voter")
		s.NoError(err)
	})
}

func (s *IdentityServiceSuite) TestLogout() {
	s.register("logout@example.com")
	token, _, err := s.service.Authenticate(s.ctx, "logout@example.com", "correct horse", "")
	s.Require().NoError(err)

	claims, err := s.tokens.ValidateToken(token)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Logout(s.ctx, token))

	revoked, err := s.revocations.IsRevoked(s.ctx, claims.ID)
	s.Require().NoError(err)
	s.True(revoked)

	s.Run("garbage token is a no-op", func() {
		s.NoError(s.service.Logout(s.ctx, "not-a-token"))
	})
}

func (s *IdentityServiceSuite) TestSubmitProfile() {
	account := s.register("profile@example.com")

	s.Run("complete submission marks the profile complete", func() {
		updated := s.submitProfile(account.ID)
		s.True(updated.ProfileComplete)
		s.False(updated.VerifiedByAdmin)
		s.Equal(models.VerificationPending, updated.State())
	})

	s.Run("underage profile is rejected", func() {
		_, err := s.service.SubmitProfile(s.ctx, account.ID, models.Profile{
			FullName: "Kid", Age: 16, Address: "x", PhotoRef: "p", DocumentRef: "d",
		})
		s.Error(err)
	})

	s.Run("resubmission resets admin verification", func() {
		_, err := s.service.DecideVerification(s.ctx, id.NewAccountID(), account.ID, DecisionApprove)
		s.Require().NoError(err)

		updated := s.submitProfile(account.ID)
		s.False(updated.VerifiedByAdmin)
		s.NotEmpty(updated.VoterID, "voter id survives resubmission")
	})

	s.Run("unknown account is not found", func() {
		_, err := s.service.SubmitProfile(s.ctx, id.NewAccountID(), models.Profile{
			FullName: "G", Age: 30, Address: "x", PhotoRef: "p", DocumentRef: "d",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *IdentityServiceSuite) TestUpdateProfile() {
	account := s.register("update@example.com")

	s.Run("update before submission is a bad request", func() {
		age := 40
		_, err := s.service.UpdateProfile(s.ctx, account.ID, UpdateProfileParams{Age: &age})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.submitProfile(account.ID)

	s.Run("partial update keeps the other fields", func() {
		address := "99 New Street"
		updated, err := s.service.UpdateProfile(s.ctx, account.ID, UpdateProfileParams{Address: &address})
		s.Require().NoError(err)
		s.Equal("99 New Street", updated.Profile.Address)
		s.Equal(34, updated.Profile.Age)
	})

	s.Run("invalid update is rejected without side effects", func() {
		age := 10
		_, err := s.service.UpdateProfile(s.ctx, account.ID, UpdateProfileParams{Age: &age})
		s.Error(err)

		current, err := s.service.GetAccount(s.ctx, account.ID)
		s.Require().NoError(err)
		s.Equal(34, current.Profile.Age)
	})

	s.Run("update resets admin verification but keeps the voter id", func() {
		_, err := s.service.DecideVerification(s.ctx, id.NewAccountID(), account.ID, DecisionApprove)
		s.Require().NoError(err)

		address := "1 Moved Lane"
		updated, err := s.service.UpdateProfile(s.ctx, account.ID, UpdateProfileParams{Address: &address})
		s.Require().NoError(err)

		// The admin verified specific data; changed data goes back through
		// the verification queue. The identifier is never revoked.
		s.False(updated.VerifiedByAdmin)
		s.True(updated.ProfileComplete)
		s.NotEmpty(updated.VoterID)
	})
}

func (s *IdentityServiceSuite) TestDecideVerification() {
	admin := id.NewAccountID()

	s.Run("approving an incomplete profile is a bad request", func() {
		account := s.register("incomplete@example.com")
		_, err := s.service.DecideVerification(s.ctx, admin, account.ID, DecisionApprove)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("approve assigns a voter id and is idempotent", func() {
		account := s.register("approve@example.com")
		s.submitProfile(account.ID)

		first, err := s.service.DecideVerification(s.ctx, admin, account.ID, DecisionApprove)
		s.Require().NoError(err)
		s.True(first.VerifiedByAdmin)
		s.True(strings.HasPrefix(first.VoterID, "VTR-"), "got %q", first.VoterID)
		s.Len(first.VoterID, 14)

		second, err := s.service.DecideVerification(s.ctx, admin, account.ID, DecisionApprove)
		s.Require().NoError(err)
		s.Equal(first.VoterID, second.VoterID)
	})

	s.Run("reject keeps the profile but not the verification", func() {
		account := s.register("reject@example.com")
		s.submitProfile(account.ID)

		updated, err := s.service.DecideVerification(s.ctx, admin, account.ID, DecisionReject)
		s.Require().NoError(err)
		s.True(updated.ProfileComplete)
		s.False(updated.VerifiedByAdmin)
	})

	s.Run("rejecting a verified account is a conflict", func() {
		account := s.register("unreject@example.com")
		s.submitProfile(account.ID)
		_, err := s.service.DecideVerification(s.ctx, admin, account.ID, DecisionApprove)
		s.Require().NoError(err)

		_, err = s.service.DecideVerification(s.ctx, admin, account.ID, DecisionReject)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown account is not found", func() {
		_, err := s.service.DecideVerification(s.ctx, admin, id.NewAccountID(), DecisionApprove)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *IdentityServiceSuite) TestConcurrentApprovalsYieldUniqueVoterIDs() {
	admin := id.NewAccountID()
	const voters = 20

	ids := make([]id.AccountID, voters)
	for i := range ids {
		account := s.register(fmt.Sprintf("bulk%d@example.com", i))
		s.submitProfile(account.ID)
		ids[i] = account.ID
	}

	var wg sync.WaitGroup
	results := make([]string, voters)
	for i, accountID := range ids {
		wg.Add(1)
		go func(i int, accountID id.AccountID) {
			defer wg.Done()
			updated, err := s.service.DecideVerification(s.ctx, admin, accountID, DecisionApprove)
			if err == nil {
				results[i] = updated.VoterID
			}
		}(i, accountID)
	}
	wg.Wait()

	seen := make(map[string]bool, voters)
	for i, voterID := range results {
		s.Require().NotEmpty(voterID, "approval %d failed", i)
		s.False(seen[voterID], "duplicate voter id %q", voterID)
		seen[voterID] = true
	}
}

func TestAuditEventsAreEmitted(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockAuditPublisher(ctrl)

	accounts := store.NewInMemory()
	tokens := jwttoken.NewService("key", "ballotbox", "ballotbox")
	svc := New(accounts, tokens, revocation.NewInMemory(),
		WithAuditPublisher(publisher),
	)

	publisher.EXPECT().
		Emit(gomock.Any(), gomock.Cond(func(x any) bool {
			e := x.(audit.Event)
			return e.Action == audit.ActionRegister && e.SubjectID != ""
		})).
		Return(nil)

	_, err := svc.Register(context.Background(), RegisterParams{
		Name: "Audited", Email: "audited@example.com", Password: "correct horse", Role: "voter",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestParseDecision(t *testing.T) {
	if _, err := ParseDecision("approve"); err != nil {
		t.Fatalf("approve should parse: %v", err)
	}
	if _, err := ParseDecision("reject"); err != nil {
		t.Fatalf("reject should parse: %v", err)
	}
	if _, err := ParseDecision("escalate"); err == nil {
		t.Fatal("unknown decision should fail")
	}
}
