// Package service orchestrates registration, authentication, profile
// management and the admin verification workflow.
package service

//go:generate mockgen -destination=mocks/mocks.go -package=mocks ballotbox/internal/identity/service AuditPublisher,TokenIssuer

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ballotbox/internal/audit"
	"ballotbox/internal/identity/models"
	"ballotbox/internal/identity/store"
	"ballotbox/internal/identity/store/revocation"
	"ballotbox/internal/jwttoken"
	"ballotbox/internal/platform/device"
	"ballotbox/internal/platform/metrics"
	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
	"ballotbox/pkg/platform/sentinel"
	"ballotbox/pkg/requestcontext"
)

const (
	minPasswordLength = 8

	// voterIDAttempts bounds the generate-and-retry loop on identifier
	// collisions. With 50 random bits per attempt the loop practically
	// never runs twice.
	voterIDAttempts = 5
)

// TokenIssuer mints and validates access tokens.
type TokenIssuer interface {
	GenerateAccessToken(accountID id.AccountID, role string, expiresIn time.Duration) (string, error)
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// AuditPublisher records domain actions to the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates account lifecycle and verification.
type Service struct {
	accounts    store.AccountStore
	tokens      TokenIssuer
	revocations revocation.TokenRevocationList
	logger      *slog.Logger
	audit       AuditPublisher
	metrics     *metrics.Metrics
	adminCode   string
	tokenTTL    time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAdminCode sets the shared code that gates admin self-registration.
// When empty, admin registration is disabled.
func WithAdminCode(code string) Option {
	return func(s *Service) { s.adminCode = code }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

// New constructs a Service.
func New(accounts store.AccountStore, tokens TokenIssuer, revocations revocation.TokenRevocationList, opts ...Option) *Service {
	s := &Service{
		accounts:    accounts,
		tokens:      tokens,
		revocations: revocations,
		logger:      slog.Default(),
		tokenTTL:    15 * time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RegisterParams carries the registration request after transport decoding.
type RegisterParams struct {
	Name      string
	Email     string
	Password  string
	Role      string
	AdminCode string
	VoterID   string
}

// Register creates an account. Admin role requires the matching admin code;
// duplicate email or voter identifier is a conflict.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.Account, error) {
	role, err := models.ParseRole(params.Role)
	if err != nil {
		return nil, err
	}
	if role == models.RoleAdmin {
		if s.adminCode == "" || params.AdminCode != s.adminCode {
			return nil, dErrors.New(dErrors.CodeForbidden, "invalid admin registration code")
		}
	}
	if len(params.Password) < minPasswordLength {
		return nil, dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	account, err := models.NewAccount(id.NewAccountID(), params.Name, params.Email, role, string(hash), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	account.VoterID = strings.TrimSpace(params.VoterID)

	if err := s.accounts.CreateIfEmailAvailable(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email or voter id already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.logAudit(ctx, audit.ActionRegister, account.ID.String(), account.ID.String(), "role="+string(role))
	if s.metrics != nil {
		s.metrics.IncrementRegistrations()
	}
	return account, nil
}

// Authenticate verifies credentials and mints an access token. The role in
// the request is a hint only; a mismatch with the stored role fails exactly
// like a bad password so the response does not leak which part was wrong.
func (s *Service) Authenticate(ctx context.Context, email, password, roleHint string) (string, *models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil, invalidCredentials()
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, invalidCredentials()
	}
	if roleHint != "" && roleHint != string(account.Role) {
		return "", nil, invalidCredentials()
	}

	token, err := s.tokens.GenerateAccessToken(account.ID, string(account.Role), s.tokenTTL)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logAudit(ctx, audit.ActionLogin, account.ID.String(), account.ID.String(),
		"device="+device.ParseUserAgent(requestcontext.UserAgent(ctx)))
	return token, account, nil
}

// Logout revokes the presented token for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.ValidateToken(rawToken)
	if err != nil {
		// Already expired or invalid; nothing left to revoke.
		return nil
	}
	ttl := claims.TTLRemaining(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	s.logAudit(ctx, audit.ActionLogout, claims.AccountID, claims.AccountID, "")
	return nil
}

// SubmitProfile stores the complete profile, replacing any previous one and
// resetting admin verification.
func (s *Service) SubmitProfile(ctx context.Context, accountID id.AccountID, profile models.Profile) (*models.Account, error) {
	if err := models.ValidateProfile(profile); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	account, err := s.accounts.Execute(ctx, accountID, nil, func(a *models.Account) {
		a.ApplyProfile(profile, now)
	})
	if err != nil {
		return nil, translateStoreErr(err, "account")
	}

	s.logAudit(ctx, audit.ActionProfileSubmit, accountID.String(), accountID.String(), "")
	if s.metrics != nil {
		s.metrics.IncrementProfileSubmissions()
	}
	return account, nil
}

// UpdateProfileParams carries the partial profile update. Nil fields are
// left unchanged.
type UpdateProfileParams struct {
	Age      *int
	Address  *string
	PhotoRef *string
}

// UpdateProfile adjusts mutable profile fields on an already-submitted
// profile. Changes reset admin verification like a resubmission does.
func (s *Service) UpdateProfile(ctx context.Context, accountID id.AccountID, params UpdateProfileParams) (*models.Account, error) {
	now := requestcontext.Now(ctx)

	account, err := s.accounts.Execute(ctx, accountID,
		func(a *models.Account) error {
			if a.Profile == nil {
				return dErrors.New(dErrors.CodeBadRequest, "profile has not been submitted yet")
			}
			updated := *a.Profile
			if params.Age != nil {
				updated.Age = *params.Age
			}
			if params.Address != nil {
				updated.Address = *params.Address
			}
			if params.PhotoRef != nil {
				updated.PhotoRef = *params.PhotoRef
			}
			return models.ValidateProfile(updated)
		},
		func(a *models.Account) {
			updated := *a.Profile
			if params.Age != nil {
				updated.Age = *params.Age
			}
			if params.Address != nil {
				updated.Address = *params.Address
			}
			if params.PhotoRef != nil {
				updated.PhotoRef = *params.PhotoRef
			}
			a.ApplyProfile(updated, now)
		})
	if err != nil {
		return nil, translateStoreErr(err, "account")
	}

	s.logAudit(ctx, audit.ActionProfileUpdate, accountID.String(), accountID.String(), "")
	return account, nil
}

// GetAccount loads one account.
func (s *Service) GetAccount(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, translateStoreErr(err, "account")
	}
	return account, nil
}

// ListAccounts returns accounts matching the admin listing filter.
func (s *Service) ListAccounts(ctx context.Context, filter store.Filter) ([]*models.Account, error) {
	accounts, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts")
	}
	return accounts, nil
}

// Decision is the admin verdict on a pending profile.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "action must be approve or reject, got %q", s)
	}
}

// DecideVerification applies an admin decision. Approval assigns a unique
// voter identifier through a generate-and-retry loop against the store's
// uniqueness guarantee; approving an already-verified account is idempotent.
func (s *Service) DecideVerification(ctx context.Context, adminID, accountID id.AccountID, decision Decision) (*models.Account, error) {
	switch decision {
	case DecisionApprove:
		return s.approve(ctx, adminID, accountID)
	case DecisionReject:
		return s.reject(ctx, adminID, accountID)
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown decision %q", decision)
	}
}

func (s *Service) approve(ctx context.Context, adminID, accountID id.AccountID) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, translateStoreErr(err, "account")
	}
	if err := account.CanDecide(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	for attempt := 0; attempt < voterIDAttempts; attempt++ {
		voterID := account.VoterID
		if voterID == "" {
			voterID, err = generateVoterID()
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate voter id")
			}
		}

		updated, err := s.accounts.ApproveIfVoterIDAvailable(ctx, accountID, voterID, now)
		if errors.Is(err, sentinel.ErrAlreadyUsed) && account.VoterID == "" {
			continue
		}
		if err != nil {
			return nil, translateStoreErr(err, "account")
		}

		s.logAudit(ctx, audit.ActionVerifyApproved, adminID.String(), accountID.String(), "voter_id="+updated.VoterID)
		if s.metrics != nil {
			s.metrics.IncrementVerification("approve")
		}
		return updated, nil
	}
	return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a unique voter id")
}

func (s *Service) reject(ctx context.Context, adminID, accountID id.AccountID) (*models.Account, error) {
	now := requestcontext.Now(ctx)
	account, err := s.accounts.Execute(ctx, accountID,
		func(a *models.Account) error {
			if err := a.CanDecide(); err != nil {
				return err
			}
			return a.CanReject()
		},
		func(a *models.Account) {
			a.ApplyRejection(now)
		})
	if err != nil {
		return nil, translateStoreErr(err, "account")
	}

	s.logAudit(ctx, audit.ActionVerifyRejected, adminID.String(), accountID.String(), "")
	if s.metrics != nil {
		s.metrics.IncrementVerification("reject")
	}
	return account, nil
}

// CountVoters reports how many voter accounts exist, for election stats.
func (s *Service) CountVoters(ctx context.Context) (int, error) {
	count, err := s.accounts.CountVoters(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count voters")
	}
	return count, nil
}

func invalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

func translateStoreErr(err error, entity string) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed), errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, entity+" conflicts with existing state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
	}
}

// generateVoterID returns "VTR-" plus 10 uppercase base32 characters drawn
// from crypto/rand.
func generateVoterID() (string, error) {
	var raw [7]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return "VTR-" + encoded[:10], nil
}

func (s *Service) logAudit(ctx context.Context, action, actorID, subjectID, detail string) {
	attributes := []any{"action", action, "subject_id", subjectID, "log_type", "audit"}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, action, attributes...)

	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(ctx, audit.Event{
		Action:    action,
		ActorID:   actorID,
		SubjectID: subjectID,
		Detail:    detail,
	})
}
