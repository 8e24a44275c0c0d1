package models

import (
	"strings"
	"time"

	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
)

// Role is the stored account role. It is fixed at registration; login
// requests may carry a role hint but the stored value is authoritative.
type Role string

const (
	RoleVoter Role = "voter"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role string from a registration request.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleVoter, RoleAdmin:
		return Role(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "role must be voter or admin")
	}
}

// Profile holds the identity fields a voter submits for verification.
// All six fields (including both file references) must be present before
// ProfileComplete is set.
type Profile struct {
	FullName    string `json:"full_name"`
	Age         int    `json:"age"`
	Address     string `json:"address"`
	PhotoRef    string `json:"photo_ref"`
	DocumentRef string `json:"document_ref"`
}

// VerificationState is derived from the two stored flags for display.
type VerificationState string

const (
	VerificationNoProfile VerificationState = "no_profile"
	VerificationPending   VerificationState = "pending"
	VerificationVerified  VerificationState = "verified"
)

// Account is the aggregate root for a registered user.
//
// Invariants:
//   - Email is unique (store-enforced at insert).
//   - VoterID, when non-empty, is unique (store-enforced).
//   - VerifiedByAdmin implies ProfileComplete.
//   - Approval assigns a VoterID only when none exists yet; once assigned it
//     is stable and never revoked.
type Account struct {
	ID              id.AccountID `json:"id"`
	Email           string       `json:"email"`
	Role            Role         `json:"role"`
	PasswordHash    string       `json:"-"`
	Name            string       `json:"name"`
	VoterID         string       `json:"voter_id,omitempty"`
	Profile         *Profile     `json:"profile,omitempty"`
	ProfileComplete bool         `json:"is_profile_complete"`
	VerifiedByAdmin bool         `json:"is_verified_by_admin"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewAccount constructs a registered account. The password hash is produced
// by the service; this layer never sees the plaintext secret.
func NewAccount(accountID id.AccountID, name, email string, role Role, passwordHash string, now time.Time) (*Account, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	return &Account{
		ID:           accountID,
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// State reports the verification workflow state.
func (a *Account) State() VerificationState {
	switch {
	case a.VerifiedByAdmin:
		return VerificationVerified
	case a.ProfileComplete:
		return VerificationPending
	default:
		return VerificationNoProfile
	}
}

// ValidateProfile checks a submission has every required field.
func ValidateProfile(p Profile) error {
	switch {
	case strings.TrimSpace(p.FullName) == "":
		return dErrors.New(dErrors.CodeValidation, "full name is required")
	case p.Age < 18:
		return dErrors.New(dErrors.CodeValidation, "age must be at least 18")
	case strings.TrimSpace(p.Address) == "":
		return dErrors.New(dErrors.CodeValidation, "address is required")
	case p.PhotoRef == "":
		return dErrors.New(dErrors.CodeValidation, "photo upload is required")
	case p.DocumentRef == "":
		return dErrors.New(dErrors.CodeValidation, "id document upload is required")
	}
	return nil
}

// ApplyProfile records a complete submission. Resubmission replaces the
// previous profile and resets the verification flag so an admin reviews the
// new data.
func (a *Account) ApplyProfile(p Profile, now time.Time) {
	copied := p
	a.Profile = &copied
	a.ProfileComplete = true
	a.VerifiedByAdmin = false
	a.UpdatedAt = now
}

// CanDecide checks whether an admin decision on this account is possible at
// all: a profile must have been submitted first.
func (a *Account) CanDecide() error {
	if !a.ProfileComplete {
		return dErrors.New(dErrors.CodeBadRequest, "user profile is not complete")
	}
	return nil
}

// CanReject checks the reject transition. A verified account cannot be
// un-approved through the verification path.
func (a *Account) CanReject() error {
	if err := a.CanDecide(); err != nil {
		return err
	}
	if a.VerifiedByAdmin {
		return dErrors.New(dErrors.CodeConflict, "account is already verified")
	}
	return nil
}

// ApplyApproval marks the account verified, assigning the voter identifier
// only when none exists yet so repeated approvals never rotate it.
func (a *Account) ApplyApproval(voterID string, now time.Time) {
	a.VerifiedByAdmin = true
	if a.VoterID == "" {
		a.VoterID = voterID
	}
	a.UpdatedAt = now
}

// ApplyRejection leaves the profile intact; the user may resubmit.
func (a *Account) ApplyRejection(now time.Time) {
	a.VerifiedByAdmin = false
	a.UpdatedAt = now
}

// Clone returns a deep copy so in-memory store reads never alias store state.
func (a *Account) Clone() *Account {
	copied := *a
	if a.Profile != nil {
		profile := *a.Profile
		copied.Profile = &profile
	}
	return &copied
}
