// Package domain provides typed identifiers shared across the service.
//
// Each entity gets its own UUID-backed type so an AccountID can never be
// passed where an ElectionID is expected. Parse helpers enforce the
// invariant that IDs arriving from the outside are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "ballotbox/pkg/domain-errors"
)

type (
	// AccountID identifies a registered account, voter or admin.
	AccountID uuid.UUID
	// ElectionID identifies an election.
	ElectionID uuid.UUID
	// BallotID identifies a recorded ballot.
	BallotID uuid.UUID
)

// maxIDLength bounds parser input before uuid.Parse sees it, rejecting
// oversized payloads at the trust boundary.
const maxIDLength = 64

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid id", what)
	}
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid id", what)
	}
	return u, nil
}

// ParseAccountID validates and returns an AccountID.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account id")
	return AccountID(u), err
}

// ParseElectionID validates and returns an ElectionID.
func ParseElectionID(s string) (ElectionID, error) {
	u, err := parseUUID(s, "election id")
	return ElectionID(u), err
}

// ParseBallotID validates and returns a BallotID.
func ParseBallotID(s string) (BallotID, error) {
	u, err := parseUUID(s, "ballot id")
	return BallotID(u), err
}

// NewAccountID returns a fresh random AccountID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewElectionID returns a fresh random ElectionID.
func NewElectionID() ElectionID { return ElectionID(uuid.New()) }

// NewBallotID returns a fresh random BallotID.
func NewBallotID() BallotID { return BallotID(uuid.New()) }

func (id AccountID) String() string  { return uuid.UUID(id).String() }
func (id ElectionID) String() string { return uuid.UUID(id).String() }
func (id BallotID) String() string   { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ElectionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BallotID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func (id AccountID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id ElectionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id BallotID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *AccountID) UnmarshalText(b []byte) error {
	parsed, err := ParseAccountID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ElectionID) UnmarshalText(b []byte) error {
	parsed, err := ParseElectionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *BallotID) UnmarshalText(b []byte) error {
	parsed, err := ParseBallotID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
