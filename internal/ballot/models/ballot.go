// Package models holds the ballot record. Ballots are append-only; there is
// no update or delete anywhere in the system.
package models

import (
	"time"

	id "ballotbox/pkg/domain"
)

// Ballot is one cast vote. At most one exists per (account, election);
// the store enforces that at write time.
type Ballot struct {
	ID            id.BallotID   `json:"id"`
	AccountID     id.AccountID  `json:"account_id"`
	ElectionID    id.ElectionID `json:"election_id"`
	CandidateName string        `json:"candidate_name"`
	VotedAt       time.Time     `json:"voted_at"`
}
