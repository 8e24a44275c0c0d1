package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the service.
const (
	ActionRegister        = "account.register"
	ActionLogin           = "account.login"
	ActionLogout          = "account.logout"
	ActionProfileSubmit   = "profile.submit"
	ActionProfileUpdate   = "profile.update"
	ActionVerifyApproved  = "verification.approved"
	ActionVerifyRejected  = "verification.rejected"
	ActionBallotCast      = "ballot.cast"
	ActionElectionCreated = "election.created"
	ActionElectionDeleted = "election.deleted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id,omitempty"`
	SubjectID  string    `json:"subject_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
