// Package service manages the election catalog and aggregate statistics.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ballotbox/internal/audit"
	"ballotbox/internal/election/models"
	"ballotbox/internal/election/store"
	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
	"ballotbox/pkg/platform/sentinel"
	"ballotbox/pkg/requestcontext"
)

// VoterCounter reports how many voter accounts exist.
type VoterCounter interface {
	CountVoters(ctx context.Context) (int, error)
}

// BallotCounter reports how many ballots have been cast overall.
type BallotCounter interface {
	Count(ctx context.Context) (int, error)
}

// AuditPublisher records catalog changes to the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages elections. Entries are immutable after creation, so the
// catalog has no update path.
type Service struct {
	elections store.ElectionStore
	voters    VoterCounter
	ballots   BallotCounter
	logger    *slog.Logger
	audit     AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(elections store.ElectionStore, voters VoterCounter, ballots BallotCounter, opts ...Option) *Service {
	s := &Service{
		elections: elections,
		voters:    voters,
		ballots:   ballots,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateParams carries the admin's election definition.
type CreateParams struct {
	Title      string
	Candidates []string
	StartDate  time.Time
	EndDate    time.Time
}

// Create validates and stores a new election.
func (s *Service) Create(ctx context.Context, adminID id.AccountID, params CreateParams) (*models.Election, error) {
	election, err := models.NewElection(id.NewElectionID(), params.Title, params.Candidates,
		params.StartDate, params.EndDate, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.elections.Create(ctx, election); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create election")
	}

	s.emitAudit(ctx, audit.ActionElectionCreated, adminID.String(), election.ID.String(), election.Title)
	return election, nil
}

// Delete removes an election; absent elections are an explicit NotFound.
func (s *Service) Delete(ctx context.Context, adminID id.AccountID, electionID id.ElectionID) error {
	if err := s.elections.Delete(ctx, electionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete election")
	}
	s.emitAudit(ctx, audit.ActionElectionDeleted, adminID.String(), electionID.String(), "")
	return nil
}

// Get loads one election.
func (s *Service) Get(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	return election, nil
}

// ElectionWithStatus pairs an election with its status derived from the
// request clock.
type ElectionWithStatus struct {
	*models.Election
	Status models.Status `json:"status"`
}

// List returns the catalog with derived statuses.
func (s *Service) List(ctx context.Context) ([]ElectionWithStatus, error) {
	elections, err := s.elections.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list elections")
	}

	now := requestcontext.Now(ctx)
	out := make([]ElectionWithStatus, 0, len(elections))
	for _, election := range elections {
		out = append(out, ElectionWithStatus{Election: election, Status: election.StatusAt(now)})
	}
	return out, nil
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	TotalElections     int     `json:"total_elections"`
	ActiveElections    int     `json:"active_elections"`
	UpcomingElections  int     `json:"upcoming_elections"`
	CompletedElections int     `json:"completed_elections"`
	TotalVoters        int     `json:"total_voters"`
	TotalVotes         int     `json:"total_votes"`
	// Participation is totalVotes / (totalVoters * totalElections) * 100,
	// zero when the denominator is zero.
	Participation float64 `json:"participation_percentage"`
}

// GetStats gathers the three independent counts in parallel and derives the
// participation percentage.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	var (
		elections   []*models.Election
		totalVoters int
		totalVotes  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		elections, err = s.elections.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totalVoters, err = s.voters.CountVoters(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totalVotes, err = s.ballots.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather stats")
	}

	stats := &Stats{
		TotalElections: len(elections),
		TotalVoters:    totalVoters,
		TotalVotes:     totalVotes,
	}
	now := requestcontext.Now(ctx)
	for _, election := range elections {
		switch election.StatusAt(now) {
		case models.StatusActive:
			stats.ActiveElections++
		case models.StatusUpcoming:
			stats.UpcomingElections++
		case models.StatusCompleted:
			stats.CompletedElections++
		}
	}

	if denominator := totalVoters * stats.TotalElections; denominator > 0 {
		stats.Participation = float64(totalVotes) / float64(denominator) * 100
	}
	return stats, nil
}

func (s *Service) emitAudit(ctx context.Context, action, actorID, subjectID, detail string) {
	s.logger.InfoContext(ctx, action,
		"subject_id", subjectID,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
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
