// Package service decides whether a vote attempt may be recorded. Every
// failure is a distinct coded reason checked in a fixed order; on success
// the ballot lands in the ledger in a single atomic write.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ballotbox/internal/audit"
	ballotmodels "ballotbox/internal/ballot/models"
	"ballotbox/internal/ballot/store"
	electionmodels "ballotbox/internal/election/models"
	identitymodels "ballotbox/internal/identity/models"
	"ballotbox/internal/platform/metrics"
	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
	"ballotbox/pkg/platform/sentinel"
	"ballotbox/pkg/requestcontext"
)

// ElectionFinder resolves elections for eligibility checks.
type ElectionFinder interface {
	FindByID(ctx context.Context, electionID id.ElectionID) (*electionmodels.Election, error)
}

// AccountFinder resolves the voter's stored account. Verification flags are
// always read here, never from anything the client sent.
type AccountFinder interface {
	FindByID(ctx context.Context, accountID id.AccountID) (*identitymodels.Account, error)
}

// AuditPublisher records cast ballots to the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the eligibility gate and the ledger write.
type Service struct {
	ballots   store.BallotStore
	elections ElectionFinder
	accounts  AccountFinder
	logger    *slog.Logger
	audit     AuditPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
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

func New(ballots store.BallotStore, elections ElectionFinder, accounts AccountFinder, opts ...Option) *Service {
	s := &Service{
		ballots:   ballots,
		elections: elections,
		accounts:  accounts,
		logger:    slog.Default(),
		tracer:    otel.Tracer("ballotbox/ballot"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Receipt is what a successful cast returns. The ballot itself stays in the
// ledger; the caller only needs proof and a timestamp.
type Receipt struct {
	BallotID      id.BallotID   `json:"ballot_id"`
	ElectionID    id.ElectionID `json:"election_id"`
	CandidateName string        `json:"candidate_name"`
	VotedAt       time.Time     `json:"voted_at"`
}

// Cast runs the eligibility checks in order and records the ballot. The
// ledger's uniqueness guarantee is re-asserted at the write, so two racing
// casts for the same (account, election) admit exactly one.
func (s *Service) Cast(ctx context.Context, accountID id.AccountID, electionID id.ElectionID, candidate string) (*Receipt, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ballot.cast",
		trace.WithAttributes(
			attribute.String("election.id", electionID.String()),
		))
	defer span.End()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveCastDuration(float64(time.Since(start).Microseconds()) / 1000.0)
		}
	}()

	receipt, err := s.cast(ctx, accountID, electionID, candidate)
	if err != nil {
		reason := string(dErrors.CodeOf(err))
		span.SetStatus(otelcodes.Error, reason)
		if s.metrics != nil {
			s.metrics.IncrementVoteRejection(reason)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("ballot.id", receipt.BallotID.String()))
	if s.metrics != nil {
		s.metrics.IncrementBallotsCast()
	}
	return receipt, nil
}

func (s *Service) cast(ctx context.Context, accountID id.AccountID, electionID id.ElectionID, candidate string) (*Receipt, error) {
	now := requestcontext.Now(ctx)

	election, err := s.elections.FindByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}

	if status := election.StatusAt(now); status != electionmodels.StatusActive {
		return nil, dErrors.Newf(dErrors.CodeElectionNotActive, "election is %s", status)
	}
	if !election.HasCandidate(candidate) {
		return nil, dErrors.Newf(dErrors.CodeInvalidCandidate, "candidate %q is not on the ballot", candidate)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if !account.ProfileComplete {
		return nil, dErrors.New(dErrors.CodeProfileIncomplete, "profile must be completed before voting")
	}
	if !account.VerifiedByAdmin {
		return nil, dErrors.New(dErrors.CodeProfileNotVerified, "profile must be verified before voting")
	}

	// Cheap pre-check for the common repeat case; the Record below is the
	// authoritative guard either way.
	voted, err := s.ballots.HasVoted(ctx, accountID, electionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check ballot")
	}
	if voted {
		return nil, alreadyVoted()
	}

	ballot := &ballotmodels.Ballot{
		ID:            id.NewBallotID(),
		AccountID:     accountID,
		ElectionID:    electionID,
		CandidateName: candidate,
		VotedAt:       now,
	}
	if err := s.ballots.Record(ctx, ballot); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, alreadyVoted()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ballot")
	}

	s.logger.InfoContext(ctx, "ballot cast",
		"request_id", requestcontext.RequestID(ctx),
		"ballot_id", ballot.ID,
		"election_id", electionID,
		"log_type", "audit",
	)
	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Action:    audit.ActionBallotCast,
			ActorID:   accountID.String(),
			SubjectID: accountID.String(),
			Detail:    "election=" + electionID.String(),
		})
	}

	return &Receipt{
		BallotID:      ballot.ID,
		ElectionID:    electionID,
		CandidateName: candidate,
		VotedAt:       now,
	}, nil
}

func alreadyVoted() error {
	return dErrors.New(dErrors.CodeAlreadyVoted, "a ballot has already been cast in this election")
}

// HistoryEntry is one row of a voter's history, joined with the election
// title for display.
type HistoryEntry struct {
	ElectionID    id.ElectionID `json:"election_id"`
	ElectionTitle string        `json:"election_title"`
	CandidateName string        `json:"candidate_name"`
	VotedAt       time.Time     `json:"voted_at"`
}

// History lists the account's ballots oldest first. A ballot whose election
// was deleted keeps its row with an empty title.
func (s *Service) History(ctx context.Context, accountID id.AccountID) ([]HistoryEntry, error) {
	ballots, err := s.ballots.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ballots")
	}

	titles := make(map[id.ElectionID]string, len(ballots))
	entries := make([]HistoryEntry, 0, len(ballots))
	for _, ballot := range ballots {
		title, seen := titles[ballot.ElectionID]
		if !seen {
			election, err := s.elections.FindByID(ctx, ballot.ElectionID)
			switch {
			case err == nil:
				title = election.Title
			case errors.Is(err, sentinel.ErrNotFound):
				title = ""
			default:
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
			}
			titles[ballot.ElectionID] = title
		}
		entries = append(entries, HistoryEntry{
			ElectionID:    ballot.ElectionID,
			ElectionTitle: title,
			CandidateName: ballot.CandidateName,
			VotedAt:       ballot.VotedAt,
		})
	}
	return entries, nil
}
