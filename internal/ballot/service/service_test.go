package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	ballotstore "ballotbox/internal/ballot/store"
	electionmodels "ballotbox/internal/election/models"
	electionstore "ballotbox/internal/election/store"
	identitymodels "ballotbox/internal/identity/models"
	identitystore "ballotbox/internal/identity/store"
	id "ballotbox/pkg/domain"
	dErrors "ballotbox/pkg/domain-errors"
	"ballotbox/pkg/requestcontext"
)

type BallotServiceSuite struct {
	suite.Suite
	ballots   *ballotstore.InMemory
	elections *electionstore.InMemory
	accounts  *identitystore.InMemory
	service   *Service
	now       time.Time
	ctx       context.Context
}

func (s *BallotServiceSuite) SetupTest() {
	s.ballots = ballotstore.NewInMemory()
	s.elections = electionstore.NewInMemory()
	s.accounts = identitystore.NewInMemory()
	s.service = New(s.ballots, s.elections, s.accounts)
	s.now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestBallotServiceSuite(t *testing.T) {
	suite.Run(t, new(BallotServiceSuite))
}

// newVoter seeds an account; verified controls whether it passed the admin
// workflow, complete whether the profile was submitted at all.
func (s *BallotServiceSuite) newVoter(email string, complete, verified bool) id.AccountID {
	account, err := identitymodels.NewAccount(id.NewAccountID(), "Voter", email,
		identitymodels.RoleVoter, "hash", s.now)
	s.Require().NoError(err)
	if complete {
		account.ApplyProfile(identitymodels.Profile{
			FullName: "Voter", Age: 30, Address: "1 Poll Road",
			PhotoRef: "photos/v.jpg", DocumentRef: "documents/v.pdf",
		}, s.now)
	}
	s.Require().NoError(s.accounts.CreateIfEmailAvailable(s.ctx, account))
	if verified {
		_, err := s.accounts.ApproveIfVoterIDAvailable(s.ctx, account.ID, "VTR-"+email, s.now)
		s.Require().NoError(err)
	}
	return account.ID
}

func (s *BallotServiceSuite) newElection(title string, start, end time.Time) id.ElectionID {
	election, err := electionmodels.NewElection(id.NewElectionID(), title,
		[]string{"Alice", "Bob"}, start, end, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.elections.Create(s.ctx, election))
	return election.ID
}

func (s *BallotServiceSuite) activeElection() id.ElectionID {
	return s.newElection("Active", s.now.Add(-time.Hour), s.now.Add(time.Hour))
}

func (s *BallotServiceSuite) TestCastSucceedsForVerifiedVoter() {
	voter := s.newVoter("ok@example.com", true, true)
	election := s.activeElection()

	receipt, err := s.service.Cast(s.ctx, voter, election, "Alice")
	s.Require().NoError(err)
	s.Equal(election, receipt.ElectionID)
	s.Equal("Alice", receipt.CandidateName)
	s.Equal(s.now, receipt.VotedAt, "cast time comes from the request clock")

	voted, err := s.ballots.HasVoted(s.ctx, voter, election)
	s.Require().NoError(err)
	s.True(voted)
}

func (s *BallotServiceSuite) TestCastFailureReasons() {
	voter := s.newVoter("reasons@example.com", true, true)

	s.Run("unknown election", func() {
		_, err := s.service.Cast(s.ctx, voter, id.NewElectionID(), "Alice")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("upcoming election", func() {
		election := s.newElection("Future", s.now.Add(time.Hour), s.now.Add(2*time.Hour))
		_, err := s.service.Cast(s.ctx, voter, election, "Alice")
		s.True(dErrors.HasCode(err, dErrors.CodeElectionNotActive))
	})

	s.Run("completed election", func() {
		election := s.newElection("Past", s.now.Add(-2*time.Hour), s.now.Add(-time.Hour))
		_, err := s.service.Cast(s.ctx, voter, election, "Alice")
		s.True(dErrors.HasCode(err, dErrors.CodeElectionNotActive))
	})

	s.Run("candidate off the roster", func() {
		election := s.activeElection()
		_, err := s.service.Cast(s.ctx, voter, election, "Mallory")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCandidate))
	})

	s.Run("incomplete profile", func() {
		incomplete := s.newVoter("incomplete@example.com", false, false)
		_, err := s.service.Cast(s.ctx, incomplete, s.activeElection(), "Alice")
		s.True(dErrors.HasCode(err, dErrors.CodeProfileIncomplete))
	})

	s.Run("unverified profile", func() {
		unverified := s.newVoter("unverified@example.com", true, false)
		_, err := s.service.Cast(s.ctx, unverified, s.activeElection(), "Alice")
		s.True(dErrors.HasCode(err, dErrors.CodeProfileNotVerified))
	})

	s.Run("unknown account", func() {
		_, err := s.service.Cast(s.ctx, id.NewAccountID(), s.activeElection(), "Alice")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// The election checks rank ahead of the profile checks: an unverified voter
// aiming at an inactive election hears about the election first.
func (s *BallotServiceSuite) TestCheckOrdering() {
	unverified := s.newVoter("ordering@example.com", true, false)
	past := s.newElection("Closed", s.now.Add(-3*time.Hour), s.now.Add(-2*time.Hour))

	_, err := s.service.Cast(s.ctx, unverified, past, "Mallory")
	s.True(dErrors.HasCode(err, dErrors.CodeElectionNotActive),
		"election state outranks candidate and profile failures, got %v", err)
}

func (s *BallotServiceSuite) TestSecondCastIsConflict() {
	voter := s.newVoter("twice@example.com", true, true)
	election := s.activeElection()

	_, err := s.service.Cast(s.ctx, voter, election, "Alice")
	s.Require().NoError(err)

	_, err = s.service.Cast(s.ctx, voter, election, "Bob")
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyVoted))

	count, err := s.ballots.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count, "the failed attempt leaves no partial state")
}

func (s *BallotServiceSuite) TestSameVoterDifferentElections() {
	voter := s.newVoter("multi@example.com", true, true)
	first := s.activeElection()
	second := s.newElection("Second", s.now.Add(-time.Hour), s.now.Add(time.Hour))

	_, err := s.service.Cast(s.ctx, voter, first, "Alice")
	s.Require().NoError(err)
	_, err = s.service.Cast(s.ctx, voter, second, "Bob")
	s.Require().NoError(err)
}

func (s *BallotServiceSuite) TestConcurrentCastsAdmitExactlyOne() {
	voter := s.newVoter("race@example.com", true, true)
	election := s.activeElection()
	const attempts = 25

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.Cast(s.ctx, voter, election, "Alice")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.Require().True(dErrors.HasCode(err, dErrors.CodeAlreadyVoted), "unexpected error %v", err)
		}
	}
	s.Equal(1, succeeded)

	count, err := s.ballots.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *BallotServiceSuite) TestHistory() {
	voter := s.newVoter("history@example.com", true, true)
	first := s.newElection("First", s.now.Add(-time.Hour), s.now.Add(time.Hour))
	second := s.newElection("Second", s.now.Add(-time.Hour), s.now.Add(time.Hour))

	_, err := s.service.Cast(s.ctx, voter, first, "Alice")
	s.Require().NoError(err)
	_, err = s.service.Cast(s.ctx, voter, second, "Bob")
	s.Require().NoError(err)

	s.Run("joined with election titles", func() {
		history, err := s.service.History(s.ctx, voter)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Equal("First", history[0].ElectionTitle)
		s.Equal("Alice", history[0].CandidateName)
		s.Equal("Second", history[1].ElectionTitle)
	})

	s.Run("deleted election keeps the row without a title", func() {
		s.Require().NoError(s.elections.Delete(s.ctx, first))
		history, err := s.service.History(s.ctx, voter)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Empty(history[0].ElectionTitle)
	})

	s.Run("empty history", func() {
		other := s.newVoter("empty@example.com", true, true)
		history, err := s.service.History(s.ctx, other)
		s.Require().NoError(err)
		s.Empty(history)
	})
}
