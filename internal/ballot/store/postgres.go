package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ballotbox/internal/ballot/models"
	id "ballotbox/pkg/domain"
	"ballotbox/pkg/platform/sentinel"
)

// Postgres implements BallotStore on the ballots table. The unique index on
// (account_id, election_id) is the authoritative at-most-once guard; a
// 23505 from the insert maps to sentinel.ErrAlreadyUsed.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Record(ctx context.Context, ballot *models.Ballot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ballots (id, account_id, election_id, candidate_name, voted_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ballot.ID.String(), ballot.AccountID.String(), ballot.ElectionID.String(),
		ballot.CandidateName, ballot.VotedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert ballot: %w", err)
	}
	return nil
}

func (s *Postgres) HasVoted(ctx context.Context, accountID id.AccountID, electionID id.ElectionID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM ballots WHERE account_id = $1 AND election_id = $2)`,
		accountID.String(), electionID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check ballot: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ListByAccount(ctx context.Context, accountID id.AccountID) ([]*models.Ballot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, election_id, candidate_name, voted_at
		FROM ballots WHERE account_id = $1 ORDER BY voted_at`, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list ballots: %w", err)
	}
	defer rows.Close()

	var ballots []*models.Ballot
	for rows.Next() {
		var (
			ballot        models.Ballot
			rawID         string
			rawAccountID  string
			rawElectionID string
		)
		if err := rows.Scan(&rawID, &rawAccountID, &rawElectionID, &ballot.CandidateName, &ballot.VotedAt); err != nil {
			return nil, fmt.Errorf("scan ballot: %w", err)
		}
		if ballot.ID, err = id.ParseBallotID(rawID); err != nil {
			return nil, fmt.Errorf("scan ballot id: %w", err)
		}
		if ballot.AccountID, err = id.ParseAccountID(rawAccountID); err != nil {
			return nil, fmt.Errorf("scan ballot account id: %w", err)
		}
		if ballot.ElectionID, err = id.ParseElectionID(rawElectionID); err != nil {
			return nil, fmt.Errorf("scan ballot election id: %w", err)
		}
		ballots = append(ballots, &ballot)
	}
	return ballots, rows.Err()
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ballots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count ballots: %w", err)
	}
	return count, nil
}
