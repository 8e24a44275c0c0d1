package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ballotbox/internal/election/models"
	id "ballotbox/pkg/domain"
	"ballotbox/pkg/platform/sentinel"
)

// Postgres implements ElectionStore on the elections table. The candidate
// roster round-trips through a TEXT[] column via pq.Array.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, election *models.Election) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO elections (id, title, candidates, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		election.ID.String(), election.Title, pq.Array(election.Candidates),
		election.StartDate, election.EndDate, election.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert election: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, candidates, start_date, end_date, created_at
		FROM elections WHERE id = $1`, electionID.String())
	return scanElection(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Election, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, candidates, start_date, end_date, created_at
		FROM elections ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	defer rows.Close()

	var elections []*models.Election
	for rows.Next() {
		election, err := scanElection(rows)
		if err != nil {
			return nil, err
		}
		elections = append(elections, election)
	}
	return elections, rows.Err()
}

func (s *Postgres) Delete(ctx context.Context, electionID id.ElectionID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM elections WHERE id = $1`, electionID.String())
	if err != nil {
		return fmt.Errorf("delete election: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete election: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM elections`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count elections: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (*models.Election, error) {
	var (
		election models.Election
		rawID    string
	)
	err := row.Scan(&rawID, &election.Title, pq.Array(&election.Candidates),
		&election.StartDate, &election.EndDate, &election.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan election: %w", err)
	}

	electionID, err := id.ParseElectionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan election id: %w", err)
	}
	election.ID = electionID
	return &election, nil
}
