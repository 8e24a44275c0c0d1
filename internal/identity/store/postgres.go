package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ballotbox/internal/identity/models"
	id "ballotbox/pkg/domain"
	"ballotbox/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Postgres implements AccountStore on top of the accounts table. Email and
// voter_id uniqueness come from the table's unique indexes; Execute and
// ApproveIfVoterIDAvailable serialize concurrent writers with FOR UPDATE.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const accountColumns = `id, email, role, password_hash, voter_id, full_name,
	profile_name, profile_age, profile_address, profile_photo_ref, profile_document_ref,
	profile_complete, verified_by_admin, created_at, updated_at`

func (s *Postgres) CreateIfEmailAvailable(ctx context.Context, account *models.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		insertArgs(account)...)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID.String())
	return scanAccount(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = lower($1)`, email)
	return scanAccount(row)
}

func (s *Postgres) List(ctx context.Context, filter Filter) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	switch filter {
	case FilterPending:
		query += ` WHERE profile_complete AND NOT verified_by_admin`
	case FilterVerified:
		query += ` WHERE profile_complete AND verified_by_admin`
	case FilterIncomplete:
		query += ` WHERE NOT profile_complete`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Postgres) Execute(ctx context.Context, accountID id.AccountID,
	validate func(*models.Account) error,
	mutate func(*models.Account)) (*models.Account, error) {

	var updated *models.Account
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		account, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if validate != nil {
			if err := validate(account); err != nil {
				return err
			}
		}
		mutate(account)
		if err := saveAccount(ctx, tx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	return updated, err
}

func (s *Postgres) ApproveIfVoterIDAvailable(ctx context.Context, accountID id.AccountID, voterID string, now time.Time) (*models.Account, error) {
	var updated *models.Account
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		account, err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		account.ApplyApproval(voterID, now)
		if err := saveAccount(ctx, tx, account); err != nil {
			return err
		}
		updated = account
		return nil
	})
	return updated, err
}

func (s *Postgres) CountVoters(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE role = 'voter'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count voters: %w", err)
	}
	return count, nil
}

func (s *Postgres) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func lockAccount(ctx context.Context, tx *sql.Tx, accountID id.AccountID) (*models.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID.String())
	return scanAccount(row)
}

func saveAccount(ctx context.Context, tx *sql.Tx, account *models.Account) error {
	var profile models.Profile
	if account.Profile != nil {
		profile = *account.Profile
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts SET
			email = $2, role = $3, password_hash = $4, voter_id = $5, full_name = $6,
			profile_name = $7, profile_age = $8, profile_address = $9,
			profile_photo_ref = $10, profile_document_ref = $11,
			profile_complete = $12, verified_by_admin = $13, updated_at = $14
		WHERE id = $1`,
		account.ID.String(), account.Email, string(account.Role), account.PasswordHash,
		nullString(account.VoterID), account.Name,
		nullString(profile.FullName), nullInt(profile.Age), nullString(profile.Address),
		nullString(profile.PhotoRef), nullString(profile.DocumentRef),
		account.ProfileComplete, account.VerifiedByAdmin, account.UpdatedAt)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func insertArgs(account *models.Account) []any {
	var profile models.Profile
	if account.Profile != nil {
		profile = *account.Profile
	}
	return []any{
		account.ID.String(), account.Email, string(account.Role), account.PasswordHash,
		nullString(account.VoterID), account.Name,
		nullString(profile.FullName), nullInt(profile.Age), nullString(profile.Address),
		nullString(profile.PhotoRef), nullString(profile.DocumentRef),
		account.ProfileComplete, account.VerifiedByAdmin,
		account.CreatedAt, account.UpdatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account     models.Account
		rawID       string
		role        string
		voterID     sql.NullString
		profName    sql.NullString
		profAge     sql.NullInt64
		profAddr    sql.NullString
		profPhoto   sql.NullString
		profDoc     sql.NullString
	)
	err := row.Scan(&rawID, &account.Email, &role, &account.PasswordHash, &voterID,
		&account.Name, &profName, &profAge, &profAddr, &profPhoto, &profDoc,
		&account.ProfileComplete, &account.VerifiedByAdmin,
		&account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}

	accountID, err := id.ParseAccountID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan account id: %w", err)
	}
	account.ID = accountID
	account.Role = models.Role(role)
	account.VoterID = voterID.String
	if profName.Valid {
		account.Profile = &models.Profile{
			FullName:    profName.String,
			Age:         int(profAge.Int64),
			Address:     profAddr.String,
			PhotoRef:    profPhoto.String,
			DocumentRef: profDoc.String,
		}
	}
	return &account, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
