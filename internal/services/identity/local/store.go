package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	errAccountNotFound = errors.New("account not found")
	errEmailTaken      = errors.New("email already registered")
)

type account struct {
	ID              string
	Email           string
	PasswordHash    []byte
	DisplayName     string
	Disabled        bool
	TokenGeneration int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// store persists accounts in SQLite.
type store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

const accountColumns = `id, email, password_hash, display_name, disabled, token_generation, created_at, updated_at`

func (s *store) insert(ctx context.Context, acct account) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO accounts (`+accountColumns+`)
VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		acct.ID,
		acct.Email,
		acct.PasswordHash,
		acct.DisplayName,
		toMillis(acct.CreatedAt),
		toMillis(acct.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *store) byEmail(ctx context.Context, email string) (account, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
	return scanAccount(row)
}

func (s *store) byID(ctx context.Context, id string) (account, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (s *store) setDisplayName(ctx context.Context, id, displayName string, now time.Time) error {
	return s.update(ctx, `UPDATE accounts SET display_name = ?, updated_at = ? WHERE id = ?`, displayName, toMillis(now), id)
}

func (s *store) setDisabled(ctx context.Context, id string, disabled bool, now time.Time) error {
	flag := 0
	if disabled {
		flag = 1
	}
	return s.update(ctx, `UPDATE accounts SET disabled = ?, updated_at = ? WHERE id = ?`, flag, toMillis(now), id)
}

// bumpGeneration invalidates every token issued before now.
func (s *store) bumpGeneration(ctx context.Context, id string, now time.Time) error {
	return s.update(ctx, `UPDATE accounts SET token_generation = token_generation + 1, updated_at = ? WHERE id = ?`, toMillis(now), id)
}

func (s *store) update(ctx context.Context, query string, args ...any) error {
	result, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account rows: %w", err)
	}
	if affected == 0 {
		return errAccountNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (account, error) {
	var (
		acct      account
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&acct.ID,
		&acct.Email,
		&acct.PasswordHash,
		&acct.DisplayName,
		&acct.Disabled,
		&acct.TokenGeneration,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account{}, errAccountNotFound
		}
		return account{}, fmt.Errorf("scan account: %w", err)
	}
	acct.CreatedAt = fromMillis(createdAt)
	acct.UpdatedAt = fromMillis(updatedAt)
	return acct, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
