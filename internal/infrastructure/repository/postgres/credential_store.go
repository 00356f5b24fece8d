package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
)

const uniqueViolation = "23505"

type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) CreateCredential(ctx context.Context, cred domain.Credential) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, email, password_hash, created_at)
VALUES ($1,$2,$3,$4)
`, cred.UserID, strings.ToLower(cred.Email), cred.PasswordHash, cred.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.WrapError(domain.ErrInvalidInput, "create credential", errors.New("email is already registered"))
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) GetCredentialByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, email, password_hash, created_at
FROM users
WHERE email = $1
`, strings.ToLower(email))

	var cred domain.Credential
	if err := row.Scan(&cred.UserID, &cred.Email, &cred.PasswordHash, &cred.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUnauthorized, "get credential", fmt.Errorf("no user with email %s", email))
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	return &cred, nil
}
