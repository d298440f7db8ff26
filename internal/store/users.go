package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

// CreateUser inserts a user. Emails are stored lower-cased.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*media.User, error) {
	var (
		u  media.User
		id int64
	)
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at`,
		normalizeEmail(email), passwordHash).Scan(&id, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	u.ID = formatID(id)
	return &u, nil
}

// GetUserByEmail returns the user or ErrNotFound.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*media.User, error) {
	var (
		u  media.User
		id int64
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = $1`,
		normalizeEmail(email)).Scan(&id, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.ID = formatID(id)
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
