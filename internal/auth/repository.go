package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pollwinner/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser inserts the user and an empty wallet in one transaction.
// Every user has a wallet from signup on.
func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO users (user_id, email, name, password_hash, picture, upi_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, u.UserID, u.Email, u.Name, nilIfEmpty(u.PasswordHash), u.Picture, u.UPIID).Scan(&u.CreatedAt)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO wallets (wallet_id, user_id, balance) VALUES ($1, $2, 0)
	`, models.NewID("wallet"), u.UserID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetUserByEmail returns nil when no user exists.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		SELECT user_id, email, name, COALESCE(password_hash, ''), picture, upi_id, created_at
		FROM users WHERE email = $1
	`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *Repository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT user_id, email, name, COALESCE(password_hash, ''), picture, upi_id, created_at
		FROM users WHERE user_id = $1
	`, userID))
}

func (r *Repository) SetUPI(ctx context.Context, userID, upiID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET upi_id = $2 WHERE user_id = $1`, userID, upiID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", userID)
	}
	return nil
}

func (r *Repository) CreateSession(ctx context.Context, s *models.UserSession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_sessions (session_token, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_token) DO UPDATE SET user_id = $2, expires_at = $3
	`, s.SessionToken, s.UserID, s.ExpiresAt)
	return err
}

// GetSession returns nil when the token is unknown.
func (r *Repository) GetSession(ctx context.Context, token string) (*models.UserSession, error) {
	var s models.UserSession
	err := r.pool.QueryRow(ctx, `
		SELECT session_token, user_id, expires_at, created_at
		FROM user_sessions WHERE session_token = $1
	`, token).Scan(&s.SessionToken, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE session_token = $1`, token)
	return err
}

// DeleteExpiredSessions is called opportunistically; losing the race is harmless.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, now)
	return err
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.UserID, &u.Email, &u.Name, &u.PasswordHash, &u.Picture, &u.UPIID, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
