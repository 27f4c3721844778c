package admin

import (
	"context"
	"errors"

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

func (r *Repository) Create(ctx context.Context, a *models.Admin) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO admins (admin_id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, a.AdminID, a.Email, a.Name, a.PasswordHash).Scan(&a.CreatedAt)
}

// GetByEmail returns nil when no admin exists.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var a models.Admin
	err := r.pool.QueryRow(ctx, `
		SELECT admin_id, email, name, password_hash, created_at
		FROM admins WHERE email = $1
	`, email).Scan(&a.AdminID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) GetByID(ctx context.Context, adminID string) (*models.Admin, error) {
	var a models.Admin
	err := r.pool.QueryRow(ctx, `
		SELECT admin_id, email, name, password_hash, created_at
		FROM admins WHERE admin_id = $1
	`, adminID).Scan(&a.AdminID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, email, name, COALESCE(password_hash, ''), picture, upi_id, created_at
		FROM users ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.UserID, &u.Email, &u.Name, &u.PasswordHash, &u.Picture, &u.UPIID, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &u)
	}
	return list, rows.Err()
}

// Analytics aggregates the dashboard counters. Revenue is the sum of all
// successful transaction amounts (purchases positive, withdrawals negative).
type Analytics struct {
	TotalUsers          int64 `json:"total_users"`
	TotalPolls          int64 `json:"total_polls"`
	ActivePolls         int64 `json:"active_polls"`
	PendingWithdrawals  int64 `json:"pending_withdrawals"`
	TotalRevenue        int64 `json:"total_revenue"`
}

func (r *Repository) Analytics(ctx context.Context) (*Analytics, error) {
	var a Analytics
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM polls),
			(SELECT COUNT(*) FROM polls WHERE status = 'active'),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE status = 'success')
	`).Scan(&a.TotalUsers, &a.TotalPolls, &a.ActivePolls, &a.PendingWithdrawals, &a.TotalRevenue)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
