package payments

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

func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO transactions (transaction_id, user_id, type, amount, status, poll_id, vote_count, cashfree_order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, t.TransactionID, t.UserID, t.Type, t.Amount, t.Status, t.PollID, t.VoteCount, t.CashfreeOrderID).Scan(&t.CreatedAt)
}

// GetPurchaseByOrder returns the purchase transaction tied to a gateway
// order id, or nil when none exists.
func (r *Repository) GetPurchaseByOrder(ctx context.Context, orderID string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.pool.QueryRow(ctx, `
		SELECT transaction_id, user_id, type, amount, status, poll_id, vote_count, cashfree_order_id, created_at
		FROM transactions
		WHERE cashfree_order_id = $1 AND type = 'purchase'
	`, orderID).Scan(&t.TransactionID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.PollID, &t.VoteCount, &t.CashfreeOrderID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkPurchaseByOrder moves a pending purchase to the given status.
// Returns false when no pending purchase matched, which makes repeated
// webhook deliveries and reconciliation runs harmless.
func (r *Repository) MarkPurchaseByOrder(ctx context.Context, orderID, status string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET status = $2
		WHERE cashfree_order_id = $1 AND type = 'purchase' AND status = 'pending'
	`, orderID, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
