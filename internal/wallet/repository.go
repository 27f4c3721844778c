package wallet

import (
	"context"
	"errors"
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

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// GetOrCreateWallet returns the user's wallet, creating an empty one on
// first access. Wallets are normally created at signup; this covers
// users from older data.
func (r *Repository) GetOrCreateWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	var w models.Wallet
	err := r.pool.QueryRow(ctx, `
		INSERT INTO wallets (wallet_id, user_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING wallet_id, user_id, balance, updated_at
	`, models.NewID("wallet"), userID).Scan(&w.WalletID, &w.UserID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// DebitIfSufficient atomically deducts amount when the balance covers it.
// Returns false when the guard fails.
func (r *Repository) DebitIfSufficient(ctx context.Context, tx pgx.Tx, userID string, amount int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) CreateWithdrawal(ctx context.Context, wd *models.Withdrawal) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO withdrawals (withdrawal_id, user_id, amount, fee, net_amount, upi_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, wd.WithdrawalID, wd.UserID, wd.Amount, wd.Fee, wd.NetAmount, wd.UPIID, wd.Status).Scan(&wd.CreatedAt)
}

// GetWithdrawalForUpdate locks the withdrawal row. Returns nil when missing.
func (r *Repository) GetWithdrawalForUpdate(ctx context.Context, tx pgx.Tx, withdrawalID string) (*models.Withdrawal, error) {
	wd, err := scanWithdrawal(tx.QueryRow(ctx, `
		SELECT withdrawal_id, user_id, amount, fee, net_amount, upi_id, status, admin_notes, created_at, processed_at
		FROM withdrawals WHERE withdrawal_id = $1 FOR UPDATE
	`, withdrawalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return wd, err
}

func (r *Repository) MarkWithdrawalProcessed(ctx context.Context, tx pgx.Tx, withdrawalID, status string, notes *string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE withdrawals SET status = $2, admin_notes = COALESCE($3, admin_notes), processed_at = $4
		WHERE withdrawal_id = $1
	`, withdrawalID, status, notes, at)
	return err
}

func (r *Repository) ListWithdrawalsByUser(ctx context.Context, userID string) ([]*models.Withdrawal, error) {
	return r.listWithdrawals(ctx, `
		SELECT withdrawal_id, user_id, amount, fee, net_amount, upi_id, status, admin_notes, created_at, processed_at
		FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
}

func (r *Repository) ListAllWithdrawals(ctx context.Context) ([]*models.Withdrawal, error) {
	return r.listWithdrawals(ctx, `
		SELECT withdrawal_id, user_id, amount, fee, net_amount, upi_id, status, admin_notes, created_at, processed_at
		FROM withdrawals ORDER BY created_at DESC
	`)
}

func (r *Repository) CreateTransactionTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (transaction_id, user_id, type, amount, status, poll_id, vote_count, cashfree_order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, t.TransactionID, t.UserID, t.Type, t.Amount, t.Status, t.PollID, t.VoteCount, t.CashfreeOrderID).Scan(&t.CreatedAt)
}

func (r *Repository) ListTransactionsByUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return r.listTransactions(ctx, `
		SELECT transaction_id, user_id, type, amount, status, poll_id, vote_count, cashfree_order_id, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
}

func (r *Repository) ListAllTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return r.listTransactions(ctx, `
		SELECT transaction_id, user_id, type, amount, status, poll_id, vote_count, cashfree_order_id, created_at
		FROM transactions ORDER BY created_at DESC
	`)
}

func (r *Repository) listWithdrawals(ctx context.Context, query string, args ...any) ([]*models.Withdrawal, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Withdrawal
	for rows.Next() {
		wd, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, wd)
	}
	return list, rows.Err()
}

func (r *Repository) listTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.TransactionID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.PollID, &t.VoteCount, &t.CashfreeOrderID, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}

func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var wd models.Withdrawal
	err := row.Scan(&wd.WithdrawalID, &wd.UserID, &wd.Amount, &wd.Fee, &wd.NetAmount, &wd.UPIID, &wd.Status, &wd.AdminNotes, &wd.CreatedAt, &wd.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return &wd, nil
}
