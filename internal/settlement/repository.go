package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pollwinner/backend/internal/models"
)

// Repository implements the settlement stores over Postgres. One value
// serves all four interfaces; the engine only sees the slices it needs.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ TxBeginner  = (*Repository)(nil)
	_ PollStore   = (*Repository)(nil)
	_ VoteStore   = (*Repository)(nil)
	_ WalletStore = (*Repository)(nil)
	_ TxnStore    = (*Repository)(nil)
)

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// GetForUpdate locks the poll row for the rest of the transaction and
// returns the poll with its options. Returns nil when the poll is missing.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, pollID string) (*models.Poll, error) {
	var p models.Poll
	err := tx.QueryRow(ctx, `
		SELECT poll_id, title, description, price_per_vote, status, result_option_id, created_at, closed_at
		FROM polls WHERE poll_id = $1 FOR UPDATE
	`, pollID).Scan(&p.PollID, &p.Title, &p.Description, &p.PricePerVote, &p.Status, &p.ResultOptionID, &p.CreatedAt, &p.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT option_id, text, image_base64 FROM poll_options WHERE poll_id = $1 ORDER BY position
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var o models.PollOption
		if err := rows.Scan(&o.OptionID, &o.Text, &o.ImageBase64); err != nil {
			return nil, err
		}
		p.Options = append(p.Options, o)
	}
	return &p, rows.Err()
}

func (r *Repository) Close(ctx context.Context, tx pgx.Tx, pollID, winningOptionID string, closedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE polls SET status = 'closed', result_option_id = $2, closed_at = $3
		WHERE poll_id = $1
	`, pollID, winningOptionID, closedAt)
	return err
}

func (r *Repository) ListByPoll(ctx context.Context, tx pgx.Tx, pollID string) ([]*models.Vote, error) {
	rows, err := tx.Query(ctx, `
		SELECT vote_id, poll_id, user_id, option_id, vote_count, amount_paid, created_at
		FROM votes WHERE poll_id = $1
	`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var votes []*models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.VoteID, &v.PollID, &v.UserID, &v.OptionID, &v.VoteCount, &v.AmountPaid, &v.CreatedAt); err != nil {
			return nil, err
		}
		votes = append(votes, &v)
	}
	return votes, rows.Err()
}

// Credit upserts the wallet: users who somehow lack one still get paid.
func (r *Repository) Credit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (wallet_id, user_id, balance, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = now()
	`, models.NewID("wallet"), userID, amount)
	return err
}

func (r *Repository) Create(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (transaction_id, user_id, type, amount, status, poll_id, vote_count, cashfree_order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, t.TransactionID, t.UserID, t.Type, t.Amount, t.Status, t.PollID, t.VoteCount, t.CashfreeOrderID).Scan(&t.CreatedAt)
}
