package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pollwinner/backend/internal/models"
)

// availableExpr computes the spendable vote balance for (user, poll):
// successful purchased units minus cast units. The balance is always
// derived from the ledger, never stored.
const availableExpr = `
	COALESCE((SELECT SUM(vote_count) FROM transactions
	          WHERE user_id = $1 AND poll_id = $2 AND type = 'purchase' AND status = 'success'), 0)
	-
	COALESCE((SELECT SUM(vote_count) FROM votes
	          WHERE user_id = $1 AND poll_id = $2), 0)`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// AvailableUnits returns the current spendable balance outside any
// transaction. Informational only; CastVote re-checks atomically.
func (r *Repository) AvailableUnits(ctx context.Context, userID, pollID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT `+availableExpr, userID, pollID).Scan(&n)
	return n, err
}

// AvailableUnitsTx is the transaction-scoped variant.
func (r *Repository) AvailableUnitsTx(ctx context.Context, tx pgx.Tx, userID, pollID string) (int64, error) {
	var n int64
	err := tx.QueryRow(ctx, `SELECT `+availableExpr, userID, pollID).Scan(&n)
	return n, err
}

// LockBalance serializes balance mutations for one (user, poll) pair via
// a transaction-scoped advisory lock, released automatically at commit
// or rollback.
func (r *Repository) LockBalance(ctx context.Context, tx pgx.Tx, userID, pollID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2, 0))`, userID, pollID)
	return err
}

// InsertVoteIfAffordable appends the vote record only when the derived
// balance covers it. Check and append are a single statement, so a
// concurrent cast holding the same advisory lock cannot interleave.
// Returns false when the balance was insufficient.
func (r *Repository) InsertVoteIfAffordable(ctx context.Context, tx pgx.Tx, v *models.Vote) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO votes (vote_id, poll_id, user_id, option_id, vote_count, amount_paid)
		SELECT $3, $2, $1, $4, $5, $6
		WHERE (`+availableExpr+`) >= $5
	`, v.UserID, v.PollID, v.VoteID, v.OptionID, v.VoteCount, v.AmountPaid)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
