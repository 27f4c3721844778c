package settlement

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pollwinner/backend/internal/models"
)

var (
	// ErrPollNotFound is returned for unknown poll ids.
	ErrPollNotFound = errors.New("poll not found")
	// ErrPollClosed is returned when settling an already-closed poll.
	ErrPollClosed = errors.New("poll is already closed")
	// ErrInvalidOption is returned when the winning option does not belong to the poll.
	ErrInvalidOption = errors.New("invalid winning option")
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PollStore locks and closes polls. GetForUpdate must hold the poll row
// lock for the remainder of the transaction so concurrent settlements
// serialize on it.
type PollStore interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, pollID string) (*models.Poll, error)
	Close(ctx context.Context, tx pgx.Tx, pollID, winningOptionID string, closedAt time.Time) error
}

// VoteStore reads the full vote ledger of a poll.
type VoteStore interface {
	ListByPoll(ctx context.Context, tx pgx.Tx, pollID string) ([]*models.Vote, error)
}

// WalletStore credits payout amounts to user wallets.
type WalletStore interface {
	Credit(ctx context.Context, tx pgx.Tx, userID string, amount int64) error
}

// TxnStore appends payout transaction records.
type TxnStore interface {
	Create(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// Summary reports what a settlement did. Pool is the total losing stake;
// Distributed is what was actually paid out. With integer paise the two
// differ by the division remainder, which the house retains.
type Summary struct {
	PollID            string `json:"poll_id"`
	WinningOptionID   string `json:"winning_option_id"`
	WinnersCount      int    `json:"winners_count"`
	TotalWinningUnits int64  `json:"total_winning_units"`
	Pool              int64  `json:"pool"`
	Distributed       int64  `json:"total_distributed"`
	PerUnitShare      int64  `json:"per_unit_share"`
}

// Engine closes a poll and redistributes the losing stake to winning
// voters pro-rata by vote-units. The whole settlement runs in a single
// database transaction: either every winner is paid and the poll is
// closed, or nothing happened.
type Engine struct {
	db      TxBeginner
	polls   PollStore
	votes   VoteStore
	wallets WalletStore
	txns    TxnStore
	log     *slog.Logger
}

func NewEngine(db TxBeginner, polls PollStore, votes VoteStore, wallets WalletStore, txns TxnStore, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{db: db, polls: polls, votes: votes, wallets: wallets, txns: txns, log: log}
}

func (e *Engine) Settle(ctx context.Context, pollID, winningOptionID string) (*Summary, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := e.polls.GetForUpdate(ctx, tx, pollID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPollNotFound
	}
	// The row lock taken above makes this check authoritative: a second
	// settlement blocks on GetForUpdate and then sees status closed.
	if p.Status != models.PollStatusActive {
		return nil, ErrPollClosed
	}
	if _, ok := p.Option(winningOptionID); !ok {
		return nil, ErrInvalidOption
	}

	votes, err := e.votes.ListByPoll(ctx, tx, pollID)
	if err != nil {
		return nil, err
	}

	var pool, totalWinningUnits int64
	winningUnits := make(map[string]int64)
	for _, v := range votes {
		if v.OptionID == winningOptionID {
			totalWinningUnits += v.VoteCount
			winningUnits[v.UserID] += v.VoteCount
		} else {
			pool += v.AmountPaid
		}
	}

	summary := &Summary{
		PollID:            pollID,
		WinningOptionID:   winningOptionID,
		TotalWinningUnits: totalWinningUnits,
		Pool:              pool,
	}

	// No winning votes: the pool is retained by the house, by policy.
	// The poll still closes below.
	if totalWinningUnits > 0 {
		perUnit := pool / totalWinningUnits
		summary.PerUnitShare = perUnit

		// Deterministic payout order keeps concurrent wallet writers
		// from deadlocking and makes settlements reproducible.
		userIDs := make([]string, 0, len(winningUnits))
		for uid := range winningUnits {
			userIDs = append(userIDs, uid)
		}
		sort.Strings(userIDs)

		for _, uid := range userIDs {
			payout := perUnit * winningUnits[uid]
			if payout <= 0 {
				continue
			}
			if err := e.wallets.Credit(ctx, tx, uid, payout); err != nil {
				return nil, err
			}
			if err := e.txns.Create(ctx, tx, &models.Transaction{
				TransactionID: models.NewID("txn"),
				UserID:        uid,
				Type:          models.TxnTypeWin,
				Amount:        payout,
				Status:        models.TxnStatusSuccess,
				PollID:        &pollID,
			}); err != nil {
				return nil, err
			}
			summary.WinnersCount++
			summary.Distributed += payout
		}
	}

	if err := e.polls.Close(ctx, tx, pollID, winningOptionID, time.Now()); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	e.log.Info("poll settled",
		"poll_id", pollID,
		"winning_option_id", winningOptionID,
		"pool", summary.Pool,
		"distributed", summary.Distributed,
		"winners", summary.WinnersCount,
	)
	return summary, nil
}
