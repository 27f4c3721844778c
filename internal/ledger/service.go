package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pollwinner/backend/internal/models"
)

var (
	// ErrPollNotActive is returned when casting on a closed poll.
	ErrPollNotActive = errors.New("poll is not active")
	// ErrInvalidOption is returned when the option does not belong to the poll.
	ErrInvalidOption = errors.New("invalid option")
)

// InsufficientVotesError reports how many vote-units were actually
// spendable when a cast was rejected.
type InsufficientVotesError struct {
	Available int64
}

func (e *InsufficientVotesError) Error() string {
	return fmt.Sprintf("insufficient votes, available: %d", e.Available)
}

// VoteStore is the minimal storage interface for the ledger service.
type VoteStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	LockBalance(ctx context.Context, tx pgx.Tx, userID, pollID string) error
	InsertVoteIfAffordable(ctx context.Context, tx pgx.Tx, v *models.Vote) (bool, error)
	AvailableUnits(ctx context.Context, userID, pollID string) (int64, error)
	AvailableUnitsTx(ctx context.Context, tx pgx.Tx, userID, pollID string) (int64, error)
}

type Service interface {
	// Available computes purchased-minus-cast for (user, poll).
	Available(ctx context.Context, userID, pollID string) (int64, error)
	// CastVote appends a vote record of size count and returns the
	// remaining balance. The balance check and the append are atomic.
	CastVote(ctx context.Context, userID string, p *models.Poll, optionID string, count int64) (int64, error)
}

type service struct {
	store VoteStore
}

func NewService(store VoteStore) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

func (s *service) Available(ctx context.Context, userID, pollID string) (int64, error) {
	return s.store.AvailableUnits(ctx, userID, pollID)
}

func (s *service) CastVote(ctx context.Context, userID string, p *models.Poll, optionID string, count int64) (int64, error) {
	if p.Status != models.PollStatusActive {
		return 0, ErrPollNotActive
	}
	if _, ok := p.Option(optionID); !ok {
		return 0, ErrInvalidOption
	}
	if count <= 0 {
		return 0, fmt.Errorf("vote count must be positive")
	}

	v := &models.Vote{
		VoteID:     models.NewID("vote"),
		PollID:     p.PollID,
		UserID:     userID,
		OptionID:   optionID,
		VoteCount:  count,
		AmountPaid: count * p.PricePerVote,
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := s.store.LockBalance(ctx, tx, userID, p.PollID); err != nil {
		return 0, err
	}
	inserted, err := s.store.InsertVoteIfAffordable(ctx, tx, v)
	if err != nil {
		return 0, err
	}
	if !inserted {
		available, err := s.store.AvailableUnitsTx(ctx, tx, userID, p.PollID)
		if err != nil {
			available = 0
		}
		return 0, &InsufficientVotesError{Available: available}
	}
	remaining, err := s.store.AvailableUnitsTx(ctx, tx, userID, p.PollID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return remaining, nil
}
