package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pollwinner/backend/internal/models"
)

// withdrawalFeePct is the platform's cut on every withdrawal.
const withdrawalFeePct = 10

var (
	ErrNotFound          = errors.New("withdrawal not found")
	ErrAlreadyProcessed  = errors.New("withdrawal already processed")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
)

// Store is the persistence surface the wallet service needs.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetOrCreateWallet(ctx context.Context, userID string) (*models.Wallet, error)
	CreateWithdrawal(ctx context.Context, wd *models.Withdrawal) error
	GetWithdrawalForUpdate(ctx context.Context, tx pgx.Tx, withdrawalID string) (*models.Withdrawal, error)
	DebitIfSufficient(ctx context.Context, tx pgx.Tx, userID string, amount int64) (bool, error)
	MarkWithdrawalProcessed(ctx context.Context, tx pgx.Tx, withdrawalID, status string, notes *string, at time.Time) error
	CreateTransactionTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

type Service interface {
	Get(ctx context.Context, userID string) (*models.Wallet, error)
	RequestWithdrawal(ctx context.Context, userID string, amount int64, upiID string) (*models.Withdrawal, error)
	Approve(ctx context.Context, withdrawalID string) error
	Reject(ctx context.Context, withdrawalID string, notes *string) error
}

type service struct {
	store Store
	log   *slog.Logger
}

var _ Service = (*service)(nil)

func NewService(store Store, log *slog.Logger) Service {
	return &service{store: store, log: log}
}

func (s *service) Get(ctx context.Context, userID string) (*models.Wallet, error) {
	return s.store.GetOrCreateWallet(ctx, userID)
}

// RequestWithdrawal records a pending withdrawal. The balance check here is
// advisory; the authoritative debit happens at approval time.
func (s *service) RequestWithdrawal(ctx context.Context, userID string, amount int64, upiID string) (*models.Withdrawal, error) {
	w, err := s.store.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	if w.Balance < amount {
		return nil, ErrInsufficientFunds
	}

	fee := amount * withdrawalFeePct / 100
	wd := &models.Withdrawal{
		WithdrawalID: models.NewID("withdrawal"),
		UserID:       userID,
		Amount:       amount,
		Fee:          fee,
		NetAmount:    amount - fee,
		UPIID:        upiID,
		Status:       models.WithdrawalStatusPending,
	}
	if err := s.store.CreateWithdrawal(ctx, wd); err != nil {
		return nil, fmt.Errorf("create withdrawal: %w", err)
	}

	s.log.Info("withdrawal requested",
		"withdrawal_id", wd.WithdrawalID,
		"user_id", userID,
		"amount", amount,
		"net_amount", wd.NetAmount)
	return wd, nil
}

// Approve debits the full requested amount and marks the withdrawal approved,
// in a single transaction. The balance is re-checked at debit time so a
// request that no longer fits the wallet is refused rather than overdrawn.
func (s *service) Approve(ctx context.Context, withdrawalID string) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	wd, err := s.store.GetWithdrawalForUpdate(ctx, tx, withdrawalID)
	if err != nil {
		return fmt.Errorf("load withdrawal: %w", err)
	}
	if wd == nil {
		return ErrNotFound
	}
	if wd.Status != models.WithdrawalStatusPending {
		return ErrAlreadyProcessed
	}

	debited, err := s.store.DebitIfSufficient(ctx, tx, wd.UserID, wd.Amount)
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}
	if !debited {
		return ErrInsufficientFunds
	}

	now := time.Now().UTC()
	if err := s.store.MarkWithdrawalProcessed(ctx, tx, withdrawalID, models.WithdrawalStatusApproved, nil, now); err != nil {
		return fmt.Errorf("mark approved: %w", err)
	}
	if err := s.store.CreateTransactionTx(ctx, tx, &models.Transaction{
		TransactionID: models.NewID("txn"),
		UserID:        wd.UserID,
		Type:          models.TxnTypeWithdrawal,
		Amount:        -wd.Amount,
		Status:        models.TxnStatusSuccess,
	}); err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.log.Info("withdrawal approved",
		"withdrawal_id", withdrawalID,
		"user_id", wd.UserID,
		"amount", wd.Amount)
	return nil
}

func (s *service) Reject(ctx context.Context, withdrawalID string, notes *string) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	wd, err := s.store.GetWithdrawalForUpdate(ctx, tx, withdrawalID)
	if err != nil {
		return fmt.Errorf("load withdrawal: %w", err)
	}
	if wd == nil {
		return ErrNotFound
	}
	if wd.Status != models.WithdrawalStatusPending {
		return ErrAlreadyProcessed
	}

	if err := s.store.MarkWithdrawalProcessed(ctx, tx, withdrawalID, models.WithdrawalStatusRejected, notes, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.log.Info("withdrawal rejected", "withdrawal_id", withdrawalID, "user_id", wd.UserID)
	return nil
}
