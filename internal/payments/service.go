package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pollwinner/backend/internal/models"
	"github.com/pollwinner/backend/internal/poll"
)

var (
	ErrPollNotFound     = errors.New("poll not found")
	ErrPollNotActive    = errors.New("poll is not active")
	ErrInvalidVoteCount = errors.New("vote count must be positive")
)

// Gateway is the slice of the payment provider the purchase flow needs.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

// Store is the persistence surface for purchase transactions.
type Store interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	GetPurchaseByOrder(ctx context.Context, orderID string) (*models.Transaction, error)
	MarkPurchaseByOrder(ctx context.Context, orderID, status string) (bool, error)
}

// PollGetter resolves polls without pulling in the whole poll service.
type PollGetter interface {
	Get(ctx context.Context, pollID string) (*models.Poll, error)
}

// EnqueueReconcileFunc schedules a background reconciliation for an order
// whose final state is not yet known. Wired to the job queue in main.
type EnqueueReconcileFunc func(ctx context.Context, orderID string) error

// PurchaseResult is what the purchase endpoint returns to the client.
type PurchaseResult struct {
	TransactionID    string `json:"transaction_id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
	PaymentSessionID string `json:"payment_session_id,omitempty"`
	PaymentLink      string `json:"payment_link,omitempty"`
}

type Service interface {
	PurchaseVotes(ctx context.Context, user *models.User, pollID string, voteCount int64) (*PurchaseResult, error)
	ConfirmPurchase(ctx context.Context, orderID string) error
}

type service struct {
	gateway       Gateway
	store         Store
	polls         PollGetter
	enqueue       EnqueueReconcileFunc
	returnURLBase string
	autoApprove   bool
	log           *slog.Logger
}

var _ Service = (*service)(nil)

func NewService(gateway Gateway, store Store, polls PollGetter, enqueue EnqueueReconcileFunc, returnURLBase string, autoApprove bool, log *slog.Logger) Service {
	return &service{
		gateway:       gateway,
		store:         store,
		polls:         polls,
		enqueue:       enqueue,
		returnURLBase: returnURLBase,
		autoApprove:   autoApprove,
		log:           log,
	}
}

// PurchaseVotes opens a payment order for voteCount units on a poll and
// records a purchase transaction. The transaction is created pending and
// flipped to success by the payment webhook or the reconciliation worker.
// When the gateway itself is unreachable the configured policy decides
// whether the purchase is approved immediately or held pending.
func (s *service) PurchaseVotes(ctx context.Context, user *models.User, pollID string, voteCount int64) (*PurchaseResult, error) {
	if voteCount <= 0 {
		return nil, ErrInvalidVoteCount
	}
	p, err := s.polls.Get(ctx, pollID)
	if err != nil {
		if errors.Is(err, poll.ErrNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("load poll: %w", err)
	}
	if p.Status != models.PollStatusActive {
		return nil, ErrPollNotActive
	}

	amount := voteCount * p.PricePerVote
	orderID := fmt.Sprintf("order_%s_%d", user.UserID, time.Now().UnixMilli())

	txn := &models.Transaction{
		TransactionID:   models.NewID("txn"),
		UserID:          user.UserID,
		Type:            models.TxnTypePurchase,
		Amount:          amount,
		Status:          models.TxnStatusPending,
		PollID:          &pollID,
		VoteCount:       &voteCount,
		CashfreeOrderID: &orderID,
	}
	result := &PurchaseResult{
		TransactionID: txn.TransactionID,
		OrderID:       orderID,
		Amount:        amount,
	}

	order, err := s.gateway.CreateOrder(ctx, CreateOrderRequest{
		OrderID:       orderID,
		AmountPaise:   amount,
		CustomerID:    user.UserID,
		CustomerEmail: user.Email,
		CustomerName:  user.Name,
		ReturnURL:     s.returnURLBase + "/payment/return?order_id=" + orderID,
	})

	reconcile := false
	var gwErr *GatewayError
	switch {
	case err == nil:
		result.PaymentSessionID = order.PaymentSessionID
		reconcile = true
	case errors.As(err, &gwErr):
		// The gateway answered but refused the order. Hand the client a
		// hosted checkout link and let reconciliation sort out the state.
		s.log.Warn("gateway declined order",
			"order_id", orderID, "status", gwErr.StatusCode)
		result.PaymentLink = "https://sandbox.cashfree.com/pg/view/order/" + orderID
		reconcile = true
	default:
		// Transport failure. Policy decides between approving the purchase
		// outright and holding it pending for reconciliation.
		s.log.Error("gateway unreachable", "error", err, "order_id", orderID)
		if s.autoApprove {
			txn.Status = models.TxnStatusSuccess
		} else {
			reconcile = true
		}
	}
	result.Status = txn.Status

	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("record purchase: %w", err)
	}
	if reconcile && s.enqueue != nil {
		if err := s.enqueue(ctx, orderID); err != nil {
			// The webhook remains as the fallback path.
			s.log.Error("enqueue reconciliation", "error", err, "order_id", orderID)
		}
	}

	s.log.Info("purchase created",
		"order_id", orderID,
		"user_id", user.UserID,
		"poll_id", pollID,
		"vote_count", voteCount,
		"amount", amount,
		"status", txn.Status)
	return result, nil
}

// ConfirmPurchase marks the purchase behind a gateway order as paid.
// Already-confirmed orders are a no-op.
func (s *service) ConfirmPurchase(ctx context.Context, orderID string) error {
	updated, err := s.store.MarkPurchaseByOrder(ctx, orderID, models.TxnStatusSuccess)
	if err != nil {
		return fmt.Errorf("confirm purchase: %w", err)
	}
	if updated {
		s.log.Info("purchase confirmed", "order_id", orderID)
	}
	return nil
}
