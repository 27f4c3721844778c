package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/pollwinner/backend/internal/models"
	"github.com/pollwinner/backend/internal/poll"
)

// ---------------------------------------------------------------------------
// Mocks: a gateway with scriptable behavior, an in-memory transaction
// store, and a static poll source.
// ---------------------------------------------------------------------------

type mockGateway struct {
	createErr error
	order     *Order
	getOrder  map[string]*Order
	getErr    error
}

func (g *mockGateway) CreateOrder(_ context.Context, req CreateOrderRequest) (*Order, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.order != nil {
		return g.order, nil
	}
	return &Order{OrderID: req.OrderID, OrderStatus: OrderStatusActive, PaymentSessionID: "session_abc"}, nil
}

func (g *mockGateway) GetOrder(_ context.Context, orderID string) (*Order, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	o, ok := g.getOrder[orderID]
	if !ok {
		return nil, &GatewayError{StatusCode: 404, Body: "order not found"}
	}
	return o, nil
}

type mockStore struct {
	mu   sync.Mutex
	txns map[string]*models.Transaction // keyed by order id
}

func newMockStore() *mockStore {
	return &mockStore{txns: make(map[string]*models.Transaction)}
}

func (m *mockStore) CreateTransaction(_ context.Context, t *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.txns[*t.CashfreeOrderID] = &cp
	return nil
}

func (m *mockStore) GetPurchaseByOrder(_ context.Context, orderID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[orderID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) MarkPurchaseByOrder(_ context.Context, orderID, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[orderID]
	if !ok || t.Status != models.TxnStatusPending {
		return false, nil
	}
	t.Status = status
	return true, nil
}

func (m *mockStore) statusOf(orderID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txns[orderID].Status
}

type mockPolls struct {
	polls map[string]*models.Poll
}

func (m *mockPolls) Get(_ context.Context, pollID string) (*models.Poll, error) {
	p, ok := m.polls[pollID]
	if !ok {
		return nil, poll.ErrNotFound
	}
	return p, nil
}

type enqueueRecorder struct {
	orders []string
	err    error
}

func (e *enqueueRecorder) enqueue(_ context.Context, orderID string) error {
	if e.err != nil {
		return e.err
	}
	e.orders = append(e.orders, orderID)
	return nil
}

func testPoll(pollID string, price int64, status string) *models.Poll {
	return &models.Poll{
		PollID:       pollID,
		Options:      []models.PollOption{{OptionID: "opt_a", Text: "A"}},
		PricePerVote: price,
		Status:       status,
	}
}

func testUser() *models.User {
	return &models.User{UserID: "user_1", Email: "u@example.com", Name: "U"}
}

func newTestService(g Gateway, store Store, polls PollGetter, enq EnqueueReconcileFunc, autoApprove bool) Service {
	return NewService(g, store, polls, enq, "https://app.example.com", autoApprove, slog.Default())
}

// ---------------------------------------------------------------------------
// Purchase flow
// ---------------------------------------------------------------------------

func TestPurchaseCreatesPendingOrder(t *testing.T) {
	store := newMockStore()
	polls := &mockPolls{polls: map[string]*models.Poll{"poll_1": testPoll("poll_1", 100, models.PollStatusActive)}}
	enq := &enqueueRecorder{}
	svc := newTestService(&mockGateway{}, store, polls, enq.enqueue, false)

	result, err := svc.PurchaseVotes(context.Background(), testUser(), "poll_1", 10)
	if err != nil {
		t.Fatalf("PurchaseVotes: %v", err)
	}
	if result.Amount != 1000 {
		t.Errorf("amount = %d, want 1000", result.Amount)
	}
	if result.Status != models.TxnStatusPending {
		t.Errorf("status = %s, want pending", result.Status)
	}
	if result.PaymentSessionID != "session_abc" {
		t.Errorf("payment session = %q", result.PaymentSessionID)
	}
	if !strings.HasPrefix(result.OrderID, "order_user_1_") {
		t.Errorf("order id = %q", result.OrderID)
	}

	txn, _ := store.GetPurchaseByOrder(context.Background(), result.OrderID)
	if txn == nil {
		t.Fatal("no transaction recorded")
	}
	if txn.Type != models.TxnTypePurchase || txn.Status != models.TxnStatusPending {
		t.Errorf("transaction = %+v", txn)
	}
	if txn.VoteCount == nil || *txn.VoteCount != 10 {
		t.Errorf("vote count = %v, want 10", txn.VoteCount)
	}
	if len(enq.orders) != 1 || enq.orders[0] != result.OrderID {
		t.Errorf("reconciliation enqueued = %v", enq.orders)
	}
}

func TestPurchaseGatewayDeclined(t *testing.T) {
	store := newMockStore()
	polls := &mockPolls{polls: map[string]*models.Poll{"poll_1": testPoll("poll_1", 100, models.PollStatusActive)}}
	enq := &enqueueRecorder{}
	gw := &mockGateway{createErr: &GatewayError{StatusCode: 400, Body: "bad request"}}
	svc := newTestService(gw, store, polls, enq.enqueue, false)

	result, err := svc.PurchaseVotes(context.Background(), testUser(), "poll_1", 5)
	if err != nil {
		t.Fatalf("PurchaseVotes: %v", err)
	}
	if result.Status != models.TxnStatusPending {
		t.Errorf("status = %s, want pending", result.Status)
	}
	if result.PaymentLink == "" {
		t.Error("no fallback payment link")
	}
	if len(enq.orders) != 1 {
		t.Errorf("reconciliation enqueued = %v", enq.orders)
	}
}

func TestPurchaseGatewayDownAutoApprove(t *testing.T) {
	store := newMockStore()
	polls := &mockPolls{polls: map[string]*models.Poll{"poll_1": testPoll("poll_1", 100, models.PollStatusActive)}}
	enq := &enqueueRecorder{}
	gw := &mockGateway{createErr: errors.New("dial tcp: connection refused")}
	svc := newTestService(gw, store, polls, enq.enqueue, true)

	result, err := svc.PurchaseVotes(context.Background(), testUser(), "poll_1", 5)
	if err != nil {
		t.Fatalf("PurchaseVotes: %v", err)
	}
	if result.Status != models.TxnStatusSuccess {
		t.Errorf("status = %s, want success under auto-approve", result.Status)
	}
	if store.statusOf(result.OrderID) != models.TxnStatusSuccess {
		t.Error("recorded transaction not success")
	}
	if len(enq.orders) != 0 {
		t.Errorf("reconciliation enqueued = %v, want none", enq.orders)
	}
}

func TestPurchaseGatewayDownHoldPending(t *testing.T) {
	store := newMockStore()
	polls := &mockPolls{polls: map[string]*models.Poll{"poll_1": testPoll("poll_1", 100, models.PollStatusActive)}}
	enq := &enqueueRecorder{}
	gw := &mockGateway{createErr: errors.New("dial tcp: connection refused")}
	svc := newTestService(gw, store, polls, enq.enqueue, false)

	result, err := svc.PurchaseVotes(context.Background(), testUser(), "poll_1", 5)
	if err != nil {
		t.Fatalf("PurchaseVotes: %v", err)
	}
	if result.Status != models.TxnStatusPending {
		t.Errorf("status = %s, want pending without auto-approve", result.Status)
	}
	if len(enq.orders) != 1 {
		t.Errorf("reconciliation enqueued = %v, want one", enq.orders)
	}
}

func TestPurchaseValidation(t *testing.T) {
	store := newMockStore()
	polls := &mockPolls{polls: map[string]*models.Poll{
		"poll_open":   testPoll("poll_open", 100, models.PollStatusActive),
		"poll_closed": testPoll("poll_closed", 100, models.PollStatusClosed),
	}}
	svc := newTestService(&mockGateway{}, store, polls, nil, false)

	if _, err := svc.PurchaseVotes(context.Background(), testUser(), "poll_missing", 1); !errors.Is(err, ErrPollNotFound) {
		t.Errorf("unknown poll: err = %v, want ErrPollNotFound", err)
	}
	if _, err := svc.PurchaseVotes(context.Background(), testUser(), "poll_closed", 1); !errors.Is(err, ErrPollNotActive) {
		t.Errorf("closed poll: err = %v, want ErrPollNotActive", err)
	}
	if _, err := svc.PurchaseVotes(context.Background(), testUser(), "poll_open", 0); !errors.Is(err, ErrInvalidVoteCount) {
		t.Errorf("zero count: err = %v, want ErrInvalidVoteCount", err)
	}
	if len(store.txns) != 0 {
		t.Errorf("transactions recorded = %d, want 0", len(store.txns))
	}
}

func TestConfirmPurchaseIdempotent(t *testing.T) {
	store := newMockStore()
	polls := &mockPolls{polls: map[string]*models.Poll{"poll_1": testPoll("poll_1", 100, models.PollStatusActive)}}
	svc := newTestService(&mockGateway{}, store, polls, nil, false)

	result, err := svc.PurchaseVotes(context.Background(), testUser(), "poll_1", 2)
	if err != nil {
		t.Fatalf("PurchaseVotes: %v", err)
	}

	if err := svc.ConfirmPurchase(context.Background(), result.OrderID); err != nil {
		t.Fatalf("ConfirmPurchase: %v", err)
	}
	if store.statusOf(result.OrderID) != models.TxnStatusSuccess {
		t.Error("purchase not marked success")
	}
	// Duplicate webhook delivery is a no-op.
	if err := svc.ConfirmPurchase(context.Background(), result.OrderID); err != nil {
		t.Fatalf("second ConfirmPurchase: %v", err)
	}
	// Unknown order ids are ignored rather than failed.
	if err := svc.ConfirmPurchase(context.Background(), "order_unknown"); err != nil {
		t.Fatalf("unknown order: %v", err)
	}
}
