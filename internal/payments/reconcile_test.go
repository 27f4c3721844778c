package payments

import (
	"context"
	"log/slog"
	"testing"

	"github.com/riverqueue/river"

	"github.com/pollwinner/backend/internal/models"
)

func pendingPurchase(store *mockStore, orderID string) {
	oid := orderID
	count := int64(1)
	store.txns[orderID] = &models.Transaction{
		TransactionID:   models.NewID("txn"),
		UserID:          "user_1",
		Type:            models.TxnTypePurchase,
		Amount:          100,
		Status:          models.TxnStatusPending,
		VoteCount:       &count,
		CashfreeOrderID: &oid,
	}
}

func reconcileJob(orderID string) *river.Job[ReconcilePurchaseArgs] {
	return &river.Job[ReconcilePurchaseArgs]{Args: ReconcilePurchaseArgs{OrderID: orderID}}
}

func TestReconcilePaidOrder(t *testing.T) {
	store := newMockStore()
	pendingPurchase(store, "order_1")
	gw := &mockGateway{getOrder: map[string]*Order{
		"order_1": {OrderID: "order_1", OrderStatus: OrderStatusPaid},
	}}
	w := NewReconcileWorker(gw, store, slog.Default())

	if err := w.Work(context.Background(), reconcileJob("order_1")); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if store.statusOf("order_1") != models.TxnStatusSuccess {
		t.Errorf("status = %s, want success", store.statusOf("order_1"))
	}
}

func TestReconcileExpiredOrder(t *testing.T) {
	store := newMockStore()
	pendingPurchase(store, "order_1")
	gw := &mockGateway{getOrder: map[string]*Order{
		"order_1": {OrderID: "order_1", OrderStatus: OrderStatusExpired},
	}}
	w := NewReconcileWorker(gw, store, slog.Default())

	if err := w.Work(context.Background(), reconcileJob("order_1")); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if store.statusOf("order_1") != models.TxnStatusFailed {
		t.Errorf("status = %s, want failed", store.statusOf("order_1"))
	}
}

func TestReconcileActiveOrderRetries(t *testing.T) {
	store := newMockStore()
	pendingPurchase(store, "order_1")
	gw := &mockGateway{getOrder: map[string]*Order{
		"order_1": {OrderID: "order_1", OrderStatus: OrderStatusActive},
	}}
	w := NewReconcileWorker(gw, store, slog.Default())

	if err := w.Work(context.Background(), reconcileJob("order_1")); err == nil {
		t.Fatal("expected error so the queue retries an active order")
	}
	if store.statusOf("order_1") != models.TxnStatusPending {
		t.Errorf("status = %s, want still pending", store.statusOf("order_1"))
	}
}

func TestReconcileUnknownOrderFails(t *testing.T) {
	// The gateway never saw the order, so it can never be paid.
	store := newMockStore()
	pendingPurchase(store, "order_1")
	gw := &mockGateway{getOrder: map[string]*Order{}}
	w := NewReconcileWorker(gw, store, slog.Default())

	if err := w.Work(context.Background(), reconcileJob("order_1")); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if store.statusOf("order_1") != models.TxnStatusFailed {
		t.Errorf("status = %s, want failed", store.statusOf("order_1"))
	}
}

func TestReconcileAlreadySettledOrder(t *testing.T) {
	store := newMockStore()
	pendingPurchase(store, "order_1")
	store.txns["order_1"].Status = models.TxnStatusSuccess
	w := NewReconcileWorker(&mockGateway{}, store, slog.Default())

	if err := w.Work(context.Background(), reconcileJob("order_1")); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if store.statusOf("order_1") != models.TxnStatusSuccess {
		t.Error("settled order changed state")
	}
}
