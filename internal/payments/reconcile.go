package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/pollwinner/backend/internal/models"
)

type ReconcilePurchaseArgs struct {
	OrderID string `json:"order_id"`
}

func (ReconcilePurchaseArgs) Kind() string { return "reconcile_purchase" }

// ReconcileWorker resolves pending purchases whose webhook never arrived by
// asking the gateway for the order's final state.
type ReconcileWorker struct {
	river.WorkerDefaults[ReconcilePurchaseArgs]
	gateway Gateway
	store   Store
	log     *slog.Logger
}

func NewReconcileWorker(gateway Gateway, store Store, log *slog.Logger) *ReconcileWorker {
	return &ReconcileWorker{gateway: gateway, store: store, log: log}
}

func (w *ReconcileWorker) Work(ctx context.Context, job *river.Job[ReconcilePurchaseArgs]) error {
	orderID := job.Args.OrderID

	txn, err := w.store.GetPurchaseByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load purchase: %w", err)
	}
	if txn == nil || txn.Status != models.TxnStatusPending {
		// Settled by the webhook in the meantime, or never recorded.
		return nil
	}

	order, err := w.gateway.GetOrder(ctx, orderID)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.StatusCode == 404 {
			// The gateway never accepted this order, it cannot be paid.
			return w.mark(ctx, orderID, models.TxnStatusFailed)
		}
		return fmt.Errorf("fetch order: %w", err)
	}

	switch order.OrderStatus {
	case OrderStatusPaid:
		return w.mark(ctx, orderID, models.TxnStatusSuccess)
	case OrderStatusExpired, OrderStatusTerminated:
		return w.mark(ctx, orderID, models.TxnStatusFailed)
	case OrderStatusActive:
		// Still payable. Erroring lets the queue retry with backoff.
		return fmt.Errorf("order %s still active", orderID)
	default:
		return fmt.Errorf("order %s in unknown state %q", orderID, order.OrderStatus)
	}
}

func (w *ReconcileWorker) mark(ctx context.Context, orderID, status string) error {
	updated, err := w.store.MarkPurchaseByOrder(ctx, orderID, status)
	if err != nil {
		return fmt.Errorf("mark purchase %s: %w", status, err)
	}
	if updated {
		w.log.Info("purchase reconciled", "order_id", orderID, "status", status)
	}
	return nil
}
