package models

import "time"

// Transaction type enums.
const (
	TxnTypePurchase   = "purchase"
	TxnTypeWin        = "win"
	TxnTypeWithdrawal = "withdrawal"
)

// Transaction status enums. Only success purchases count toward a
// user's spendable vote balance.
const (
	TxnStatusPending = "pending"
	TxnStatusSuccess = "success"
	TxnStatusFailed  = "failed"
)

// Withdrawal status enums.
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusApproved = "approved"
	WithdrawalStatusRejected = "rejected"
)

type Wallet struct {
	WalletID  string    `json:"wallet_id"`
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is an append-only ledger record. Purchases carry the
// vote-unit count and the gateway order id; win payouts carry the poll;
// withdrawal debits have a negative amount.
type Transaction struct {
	TransactionID   string    `json:"transaction_id"`
	UserID          string    `json:"user_id"`
	Type            string    `json:"type"`
	Amount          int64     `json:"amount"`
	Status          string    `json:"status"`
	PollID          *string   `json:"poll_id,omitempty"`
	VoteCount       *int64    `json:"vote_count,omitempty"`
	CashfreeOrderID *string   `json:"cashfree_order_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Withdrawal struct {
	WithdrawalID string     `json:"withdrawal_id"`
	UserID       string     `json:"user_id"`
	Amount       int64      `json:"amount"`
	Fee          int64      `json:"fee"`
	NetAmount    int64      `json:"net_amount"`
	UPIID        string     `json:"upi_id"`
	Status       string     `json:"status"`
	AdminNotes   *string    `json:"admin_notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}
