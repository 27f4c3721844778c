package wallet

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pollwinner/backend/internal/middleware"
)

type Handler struct {
	svc  Service
	repo *Repository
	log  *slog.Logger
}

func NewHandler(svc Service, repo *Repository, log *slog.Logger) *Handler {
	return &Handler{svc: svc, repo: repo, log: log}
}

// Get handles GET /api/wallet.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	wallet, err := h.svc.Get(r.Context(), user.UserID)
	if err != nil {
		h.log.Error("get wallet", "error", err, "user_id", user.UserID)
		http.Error(w, "failed to load wallet", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// ListTransactions handles GET /api/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	txns, err := h.repo.ListTransactionsByUser(r.Context(), user.UserID)
	if err != nil {
		h.log.Error("list transactions", "error", err, "user_id", user.UserID)
		http.Error(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

type withdrawalRequest struct {
	Amount int64  `json:"amount"`
	UPIID  string `json:"upi_id"`
}

// RequestWithdrawal handles POST /api/withdrawal/request.
func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}
	if req.UPIID == "" {
		http.Error(w, "upi_id is required", http.StatusBadRequest)
		return
	}

	wd, err := h.svc.RequestWithdrawal(r.Context(), user.UserID, req.Amount, req.UPIID)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			http.Error(w, "insufficient wallet balance", http.StatusBadRequest)
			return
		}
		h.log.Error("request withdrawal", "error", err, "user_id", user.UserID)
		http.Error(w, "failed to create withdrawal", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

// WithdrawalHistory handles GET /api/withdrawal/history.
func (h *Handler) WithdrawalHistory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	list, err := h.repo.ListWithdrawalsByUser(r.Context(), user.UserID)
	if err != nil {
		h.log.Error("withdrawal history", "error", err, "user_id", user.UserID)
		http.Error(w, "failed to load withdrawals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": list})
}

// AdminListTransactions handles GET /api/admin/transactions.
func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.repo.ListAllTransactions(r.Context())
	if err != nil {
		h.log.Error("admin list transactions", "error", err)
		http.Error(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txns})
}

// AdminListWithdrawals handles GET /api/admin/withdrawals.
func (h *Handler) AdminListWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListAllWithdrawals(r.Context())
	if err != nil {
		h.log.Error("admin list withdrawals", "error", err)
		http.Error(w, "failed to load withdrawals", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": list})
}

// Approve handles PUT /api/admin/withdrawals/{withdrawalID}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	withdrawalID := r.PathValue("withdrawalID")
	if err := h.svc.Approve(r.Context(), withdrawalID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "withdrawal not found", http.StatusNotFound)
		case errors.Is(err, ErrAlreadyProcessed):
			http.Error(w, "withdrawal already processed", http.StatusConflict)
		case errors.Is(err, ErrInsufficientFunds):
			http.Error(w, "user balance no longer covers this withdrawal", http.StatusBadRequest)
		default:
			h.log.Error("approve withdrawal", "error", err, "withdrawal_id", withdrawalID)
			http.Error(w, "failed to approve withdrawal", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Withdrawal approved"})
}

type rejectRequest struct {
	Notes *string `json:"notes"`
}

// Reject handles PUT /api/admin/withdrawals/{withdrawalID}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	withdrawalID := r.PathValue("withdrawalID")

	var req rejectRequest
	if r.Body != nil {
		// Notes are optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.svc.Reject(r.Context(), withdrawalID, req.Notes); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "withdrawal not found", http.StatusNotFound)
		case errors.Is(err, ErrAlreadyProcessed):
			http.Error(w, "withdrawal already processed", http.StatusConflict)
		default:
			h.log.Error("reject withdrawal", "error", err, "withdrawal_id", withdrawalID)
			http.Error(w, "failed to reject withdrawal", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Withdrawal rejected"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
