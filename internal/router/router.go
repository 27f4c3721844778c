// Package router wires every HTTP endpoint onto a single ServeMux.
package router

import (
	"net/http"

	"github.com/pollwinner/backend/internal/admin"
	"github.com/pollwinner/backend/internal/adminpanel"
	"github.com/pollwinner/backend/internal/auth"
	"github.com/pollwinner/backend/internal/ledger"
	"github.com/pollwinner/backend/internal/middleware"
	"github.com/pollwinner/backend/internal/payments"
	"github.com/pollwinner/backend/internal/poll"
	"github.com/pollwinner/backend/internal/settlement"
	"github.com/pollwinner/backend/internal/wallet"
)

type Handlers struct {
	Auth       *auth.Handler
	Admin      *admin.Handler
	Poll       *poll.Handler
	Ledger     *ledger.Handler
	Settlement *settlement.Handler
	Wallet     *wallet.Handler
	Payments   *payments.Handler
}

// New builds the API handler. sessions guards user endpoints, admins guards
// the admin surface, adminPanelDir points at the built admin SPA (empty
// disables it).
func New(h Handlers, sessions middleware.SessionValidator, admins middleware.AdminTokenValidator, adminPanelDir string) http.Handler {
	mux := http.NewServeMux()

	userAuth := middleware.SessionAuth(sessions)
	adminAuth := middleware.AdminAuth(admins)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Public
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/google/session", h.Auth.ProviderSession)
	mux.HandleFunc("GET /api/polls", h.Poll.ListActive)
	mux.HandleFunc("GET /api/polls/{pollID}", h.Poll.Get)
	mux.HandleFunc("POST /api/payments/webhook", h.Payments.Webhook)

	// Authenticated users
	mux.Handle("GET /api/auth/me", userAuth(http.HandlerFunc(h.Auth.Me)))
	mux.Handle("POST /api/auth/logout", userAuth(http.HandlerFunc(h.Auth.Logout)))
	mux.Handle("PUT /api/profile/upi", userAuth(http.HandlerFunc(h.Auth.UpdateUPI)))
	mux.Handle("POST /api/polls/{pollID}/purchase", userAuth(http.HandlerFunc(h.Payments.Purchase)))
	mux.Handle("POST /api/polls/{pollID}/vote", userAuth(http.HandlerFunc(h.Ledger.CastVote)))
	mux.Handle("GET /api/wallet", userAuth(http.HandlerFunc(h.Wallet.Get)))
	mux.Handle("GET /api/transactions", userAuth(http.HandlerFunc(h.Wallet.ListTransactions)))
	mux.Handle("POST /api/withdrawal/request", userAuth(http.HandlerFunc(h.Wallet.RequestWithdrawal)))
	mux.Handle("GET /api/withdrawal/history", userAuth(http.HandlerFunc(h.Wallet.WithdrawalHistory)))

	// Admin, token issued by login
	mux.HandleFunc("POST /api/auth/admin/register", h.Admin.Register)
	mux.HandleFunc("POST /api/auth/admin/login", h.Admin.Login)
	mux.Handle("POST /api/admin/polls", adminAuth(http.HandlerFunc(h.Poll.AdminCreate)))
	mux.Handle("GET /api/admin/polls", adminAuth(http.HandlerFunc(h.Poll.AdminList)))
	mux.Handle("PUT /api/admin/polls/{pollID}", adminAuth(http.HandlerFunc(h.Poll.AdminUpdate)))
	mux.Handle("POST /api/admin/polls/{pollID}/result", adminAuth(http.HandlerFunc(h.Settlement.SetResult)))
	mux.Handle("GET /api/admin/users", adminAuth(http.HandlerFunc(h.Admin.ListUsers)))
	mux.Handle("GET /api/admin/analytics", adminAuth(http.HandlerFunc(h.Admin.Analytics)))
	mux.Handle("GET /api/admin/transactions", adminAuth(http.HandlerFunc(h.Wallet.AdminListTransactions)))
	mux.Handle("GET /api/admin/withdrawals", adminAuth(http.HandlerFunc(h.Wallet.AdminListWithdrawals)))
	mux.Handle("PUT /api/admin/withdrawals/{withdrawalID}/approve", adminAuth(http.HandlerFunc(h.Wallet.Approve)))
	mux.Handle("PUT /api/admin/withdrawals/{withdrawalID}/reject", adminAuth(http.HandlerFunc(h.Wallet.Reject)))

	if adminPanelDir != "" {
		mux.Handle("/admin/", adminpanel.Handler(adminPanelDir))
	}

	return mux
}
