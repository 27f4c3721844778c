package payments

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pollwinner/backend/internal/middleware"
)

// webhookSchema pins down the minimum shape a Cashfree webhook must have
// before we act on it. Anything else is acknowledged and dropped.
const webhookSchema = `{
	"type": "object",
	"required": ["type", "data"],
	"properties": {
		"type": {"type": "string"},
		"data": {
			"type": "object",
			"required": ["order"],
			"properties": {
				"order": {
					"type": "object",
					"required": ["order_id"],
					"properties": {
						"order_id": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}
}`

var compiledWebhookSchema = jsonschema.MustCompileString("webhook.json", webhookSchema)

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type purchaseRequest struct {
	VoteCount int64 `json:"vote_count"`
}

// Purchase handles POST /api/polls/{pollID}/purchase.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	pollID := r.PathValue("pollID")

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.svc.PurchaseVotes(r.Context(), user, pollID, req.VoteCount)
	if err != nil {
		switch {
		case errors.Is(err, ErrPollNotFound):
			http.Error(w, "poll not found", http.StatusNotFound)
		case errors.Is(err, ErrPollNotActive):
			http.Error(w, "poll is not active", http.StatusBadRequest)
		case errors.Is(err, ErrInvalidVoteCount):
			http.Error(w, "vote count must be positive", http.StatusBadRequest)
		default:
			h.log.Error("purchase votes", "error", err, "poll_id", pollID, "user_id", user.UserID)
			http.Error(w, "failed to create purchase", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Webhook handles POST /api/payments/webhook. Cashfree retries on non-2xx,
// so malformed or irrelevant payloads are logged and acknowledged rather
// than rejected.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Warn("webhook: not json", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err := compiledWebhookSchema.Validate(payload); err != nil {
		h.log.Warn("webhook: unexpected shape", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Order struct {
				OrderID string `json:"order_id"`
			} `json:"order"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if event.Type == "PAYMENT_SUCCESS_WEBHOOK" {
		if err := h.svc.ConfirmPurchase(r.Context(), event.Data.Order.OrderID); err != nil {
			h.log.Error("webhook: confirm purchase", "error", err, "order_id", event.Data.Order.OrderID)
			http.Error(w, "failed to process webhook", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
