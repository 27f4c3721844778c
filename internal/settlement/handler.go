package settlement

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type SetResultRequest struct {
	WinningOptionID string `json:"winning_option_id"`
}

type Handler struct {
	engine *Engine
	log    *slog.Logger
}

func NewHandler(engine *Engine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{engine: engine, log: log}
}

// POST /api/admin/polls/{pollID}/result
func (h *Handler) SetResult(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollID")

	var req SetResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.WinningOptionID == "" {
		http.Error(w, "winning_option_id required", http.StatusBadRequest)
		return
	}

	summary, err := h.engine.Settle(r.Context(), pollID, req.WinningOptionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPollNotFound):
			http.Error(w, "poll not found", http.StatusNotFound)
		case errors.Is(err, ErrPollClosed):
			http.Error(w, "poll is already closed", http.StatusConflict)
		case errors.Is(err, ErrInvalidOption):
			http.Error(w, "invalid winning option", http.StatusBadRequest)
		default:
			h.log.Error("settlement failed", "error", err, "poll_id", pollID)
			http.Error(w, "settlement failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message":           "Poll result set successfully",
		"winners_count":     summary.WinnersCount,
		"total_distributed": summary.Distributed,
		"pool":              summary.Pool,
	})
}
