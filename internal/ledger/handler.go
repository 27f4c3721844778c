package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pollwinner/backend/internal/middleware"
	"github.com/pollwinner/backend/internal/models"
	"github.com/pollwinner/backend/internal/poll"
)

type CastVoteRequest struct {
	OptionID  string `json:"option_id"`
	VoteCount int64  `json:"vote_count"`
}

// PollGetter is the slice of the poll service the vote handler needs.
type PollGetter interface {
	Get(ctx context.Context, pollID string) (*models.Poll, error)
}

type Handler struct {
	svc   Service
	polls PollGetter
	log   *slog.Logger
}

func NewHandler(svc Service, polls PollGetter, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, polls: polls, log: log}
}

// POST /api/polls/{pollID}/vote
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromCtx(r.Context())
	if user == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	pollID := r.PathValue("pollID")

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.OptionID == "" || req.VoteCount <= 0 {
		http.Error(w, "option_id and a positive vote_count are required", http.StatusBadRequest)
		return
	}

	p, err := h.polls.Get(r.Context(), pollID)
	if err != nil {
		if errors.Is(err, poll.ErrNotFound) {
			http.Error(w, "poll not found", http.StatusNotFound)
			return
		}
		h.log.Error("get poll failed", "error", err, "poll_id", pollID)
		http.Error(w, "failed to fetch poll", http.StatusInternalServerError)
		return
	}

	remaining, err := h.svc.CastVote(r.Context(), user.UserID, p, req.OptionID, req.VoteCount)
	if err != nil {
		var insufficient *InsufficientVotesError
		switch {
		case errors.Is(err, ErrPollNotActive):
			http.Error(w, "poll is not active", http.StatusBadRequest)
		case errors.Is(err, ErrInvalidOption):
			http.Error(w, "invalid option", http.StatusBadRequest)
		case errors.As(err, &insufficient):
			http.Error(w, insufficient.Error(), http.StatusBadRequest)
		default:
			h.log.Error("cast vote failed", "error", err, "poll_id", pollID, "user_id", user.UserID)
			http.Error(w, "failed to cast vote", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message":         "Vote cast successfully",
		"remaining_votes": remaining,
	})
}
