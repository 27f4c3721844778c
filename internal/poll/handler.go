package poll

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type CreatePollRequest struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Options      []OptionInput `json:"options"`
	PricePerVote int64         `json:"price_per_vote"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// GET /api/polls
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	polls, err := h.svc.ListActive(r.Context())
	if err != nil {
		h.log.Error("list polls failed", "error", err)
		http.Error(w, "failed to fetch polls", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, polls)
}

// GET /api/polls/{pollID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), r.PathValue("pollID"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "poll not found", http.StatusNotFound)
			return
		}
		h.log.Error("get poll failed", "error", err)
		http.Error(w, "failed to fetch poll", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// POST /api/admin/polls
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	var req CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Title == "" || len(req.Options) < 2 || req.PricePerVote <= 0 {
		http.Error(w, "title, at least two options, and a positive price are required", http.StatusBadRequest)
		return
	}
	p, err := h.svc.Create(r.Context(), req.Title, req.Description, req.Options, req.PricePerVote)
	if err != nil {
		h.log.Error("create poll failed", "error", err)
		http.Error(w, "failed to create poll", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PUT /api/admin/polls/{pollID}
func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollID")
	var req CreatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Title == "" || len(req.Options) < 2 || req.PricePerVote <= 0 {
		http.Error(w, "title, at least two options, and a positive price are required", http.StatusBadRequest)
		return
	}
	err := h.svc.Update(r.Context(), pollID, req.Title, req.Description, req.Options, req.PricePerVote)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "poll not found", http.StatusNotFound)
		case errors.Is(err, ErrPollClosed):
			http.Error(w, "poll is already closed", http.StatusConflict)
		default:
			h.log.Error("update poll failed", "error", err, "poll_id", pollID)
			http.Error(w, "failed to update poll", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Poll updated successfully"})
}

// GET /api/admin/polls
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	polls, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.log.Error("list all polls failed", "error", err)
		http.Error(w, "failed to fetch polls", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, polls)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
