package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	popularitydomain "meetup-app-go/internal/domain/popularity"
	scheduledomain "meetup-app-go/internal/domain/schedule"
	"meetup-app-go/internal/transport/httpserver/middleware"
)

type toggleVoteRequest struct {
	TargetID   string  `json:"target_id"`
	Category   string  `json:"category"`
	Active     bool    `json:"active"`
	ScheduleID *string `json:"schedule_id,omitempty"`
}

type recomputeRequest struct {
	UserIDs []string `json:"user_ids"`
	SinceH  int      `json:"since_hours,omitempty"`
}

type scoreResponse struct {
	UserID     string         `json:"user_id"`
	Total      int            `json:"total"`
	Categories map[string]int `json:"categories"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type voteResponse struct {
	VoterID    string    `json:"voter_id"`
	Category   string    `json:"category"`
	ScheduleID *string   `json:"schedule_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *Handlers) ToggleVote(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	var req toggleVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.TargetID = strings.TrimSpace(req.TargetID)
	if req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "target_id is required")
		return
	}

	err := h.Popularity.ToggleVote(r.Context(), popularitydomain.ToggleInput{
		VoterID:    user.ID,
		TargetID:   req.TargetID,
		Category:   req.Category,
		Active:     req.Active,
		ScheduleID: req.ScheduleID,
	})
	if err != nil {
		switch {
		case errors.Is(err, popularitydomain.ErrSelfVote):
			writeError(w, http.StatusBadRequest, "self_vote", "cannot vote for yourself")
		case errors.Is(err, popularitydomain.ErrUnknownCategory):
			writeError(w, http.StatusBadRequest, "unknown_category", "unknown vote category")
		case errors.Is(err, popularitydomain.ErrNotCompleted):
			h.log.BusinessError("votes.toggle: schedule not completed", err, "voter_id", user.ID, "target_id", req.TargetID)
			writeError(w, http.StatusConflict, "not_completed", "schedule is not completed")
		case errors.Is(err, popularitydomain.ErrNotAMember):
			writeError(w, http.StatusForbidden, "not_a_member", "voter never joined this schedule")
		case errors.Is(err, popularitydomain.ErrRateLimited):
			h.log.BusinessError("votes.toggle: rate limited", err, "voter_id", user.ID, "target_id", req.TargetID)
			writeError(w, http.StatusTooManyRequests, "rate_limited", "daily vote quota exhausted")
		case errors.Is(err, scheduledomain.ErrScheduleNotFound):
			writeError(w, http.StatusNotFound, "schedule_not_found", "schedule not found")
		default:
			h.log.InternalError("votes.toggle: toggle failed", err, "voter_id", user.ID, "target_id", req.TargetID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetScore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	breakdown, err := h.Popularity.GetScore(r.Context(), userID)
	if err != nil {
		h.log.InternalError("scores.get: get failed", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, scoreResponse{
		UserID:     breakdown.UserID,
		Total:      breakdown.Total,
		Categories: breakdown.Categories,
		UpdatedAt:  breakdown.UpdatedAt,
	})
}

func (h *Handlers) ListRecentVotes(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
			return
		}
		limit = parsed
	}

	votes, err := h.Popularity.ListRecentReceived(r.Context(), userID, limit)
	if err != nil {
		h.log.InternalError("scores.recent: list failed", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]voteResponse, 0, len(votes))
	for _, vote := range votes {
		response = append(response, voteResponse{
			VoterID:    vote.VoterID,
			Category:   vote.Category,
			ScheduleID: vote.ScheduleID,
			CreatedAt:  vote.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// RecomputeScores serves both trigger shapes: an explicit user id list, or
// a lookback window over recent vote activity.
func (h *Handlers) RecomputeScores(w http.ResponseWriter, r *http.Request) {
	var req recomputeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	if len(req.UserIDs) > 0 {
		if err := h.Popularity.Recompute(r.Context(), req.UserIDs); err != nil {
			h.log.InternalError("scores.recompute: recompute failed", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"recomputed": len(req.UserIDs)})
		return
	}

	hours := req.SinceH
	if hours <= 0 {
		hours = 24
	}
	count, err := h.Popularity.RecomputeRecent(r.Context(), time.Now().UTC().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		h.log.InternalError("scores.recompute: batch recompute failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"recomputed": count})
}
