package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	gatheringdomain "meetup-app-go/internal/domain/gathering"
	"meetup-app-go/internal/transport/httpserver/middleware"
)

type createGatheringRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	MaxMembers       int    `json:"max_members"`
	ApprovalRequired bool   `json:"approval_required"`
}

type gatheringResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	CreatorID        string    `json:"creator_id"`
	MaxMembers       int       `json:"max_members"`
	CurrentMembers   int       `json:"current_members"`
	ApprovalRequired bool      `json:"approval_required"`
	IsCompleted      bool      `json:"is_completed"`
	CreatedAt        time.Time `json:"created_at"`
}

type membershipResponse struct {
	GatheringID string    `json:"gathering_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handlers) CreateGathering(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	var req createGatheringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}
	if req.MaxMembers < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request", "max_members must be at least 1")
		return
	}

	result, err := h.Gatherings.Create(r.Context(), user.ID, gatheringdomain.CreateInput{
		Title:            req.Title,
		Description:      req.Description,
		MaxMembers:       req.MaxMembers,
		ApprovalRequired: req.ApprovalRequired,
	})
	if err != nil {
		h.log.InternalError("gatherings.create: create failed", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toGatheringResponse(result))
}

func (h *Handlers) GetGathering(w http.ResponseWriter, r *http.Request) {
	gatheringID := chi.URLParam(r, "gathering_id")

	result, err := h.Gatherings.Get(r.Context(), gatheringID)
	if err != nil {
		if errors.Is(err, gatheringdomain.ErrGatheringNotFound) {
			writeError(w, http.StatusNotFound, "gathering_not_found", "gathering not found")
			return
		}
		h.log.InternalError("gatherings.get: get failed", err, "gathering_id", gatheringID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toGatheringResponse(result))
}

func (h *Handlers) ListMyGatherings(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	gatherings, err := h.Gatherings.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.log.InternalError("gatherings.list_mine: list failed", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]gatheringResponse, 0, len(gatherings))
	for i := range gatherings {
		response = append(response, toGatheringResponse(&gatherings[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) DeleteGathering(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	gatheringID := chi.URLParam(r, "gathering_id")

	if err := h.Gatherings.Delete(r.Context(), user.ID, gatheringID); err != nil {
		switch {
		case errors.Is(err, gatheringdomain.ErrGatheringNotFound):
			writeError(w, http.StatusNotFound, "gathering_not_found", "gathering not found")
		case errors.Is(err, gatheringdomain.ErrNotCreator):
			h.log.BusinessError("gatherings.delete: caller is not creator", err, "user_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusForbidden, "not_creator", "only the creator can delete the gathering")
		default:
			h.log.InternalError("gatherings.delete: delete failed", err, "user_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CompleteGathering(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	gatheringID := chi.URLParam(r, "gathering_id")

	if err := h.Gatherings.Complete(r.Context(), user.ID, gatheringID); err != nil {
		switch {
		case errors.Is(err, gatheringdomain.ErrGatheringNotFound):
			writeError(w, http.StatusNotFound, "gathering_not_found", "gathering not found")
		case errors.Is(err, gatheringdomain.ErrNotCreator):
			writeError(w, http.StatusForbidden, "not_creator", "only the creator can complete the gathering")
		case errors.Is(err, gatheringdomain.ErrInvalidState):
			h.log.BusinessError("gatherings.complete: already completed", err, "gathering_id", gatheringID)
			writeError(w, http.StatusConflict, "invalid_state", "gathering already completed")
		default:
			h.log.InternalError("gatherings.complete: complete failed", err, "gathering_id", gatheringID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RequestJoinGathering(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	gatheringID := chi.URLParam(r, "gathering_id")

	membership, err := h.Gatherings.RequestJoin(r.Context(), gatheringID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, gatheringdomain.ErrGatheringNotFound):
			writeError(w, http.StatusNotFound, "gathering_not_found", "gathering not found")
		case errors.Is(err, gatheringdomain.ErrAlreadyMember):
			h.log.BusinessError("gatherings.join: already a member", err, "user_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusConflict, "already_member", "already a member")
		case errors.Is(err, gatheringdomain.ErrGatheringFull):
			h.log.BusinessError("gatherings.join: gathering full", err, "user_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusConflict, "gathering_full", "gathering is full")
		case errors.Is(err, gatheringdomain.ErrGatheringCompleted):
			writeError(w, http.StatusConflict, "gathering_completed", "gathering is completed")
		default:
			h.log.InternalError("gatherings.join: join failed", err, "user_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toMembershipResponse(membership))
}

func (h *Handlers) ApproveMembership(w http.ResponseWriter, r *http.Request) {
	h.decideMembership(w, r, "approve", h.Gatherings.Approve)
}

func (h *Handlers) RejectMembership(w http.ResponseWriter, r *http.Request) {
	h.decideMembership(w, r, "reject", h.Gatherings.Reject)
}

func (h *Handlers) KickMembership(w http.ResponseWriter, r *http.Request) {
	h.decideMembership(w, r, "kick", h.Gatherings.Kick)
}

// decideMembership handles the creator-driven transitions, which share
// their request shape and error mapping.
func (h *Handlers) decideMembership(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, callerID, gatheringID, userID string) error) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	gatheringID := chi.URLParam(r, "gathering_id")
	memberID := chi.URLParam(r, "user_id")

	if err := fn(r.Context(), user.ID, gatheringID, memberID); err != nil {
		switch {
		case errors.Is(err, gatheringdomain.ErrGatheringNotFound):
			writeError(w, http.StatusNotFound, "gathering_not_found", "gathering not found")
		case errors.Is(err, gatheringdomain.ErrMembershipNotFound):
			writeError(w, http.StatusNotFound, "membership_not_found", "membership not found")
		case errors.Is(err, gatheringdomain.ErrNotCreator):
			h.log.BusinessError("gatherings."+action+": caller is not creator", err, "actor_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusForbidden, "not_creator", "only the creator can manage memberships")
		case errors.Is(err, gatheringdomain.ErrCannotKickCreator):
			writeError(w, http.StatusConflict, "cannot_kick_creator", "cannot kick the gathering creator")
		case errors.Is(err, gatheringdomain.ErrInvalidState):
			h.log.BusinessError("gatherings."+action+": invalid state", err, "gathering_id", gatheringID, "member_id", memberID)
			writeError(w, http.StatusConflict, "invalid_state", "transition not legal from current status")
		case errors.Is(err, gatheringdomain.ErrGatheringFull):
			writeError(w, http.StatusConflict, "gathering_full", "gathering is full")
		default:
			h.log.InternalError("gatherings."+action+": failed", err, "gathering_id", gatheringID, "member_id", memberID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CancelMembership(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	gatheringID := chi.URLParam(r, "gathering_id")

	if err := h.Gatherings.Cancel(r.Context(), gatheringID, user.ID); err != nil {
		switch {
		case errors.Is(err, gatheringdomain.ErrMembershipNotFound):
			writeError(w, http.StatusNotFound, "membership_not_found", "membership not found")
		case errors.Is(err, gatheringdomain.ErrCreatorCannotLeave):
			writeError(w, http.StatusConflict, "creator_cannot_leave", "creator cannot leave own gathering")
		case errors.Is(err, gatheringdomain.ErrInvalidState):
			h.log.BusinessError("gatherings.cancel: terminal membership", err, "user_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusConflict, "invalid_state", "kicked or rejected memberships cannot be canceled")
		default:
			h.log.InternalError("gatherings.cancel: leave failed", err, "user_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetMyMembership(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	gatheringID := chi.URLParam(r, "gathering_id")

	membership, err := h.Gatherings.GetMembership(r.Context(), gatheringID, user.ID)
	if err != nil {
		if errors.Is(err, gatheringdomain.ErrMembershipNotFound) {
			writeError(w, http.StatusNotFound, "membership_not_found", "membership not found")
			return
		}
		h.log.InternalError("gatherings.membership: get failed", err, "user_id", user.ID, "gathering_id", gatheringID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toMembershipResponse(membership))
}

func (h *Handlers) ListGatheringMembers(w http.ResponseWriter, r *http.Request) {
	gatheringID := chi.URLParam(r, "gathering_id")
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	members, err := h.Gatherings.ListMembers(r.Context(), gatheringID, status)
	if err != nil {
		if errors.Is(err, gatheringdomain.ErrGatheringNotFound) {
			writeError(w, http.StatusNotFound, "gathering_not_found", "gathering not found")
			return
		}
		h.log.InternalError("gatherings.list_members: list failed", err, "gathering_id", gatheringID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]membershipResponse, 0, len(members))
	for i := range members {
		response = append(response, toMembershipResponse(&members[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func toGatheringResponse(gathering *gatheringdomain.Gathering) gatheringResponse {
	return gatheringResponse{
		ID:               gathering.ID,
		Title:            gathering.Title,
		Description:      gathering.Description,
		CreatorID:        gathering.CreatorID,
		MaxMembers:       gathering.MaxMembers,
		CurrentMembers:   gathering.CurrentMembers,
		ApprovalRequired: gathering.ApprovalRequired,
		IsCompleted:      gathering.IsCompleted,
		CreatedAt:        gathering.CreatedAt,
	}
}

func toMembershipResponse(membership *gatheringdomain.Membership) membershipResponse {
	return membershipResponse{
		GatheringID: membership.GatheringID,
		UserID:      membership.UserID,
		Status:      membership.Status,
		Role:        membership.Role,
		CreatedAt:   membership.CreatedAt,
	}
}
