package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	gatheringdomain "meetup-app-go/internal/domain/gathering"
	scheduledomain "meetup-app-go/internal/domain/schedule"
	"meetup-app-go/internal/transport/httpserver/middleware"
)

type createScheduleRequest struct {
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	MaxMembers int       `json:"max_members"`
}

type setAttendanceRequest struct {
	AttendanceStatus string `json:"attendance_status"`
}

type scheduleResponse struct {
	ID             string    `json:"id"`
	GatheringID    string    `json:"gathering_id"`
	CreatorID      string    `json:"creator_id"`
	Title          string    `json:"title"`
	StartsAt       time.Time `json:"starts_at"`
	MaxMembers     int       `json:"max_members"`
	CurrentMembers int       `json:"current_members"`
	IsCompleted    bool      `json:"is_completed"`
	CreatedAt      time.Time `json:"created_at"`
}

type scheduleMemberResponse struct {
	ScheduleID       string    `json:"schedule_id"`
	UserID           string    `json:"user_id"`
	Status           string    `json:"status"`
	AttendanceStatus string    `json:"attendance_status"`
	CreatedAt        time.Time `json:"created_at"`
}

func (h *Handlers) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	gatheringID := chi.URLParam(r, "gathering_id")

	var req createScheduleRequest
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

	result, err := h.Schedules.Create(r.Context(), user.ID, gatheringID, scheduledomain.CreateInput{
		Title:      req.Title,
		StartsAt:   req.StartsAt,
		MaxMembers: req.MaxMembers,
	})
	if err != nil {
		switch {
		case errors.Is(err, gatheringdomain.ErrGatheringNotFound):
			writeError(w, http.StatusNotFound, "gathering_not_found", "gathering not found")
		case errors.Is(err, scheduledomain.ErrForbidden):
			h.log.BusinessError("schedules.create: not a gathering member", err, "user_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusForbidden, "forbidden", "approved gathering membership required")
		default:
			h.log.InternalError("schedules.create: create failed", err, "user_id", user.ID, "gathering_id", gatheringID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toScheduleResponse(result))
}

func (h *Handlers) GetSchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID := chi.URLParam(r, "schedule_id")

	result, err := h.Schedules.Get(r.Context(), scheduleID)
	if err != nil {
		if errors.Is(err, scheduledomain.ErrScheduleNotFound) {
			writeError(w, http.StatusNotFound, "schedule_not_found", "schedule not found")
			return
		}
		h.log.InternalError("schedules.get: get failed", err, "schedule_id", scheduleID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(result))
}

func (h *Handlers) ListSchedules(w http.ResponseWriter, r *http.Request) {
	gatheringID := chi.URLParam(r, "gathering_id")

	schedules, err := h.Schedules.ListByGathering(r.Context(), gatheringID)
	if err != nil {
		h.log.InternalError("schedules.list: list failed", err, "gathering_id", gatheringID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]scheduleResponse, 0, len(schedules))
	for i := range schedules {
		response = append(response, toScheduleResponse(&schedules[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) JoinSchedule(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	scheduleID := chi.URLParam(r, "schedule_id")

	membership, err := h.Schedules.Join(r.Context(), scheduleID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, scheduledomain.ErrScheduleNotFound):
			writeError(w, http.StatusNotFound, "schedule_not_found", "schedule not found")
		case errors.Is(err, gatheringdomain.ErrGatheringNotFound):
			writeError(w, http.StatusNotFound, "gathering_not_found", "gathering not found")
		case errors.Is(err, scheduledomain.ErrForbidden):
			h.log.BusinessError("schedules.join: not a gathering member", err, "user_id", user.ID, "schedule_id", scheduleID)
			writeError(w, http.StatusForbidden, "forbidden", "approved gathering membership required")
		case errors.Is(err, scheduledomain.ErrAlreadyMember):
			writeError(w, http.StatusConflict, "already_member", "already joined schedule")
		case errors.Is(err, scheduledomain.ErrScheduleFull):
			writeError(w, http.StatusConflict, "schedule_full", "schedule is full")
		case errors.Is(err, scheduledomain.ErrScheduleCompleted):
			writeError(w, http.StatusConflict, "schedule_completed", "schedule is completed")
		default:
			h.log.InternalError("schedules.join: join failed", err, "user_id", user.ID, "schedule_id", scheduleID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toScheduleMemberResponse(membership))
}

func (h *Handlers) LeaveSchedule(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	scheduleID := chi.URLParam(r, "schedule_id")

	if err := h.Schedules.Leave(r.Context(), scheduleID, user.ID); err != nil {
		switch {
		case errors.Is(err, scheduledomain.ErrScheduleNotFound):
			writeError(w, http.StatusNotFound, "schedule_not_found", "schedule not found")
		case errors.Is(err, scheduledomain.ErrMembershipNotFound):
			writeError(w, http.StatusNotFound, "membership_not_found", "schedule membership not found")
		case errors.Is(err, scheduledomain.ErrScheduleCompleted):
			writeError(w, http.StatusConflict, "schedule_completed", "schedule is completed")
		default:
			h.log.InternalError("schedules.leave: leave failed", err, "user_id", user.ID, "schedule_id", scheduleID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CompleteSchedule(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	scheduleID := chi.URLParam(r, "schedule_id")

	if err := h.Schedules.Complete(r.Context(), user.ID, scheduleID); err != nil {
		switch {
		case errors.Is(err, scheduledomain.ErrScheduleNotFound):
			writeError(w, http.StatusNotFound, "schedule_not_found", "schedule not found")
		case errors.Is(err, scheduledomain.ErrNotCreator):
			writeError(w, http.StatusForbidden, "not_creator", "only the organizer can complete the schedule")
		case errors.Is(err, scheduledomain.ErrInvalidState):
			h.log.BusinessError("schedules.complete: already completed", err, "schedule_id", scheduleID)
			writeError(w, http.StatusConflict, "invalid_state", "schedule already completed")
		default:
			h.log.InternalError("schedules.complete: complete failed", err, "schedule_id", scheduleID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CancelSchedule(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	scheduleID := chi.URLParam(r, "schedule_id")

	if err := h.Schedules.CancelSchedule(r.Context(), user.ID, scheduleID); err != nil {
		switch {
		case errors.Is(err, scheduledomain.ErrScheduleNotFound):
			writeError(w, http.StatusNotFound, "schedule_not_found", "schedule not found")
		case errors.Is(err, scheduledomain.ErrNotCreator):
			writeError(w, http.StatusForbidden, "not_creator", "only the organizer can cancel the schedule")
		case errors.Is(err, scheduledomain.ErrScheduleCompleted):
			writeError(w, http.StatusConflict, "schedule_completed", "completed schedules cannot be canceled")
		default:
			h.log.InternalError("schedules.cancel: cancel failed", err, "schedule_id", scheduleID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetAttendance(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	scheduleID := chi.URLParam(r, "schedule_id")

	var req setAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	if err := h.Schedules.SetAttendance(r.Context(), scheduleID, user.ID, req.AttendanceStatus); err != nil {
		switch {
		case errors.Is(err, scheduledomain.ErrInvalidAttendance):
			writeError(w, http.StatusBadRequest, "invalid_request", "attendance_status must be pending or confirmed")
		case errors.Is(err, scheduledomain.ErrMembershipNotFound):
			writeError(w, http.StatusNotFound, "membership_not_found", "schedule membership not found")
		default:
			h.log.InternalError("schedules.attendance: update failed", err, "user_id", user.ID, "schedule_id", scheduleID)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListScheduleMembers(w http.ResponseWriter, r *http.Request) {
	scheduleID := chi.URLParam(r, "schedule_id")

	members, err := h.Schedules.ListMembers(r.Context(), scheduleID)
	if err != nil {
		if errors.Is(err, scheduledomain.ErrScheduleNotFound) {
			writeError(w, http.StatusNotFound, "schedule_not_found", "schedule not found")
			return
		}
		h.log.InternalError("schedules.list_members: list failed", err, "schedule_id", scheduleID)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]scheduleMemberResponse, 0, len(members))
	for i := range members {
		response = append(response, toScheduleMemberResponse(&members[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func toScheduleResponse(schedule *scheduledomain.Schedule) scheduleResponse {
	return scheduleResponse{
		ID:             schedule.ID,
		GatheringID:    schedule.GatheringID,
		CreatorID:      schedule.CreatorID,
		Title:          schedule.Title,
		StartsAt:       schedule.StartsAt,
		MaxMembers:     schedule.MaxMembers,
		CurrentMembers: schedule.CurrentMembers,
		IsCompleted:    schedule.IsCompleted,
		CreatedAt:      schedule.CreatedAt,
	}
}

func toScheduleMemberResponse(membership *scheduledomain.Membership) scheduleMemberResponse {
	return scheduleMemberResponse{
		ScheduleID:       membership.ScheduleID,
		UserID:           membership.UserID,
		Status:           membership.Status,
		AttendanceStatus: membership.AttendanceStatus,
		CreatedAt:        membership.CreatedAt,
	}
}
