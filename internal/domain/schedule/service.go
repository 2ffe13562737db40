package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetup-app-go/internal/domain/notification"
)

// GatheringAccess is the narrow slice of the gathering domain a schedule
// needs: whether a user currently holds an approved membership there.
type GatheringAccess interface {
	IsApprovedMember(ctx context.Context, gatheringID, userID string) (bool, error)
}

type Service struct {
	repo       Repository
	gatherings GatheringAccess
	notifier   notification.Notifier
}

func NewService(repo Repository, gatherings GatheringAccess, notifier notification.Notifier) *Service {
	if notifier == nil {
		notifier = notification.NopNotifier{}
	}
	return &Service{repo: repo, gatherings: gatherings, notifier: notifier}
}

type CreateInput struct {
	Title      string
	StartsAt   time.Time
	MaxMembers int
}

// Create inserts the schedule with its creator already joined.
func (s *Service) Create(ctx context.Context, callerID, gatheringID string, input CreateInput) (*Schedule, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.MaxMembers < 1 {
		return nil, fmt.Errorf("max_members must be at least 1")
	}

	allowed, err := s.gatherings.IsApprovedMember(ctx, gatheringID, callerID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	schedule := Schedule{
		ID:             uuid.NewString(),
		GatheringID:    gatheringID,
		CreatorID:      callerID,
		Title:          input.Title,
		StartsAt:       input.StartsAt,
		MaxMembers:     input.MaxMembers,
		CurrentMembers: 1,
	}

	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.CreateSchedule(ctx, &schedule); err != nil {
			return err
		}
		member := Membership{
			ScheduleID:       schedule.ID,
			UserID:           callerID,
			Status:           StatusApproved,
			AttendanceStatus: AttendancePending,
		}
		return tx.CreateMembership(ctx, &member)
	})
	if err != nil {
		return nil, err
	}

	return &schedule, nil
}

func (s *Service) Get(ctx context.Context, scheduleID string) (*Schedule, error) {
	return s.repo.GetSchedule(ctx, scheduleID)
}

func (s *Service) ListByGathering(ctx context.Context, gatheringID string) ([]Schedule, error) {
	return s.repo.ListSchedulesByGathering(ctx, gatheringID)
}

// Join requires an approved membership in the parent gathering. The
// capacity check and the counter increment are one conditional statement
// inside the same transaction as the row insert.
func (s *Service) Join(ctx context.Context, scheduleID, userID string) (*Membership, error) {
	var membership Membership

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		schedule, err := tx.GetSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if schedule.IsCompleted {
			return ErrScheduleCompleted
		}

		allowed, err := s.gatherings.IsApprovedMember(ctx, schedule.GatheringID, userID)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrForbidden
		}

		if _, err := tx.GetMembership(ctx, scheduleID, userID); err == nil {
			return ErrAlreadyMember
		} else if !errors.Is(err, ErrMembershipNotFound) {
			return err
		}

		incremented, err := tx.IncrementMembersWithinCap(ctx, scheduleID)
		if err != nil {
			return err
		}
		if !incremented {
			return ErrScheduleFull
		}

		membership = Membership{
			ScheduleID:       scheduleID,
			UserID:           userID,
			Status:           StatusApproved,
			AttendanceStatus: AttendancePending,
		}

		// A rejoin after organizer handoff left the schedule empty adopts
		// the joiner as the new organizer.
		if schedule.CreatorID == "" {
			if err := tx.UpdateCreator(ctx, scheduleID, userID); err != nil {
				return err
			}
		}

		return tx.CreateMembership(ctx, &membership)
	})
	if err != nil {
		return nil, err
	}

	return &membership, nil
}

// Leave removes the caller's row. When the organizer leaves, the role
// moves to the earliest remaining member; with nobody left the schedule
// keeps an empty organizer until someone rejoins.
func (s *Service) Leave(ctx context.Context, scheduleID, userID string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		schedule, err := tx.GetSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if schedule.IsCompleted {
			return ErrScheduleCompleted
		}

		deleted, err := tx.DeleteMembership(ctx, scheduleID, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrMembershipNotFound
		}
		if err := tx.DecrementMembers(ctx, scheduleID); err != nil {
			return err
		}

		if schedule.CreatorID != userID {
			return nil
		}

		next, err := tx.FirstRemainingMember(ctx, scheduleID, userID)
		if err != nil {
			if errors.Is(err, ErrMembershipNotFound) {
				return tx.UpdateCreator(ctx, scheduleID, "")
			}
			return err
		}
		return tx.UpdateCreator(ctx, scheduleID, next.UserID)
	})
}

// Complete is one-way; afterwards joins and leaves are refused and the
// schedule becomes eligible for evaluation.
func (s *Service) Complete(ctx context.Context, callerID, scheduleID string) error {
	var gatheringID string

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		schedule, err := tx.GetSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if schedule.CreatorID != callerID {
			return ErrNotCreator
		}
		gatheringID = schedule.GatheringID

		changed, err := tx.MarkCompleted(ctx, scheduleID)
		if err != nil {
			return err
		}
		if !changed {
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, notification.Event{
		Type:          notification.TypeScheduleCompleted,
		GatheringID:   gatheringID,
		RelatedUserID: callerID,
	})
	return nil
}

// CancelSchedule deletes an uncompleted schedule and notifies the other
// members.
func (s *Service) CancelSchedule(ctx context.Context, callerID, scheduleID string) error {
	var (
		gatheringID string
		others      []string
	)

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		schedule, err := tx.GetSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if schedule.CreatorID != callerID {
			return ErrNotCreator
		}
		if schedule.IsCompleted {
			return ErrScheduleCompleted
		}
		gatheringID = schedule.GatheringID

		members, err := tx.ListMemberships(ctx, scheduleID)
		if err != nil {
			return err
		}
		for _, member := range members {
			if member.UserID != callerID {
				others = append(others, member.UserID)
			}
		}

		return tx.DeleteSchedule(ctx, scheduleID)
	})
	if err != nil {
		return err
	}

	for _, userID := range others {
		s.notifier.Notify(ctx, notification.Event{
			Type:          notification.TypeScheduleCanceled,
			GatheringID:   gatheringID,
			RelatedUserID: callerID,
			TargetUserID:  userID,
		})
	}
	return nil
}

// SetAttendance toggles the caller's own attendance sub-state. Purely
// informational; the member counter never moves.
func (s *Service) SetAttendance(ctx context.Context, scheduleID, userID, status string) error {
	if status != AttendancePending && status != AttendanceConfirmed {
		return ErrInvalidAttendance
	}

	updated, err := s.repo.UpdateAttendance(ctx, scheduleID, userID, status)
	if err != nil {
		return err
	}
	if !updated {
		return ErrMembershipNotFound
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, scheduleID string) ([]Membership, error) {
	if _, err := s.repo.GetSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}
	return s.repo.ListMemberships(ctx, scheduleID)
}

// IsCompleted and IsMember back the vote ledger's preconditions.
func (s *Service) IsCompleted(ctx context.Context, scheduleID string) (bool, error) {
	schedule, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return false, err
	}
	return schedule.IsCompleted, nil
}

func (s *Service) IsMember(ctx context.Context, scheduleID, userID string) (bool, error) {
	_, err := s.repo.GetMembership(ctx, scheduleID, userID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
