package gathering

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"meetup-app-go/internal/domain/notification"
)

type Service struct {
	repo     Repository
	notifier notification.Notifier
}

func NewService(repo Repository, notifier notification.Notifier) *Service {
	if notifier == nil {
		notifier = notification.NopNotifier{}
	}
	return &Service{repo: repo, notifier: notifier}
}

type CreateInput struct {
	Title            string
	Description      string
	MaxMembers       int
	ApprovalRequired bool
}

// Create inserts the gathering with its creator enrolled as an approved,
// immutable creator member, so current_members starts at 1.
func (s *Service) Create(ctx context.Context, creatorID string, input CreateInput) (*Gathering, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.MaxMembers < 1 {
		return nil, fmt.Errorf("max_members must be at least 1")
	}

	gathering := Gathering{
		ID:               uuid.NewString(),
		Title:            input.Title,
		Description:      strings.TrimSpace(input.Description),
		CreatorID:        creatorID,
		MaxMembers:       input.MaxMembers,
		CurrentMembers:   1,
		ApprovalRequired: input.ApprovalRequired,
	}

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.CreateGathering(ctx, &gathering); err != nil {
			return err
		}
		member := Membership{
			GatheringID: gathering.ID,
			UserID:      creatorID,
			Status:      StatusApproved,
			Role:        RoleCreator,
		}
		return tx.CreateMembership(ctx, &member)
	})
	if err != nil {
		return nil, err
	}

	return &gathering, nil
}

func (s *Service) Get(ctx context.Context, gatheringID string) (*Gathering, error) {
	return s.repo.GetGathering(ctx, gatheringID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Gathering, error) {
	return s.repo.ListGatheringsByUser(ctx, userID)
}

// Delete removes the gathering; memberships and schedules cascade.
func (s *Service) Delete(ctx context.Context, callerID, gatheringID string) error {
	gathering, err := s.repo.GetGathering(ctx, gatheringID)
	if err != nil {
		return err
	}
	if gathering.CreatorID != callerID {
		return ErrNotCreator
	}
	return s.repo.DeleteGathering(ctx, gatheringID)
}

// Complete is a one-way transition; repeating it fails ErrInvalidState.
func (s *Service) Complete(ctx context.Context, callerID, gatheringID string) error {
	gathering, err := s.repo.GetGathering(ctx, gatheringID)
	if err != nil {
		return err
	}
	if gathering.CreatorID != callerID {
		return ErrNotCreator
	}
	changed, err := s.repo.MarkCompleted(ctx, gatheringID)
	if err != nil {
		return err
	}
	if !changed {
		return ErrInvalidState
	}
	return nil
}

// RequestJoin creates the membership row. Without approval_required the row
// is approved immediately and the counter moves in the same transaction;
// the capacity check and the increment are one conditional statement.
func (s *Service) RequestJoin(ctx context.Context, gatheringID, userID string) (*Membership, error) {
	var membership Membership

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		gathering, err := tx.GetGathering(ctx, gatheringID)
		if err != nil {
			return err
		}
		if gathering.IsCompleted {
			return ErrGatheringCompleted
		}

		if _, err := tx.GetMembership(ctx, gatheringID, userID); err == nil {
			return ErrAlreadyMember
		} else if !errors.Is(err, ErrMembershipNotFound) {
			return err
		}

		membership = Membership{
			GatheringID: gatheringID,
			UserID:      userID,
			Status:      StatusPending,
			Role:        RoleMember,
		}

		if !gathering.ApprovalRequired {
			incremented, err := tx.IncrementMembersWithinCap(ctx, gatheringID)
			if err != nil {
				return err
			}
			if !incremented {
				return ErrGatheringFull
			}
			membership.Status = StatusApproved
		}

		return tx.CreateMembership(ctx, &membership)
	})
	if err != nil {
		return nil, err
	}

	return &membership, nil
}

// Approve moves a pending row to approved. The status swap is a CAS, so a
// concurrent approve of the same row loses and gets ErrInvalidState.
func (s *Service) Approve(ctx context.Context, callerID, gatheringID, userID string) error {
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		gathering, err := tx.GetGathering(ctx, gatheringID)
		if err != nil {
			return err
		}
		if gathering.CreatorID != callerID {
			return ErrNotCreator
		}
		if _, err := tx.GetMembership(ctx, gatheringID, userID); err != nil {
			return err
		}

		swapped, err := tx.SwapMembershipStatus(ctx, gatheringID, userID, StatusPending, StatusApproved)
		if err != nil {
			return err
		}
		if !swapped {
			return ErrInvalidState
		}

		incremented, err := tx.IncrementMembersWithinCap(ctx, gatheringID)
		if err != nil {
			return err
		}
		if !incremented {
			return ErrGatheringFull
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, notification.Event{
		Type:          notification.TypeMembershipApproved,
		GatheringID:   gatheringID,
		RelatedUserID: callerID,
		TargetUserID:  userID,
	})
	return nil
}

// Reject is terminal for the row; no counter change.
func (s *Service) Reject(ctx context.Context, callerID, gatheringID, userID string) error {
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		gathering, err := tx.GetGathering(ctx, gatheringID)
		if err != nil {
			return err
		}
		if gathering.CreatorID != callerID {
			return ErrNotCreator
		}
		if _, err := tx.GetMembership(ctx, gatheringID, userID); err != nil {
			return err
		}

		swapped, err := tx.SwapMembershipStatus(ctx, gatheringID, userID, StatusPending, StatusRejected)
		if err != nil {
			return err
		}
		if !swapped {
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, notification.Event{
		Type:          notification.TypeMembershipRejected,
		GatheringID:   gatheringID,
		RelatedUserID: callerID,
		TargetUserID:  userID,
	})
	return nil
}

// Kick moves an approved non-creator row to kicked and decrements the
// counter in the same transaction. The row stays for audit.
func (s *Service) Kick(ctx context.Context, callerID, gatheringID, userID string) error {
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		gathering, err := tx.GetGathering(ctx, gatheringID)
		if err != nil {
			return err
		}
		if gathering.CreatorID != callerID {
			return ErrNotCreator
		}

		membership, err := tx.GetMembership(ctx, gatheringID, userID)
		if err != nil {
			return err
		}
		if membership.Role == RoleCreator {
			return ErrCannotKickCreator
		}

		swapped, err := tx.SwapMembershipStatus(ctx, gatheringID, userID, StatusApproved, StatusKicked)
		if err != nil {
			return err
		}
		if !swapped {
			return ErrInvalidState
		}
		return tx.DecrementMembers(ctx, gatheringID)
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(ctx, notification.Event{
		Type:          notification.TypeMembershipKicked,
		GatheringID:   gatheringID,
		RelatedUserID: callerID,
		TargetUserID:  userID,
	})
	return nil
}

// Cancel is self-service removal of the caller's own membership row.
// Only non-terminal rows may go; kicked and rejected rows stay for audit
// and keep the user from rejoining.
func (s *Service) Cancel(ctx context.Context, gatheringID, userID string) error {
	return s.repo.Transaction(ctx, func(tx Repository) error {
		membership, err := tx.GetMembership(ctx, gatheringID, userID)
		if err != nil {
			return err
		}
		if membership.Role == RoleCreator {
			return ErrCreatorCannotLeave
		}

		switch membership.Status {
		case StatusApproved:
			// Delete only if still approved; a concurrent kick already
			// moved the counter and made the row terminal.
			deleted, err := tx.DeleteMembership(ctx, gatheringID, userID, StatusApproved)
			if err != nil {
				return err
			}
			if !deleted {
				return ErrInvalidState
			}
			return tx.DecrementMembers(ctx, gatheringID)
		case StatusPending:
			deleted, err := tx.DeleteMembership(ctx, gatheringID, userID, StatusPending)
			if err != nil {
				return err
			}
			if !deleted {
				return ErrInvalidState
			}
			return nil
		default:
			return ErrInvalidState
		}
	})
}

func (s *Service) GetMembership(ctx context.Context, gatheringID, userID string) (*Membership, error) {
	return s.repo.GetMembership(ctx, gatheringID, userID)
}

// ListMembers returns membership rows, optionally filtered by status.
func (s *Service) ListMembers(ctx context.Context, gatheringID, status string) ([]Membership, error) {
	if _, err := s.repo.GetGathering(ctx, gatheringID); err != nil {
		return nil, err
	}
	return s.repo.ListMemberships(ctx, gatheringID, status)
}

// IsApprovedMember authorizes access on behalf of nested resources.
// An unknown gathering surfaces ErrGatheringNotFound so callers can tell
// "no such gathering" apart from "not a member".
func (s *Service) IsApprovedMember(ctx context.Context, gatheringID, userID string) (bool, error) {
	membership, err := s.repo.GetMembership(ctx, gatheringID, userID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			if _, err := s.repo.GetGathering(ctx, gatheringID); err != nil {
				return false, err
			}
			return false, nil
		}
		return false, err
	}
	return membership.Status == StatusApproved, nil
}
