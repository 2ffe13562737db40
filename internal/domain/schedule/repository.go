package schedule

import "context"

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateSchedule(ctx context.Context, schedule *Schedule) error
	GetSchedule(ctx context.Context, scheduleID string) (*Schedule, error)
	ListSchedulesByGathering(ctx context.Context, gatheringID string) ([]Schedule, error)
	DeleteSchedule(ctx context.Context, scheduleID string) error
	// MarkCompleted flips is_completed false -> true; reports whether the
	// row actually changed.
	MarkCompleted(ctx context.Context, scheduleID string) (bool, error)
	UpdateCreator(ctx context.Context, scheduleID, creatorID string) error

	CreateMembership(ctx context.Context, membership *Membership) error
	GetMembership(ctx context.Context, scheduleID, userID string) (*Membership, error)
	ListMemberships(ctx context.Context, scheduleID string) ([]Membership, error)
	DeleteMembership(ctx context.Context, scheduleID, userID string) (bool, error)
	// FirstRemainingMember returns the earliest-joined member other than
	// excludeUserID, or ErrMembershipNotFound when none remain.
	FirstRemainingMember(ctx context.Context, scheduleID, excludeUserID string) (*Membership, error)
	UpdateAttendance(ctx context.Context, scheduleID, userID, status string) (bool, error)

	IncrementMembersWithinCap(ctx context.Context, scheduleID string) (bool, error)
	DecrementMembers(ctx context.Context, scheduleID string) error
	CountMemberships(ctx context.Context, scheduleID string) (int64, error)
}
