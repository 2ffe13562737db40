package gathering

import "context"

// Repository persists gatherings and their membership rows. Counter moves
// are single conditional statements so they stay correct under concurrency
// and safe to retry; status changes are compare-and-swap on the old status.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateGathering(ctx context.Context, gathering *Gathering) error
	GetGathering(ctx context.Context, gatheringID string) (*Gathering, error)
	ListGatheringsByUser(ctx context.Context, userID string) ([]Gathering, error)
	DeleteGathering(ctx context.Context, gatheringID string) error
	// MarkCompleted flips is_completed false -> true; reports whether the
	// row actually changed.
	MarkCompleted(ctx context.Context, gatheringID string) (bool, error)

	CreateMembership(ctx context.Context, membership *Membership) error
	GetMembership(ctx context.Context, gatheringID, userID string) (*Membership, error)
	ListMemberships(ctx context.Context, gatheringID, status string) ([]Membership, error)
	// DeleteMembership removes the row, optionally only when it still holds
	// the given status ("" matches any); reports whether a row was removed.
	DeleteMembership(ctx context.Context, gatheringID, userID, status string) (bool, error)
	// SwapMembershipStatus changes status from -> to; reports whether a row
	// in the expected prior status was found.
	SwapMembershipStatus(ctx context.Context, gatheringID, userID, from, to string) (bool, error)

	// IncrementMembersWithinCap adds one to current_members unless the
	// gathering is already at max_members; reports whether it incremented.
	IncrementMembersWithinCap(ctx context.Context, gatheringID string) (bool, error)
	DecrementMembers(ctx context.Context, gatheringID string) error
	CountMembershipsByStatus(ctx context.Context, gatheringID, status string) (int64, error)
}
