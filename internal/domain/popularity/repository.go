package popularity

import (
	"context"
	"time"
)

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	// GetVote returns nil without error when no row exists.
	GetVote(ctx context.Context, voterID, targetID, category string) (*Vote, error)
	// UpsertVote inserts the row or updates is_active and schedule_id of
	// the existing (voter, target, category) row.
	UpsertVote(ctx context.Context, vote *Vote) error
	ListActiveVotesByTarget(ctx context.Context, targetID string) ([]Vote, error)
	ListRecentReceived(ctx context.Context, targetID string, limit int) ([]Vote, error)
	ListTargetsWithVotesSince(ctx context.Context, since time.Time) ([]string, error)

	// SpendDailyQuota tries to insert the (voter, day) limit row. When the
	// insert loses to an existing row it returns spent=false together with
	// that row, so the caller can tell "already spent on this target"
	// apart from "spent on another target".
	SpendDailyQuota(ctx context.Context, limit *DailyLimit) (bool, *DailyLimit, error)

	HasUnlimitedVotes(ctx context.Context, userID string) (bool, error)
	SetUnlimitedVotes(ctx context.Context, userID string, unlimited bool) error

	// ReplaceScore overwrites the user's total and category counts in one
	// transaction.
	ReplaceScore(ctx context.Context, score *Score, counts []ScoreCategory) error
	GetScore(ctx context.Context, userID string) (*Score, []ScoreCategory, error)
}
