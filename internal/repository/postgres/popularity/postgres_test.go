package popularity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	popularitydomain "meetup-app-go/internal/domain/popularity"
)

func newTestRepo(t *testing.T) *PostgresRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection so every statement sees the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&popularitydomain.Vote{},
		&popularitydomain.DailyLimit{},
		&popularitydomain.Score{},
		&popularitydomain.ScoreCategory{},
		&popularitydomain.VotePrivilege{},
	))
	return NewPostgres(db)
}

func TestGetVoteMissingIsNil(t *testing.T) {
	repo := newTestRepo(t)

	vote, err := repo.GetVote(context.Background(), "alice", "bob", popularitydomain.CategoryKind)
	require.NoError(t, err)
	assert.Nil(t, vote)
}

func TestUpsertVoteTogglesInPlace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertVote(ctx, &popularitydomain.Vote{
		VoterID:  "alice",
		TargetID: "bob",
		Category: popularitydomain.CategoryKind,
		IsActive: true,
	}))
	require.NoError(t, repo.UpsertVote(ctx, &popularitydomain.Vote{
		VoterID:  "alice",
		TargetID: "bob",
		Category: popularitydomain.CategoryKind,
		IsActive: false,
	}))

	vote, err := repo.GetVote(ctx, "alice", "bob", popularitydomain.CategoryKind)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.False(t, vote.IsActive)

	votes, err := repo.ListActiveVotesByTarget(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestSpendDailyQuota(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	spent, existing, err := repo.SpendDailyQuota(ctx, &popularitydomain.DailyLimit{
		VoterID:  "alice",
		Day:      "2025-06-01",
		TargetID: "bob",
	})
	require.NoError(t, err)
	assert.True(t, spent)
	assert.Nil(t, existing)

	// The day is taken; the losing insert gets the winning row back.
	spent, existing, err = repo.SpendDailyQuota(ctx, &popularitydomain.DailyLimit{
		VoterID:  "alice",
		Day:      "2025-06-01",
		TargetID: "carol",
	})
	require.NoError(t, err)
	assert.False(t, spent)
	require.NotNil(t, existing)
	assert.Equal(t, "bob", existing.TargetID)

	// A different day is a fresh quota.
	spent, _, err = repo.SpendDailyQuota(ctx, &popularitydomain.DailyLimit{
		VoterID:  "alice",
		Day:      "2025-06-02",
		TargetID: "carol",
	})
	require.NoError(t, err)
	assert.True(t, spent)
}

func TestVotePrivilegeUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	unlimited, err := repo.HasUnlimitedVotes(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, unlimited)

	require.NoError(t, repo.SetUnlimitedVotes(ctx, "alice", true))
	unlimited, err = repo.HasUnlimitedVotes(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, unlimited)

	require.NoError(t, repo.SetUnlimitedVotes(ctx, "alice", false))
	unlimited, err = repo.HasUnlimitedVotes(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, unlimited)
}

func TestReplaceScoreRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, _, err := repo.GetScore(ctx, "bob")
	assert.ErrorIs(t, err, popularitydomain.ErrScoreNotFound)

	require.NoError(t, repo.ReplaceScore(ctx,
		&popularitydomain.Score{UserID: "bob", Total: 2},
		[]popularitydomain.ScoreCategory{
			{UserID: "bob", Category: popularitydomain.CategoryKind, Count: 1},
			{UserID: "bob", Category: popularitydomain.CategoryFriendly, Count: 1},
		},
	))

	// Replace overwrites wholesale; stale categories disappear.
	require.NoError(t, repo.ReplaceScore(ctx,
		&popularitydomain.Score{UserID: "bob", Total: 1},
		[]popularitydomain.ScoreCategory{
			{UserID: "bob", Category: popularitydomain.CategoryFriendly, Count: 1},
		},
	))

	score, counts, err := repo.GetScore(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, score.Total)
	require.Len(t, counts, 1)
	assert.Equal(t, popularitydomain.CategoryFriendly, counts[0].Category)
}

func TestListTargetsWithVotesSince(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertVote(ctx, &popularitydomain.Vote{
		VoterID:  "alice",
		TargetID: "bob",
		Category: popularitydomain.CategoryKind,
		IsActive: true,
	}))
	require.NoError(t, repo.UpsertVote(ctx, &popularitydomain.Vote{
		VoterID:  "alice",
		TargetID: "carol",
		Category: popularitydomain.CategoryFunny,
		IsActive: true,
	}))

	targets, err := repo.ListTargetsWithVotesSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, targets)

	targets, err = repo.ListTargetsWithVotesSince(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, targets)
}
