package popularity

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	popularitydomain "meetup-app-go/internal/domain/popularity"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(popularitydomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) GetVote(ctx context.Context, voterID, targetID, category string) (*popularitydomain.Vote, error) {
	var vote popularitydomain.Vote
	err := r.db.WithContext(ctx).
		Where("voter_id = ? AND target_id = ? AND category = ?", voterID, targetID, category).
		First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vote, nil
}

func (r *PostgresRepository) UpsertVote(ctx context.Context, vote *popularitydomain.Vote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "voter_id"}, {Name: "target_id"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_active", "schedule_id", "updated_at"}),
		}).
		Create(vote).Error
}

func (r *PostgresRepository) ListActiveVotesByTarget(ctx context.Context, targetID string) ([]popularitydomain.Vote, error) {
	var votes []popularitydomain.Vote
	err := r.db.WithContext(ctx).
		Where("target_id = ? AND is_active = ?", targetID, true).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *PostgresRepository) ListRecentReceived(ctx context.Context, targetID string, limit int) ([]popularitydomain.Vote, error) {
	var votes []popularitydomain.Vote
	err := r.db.WithContext(ctx).
		Where("target_id = ? AND is_active = ?", targetID, true).
		Order("updated_at desc").
		Limit(limit).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *PostgresRepository) ListTargetsWithVotesSince(ctx context.Context, since time.Time) ([]string, error) {
	var targets []string
	err := r.db.WithContext(ctx).
		Model(&popularitydomain.Vote{}).
		Distinct("target_id").
		Where("updated_at >= ?", since).
		Pluck("target_id", &targets).Error
	if err != nil {
		return nil, err
	}
	return targets, nil
}

// SpendDailyQuota relies on the (voter_id, day) primary key: the insert
// either wins the day or loses to whichever row got there first.
func (r *PostgresRepository) SpendDailyQuota(ctx context.Context, limit *popularitydomain.DailyLimit) (bool, *popularitydomain.DailyLimit, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(limit)
	if result.Error != nil {
		return false, nil, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil, nil
	}

	var existing popularitydomain.DailyLimit
	err := r.db.WithContext(ctx).
		Where("voter_id = ? AND day = ?", limit.VoterID, limit.Day).
		First(&existing).Error
	if err != nil {
		return false, nil, err
	}
	return false, &existing, nil
}

func (r *PostgresRepository) HasUnlimitedVotes(ctx context.Context, userID string) (bool, error) {
	var privilege popularitydomain.VotePrivilege
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&privilege).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return privilege.UnlimitedVotes, nil
}

func (r *PostgresRepository) SetUnlimitedVotes(ctx context.Context, userID string, unlimited bool) error {
	privilege := popularitydomain.VotePrivilege{UserID: userID, UnlimitedVotes: unlimited}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"unlimited_votes"}),
		}).
		Create(&privilege).Error
}

func (r *PostgresRepository) ReplaceScore(ctx context.Context, score *popularitydomain.Score, counts []popularitydomain.ScoreCategory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total", "updated_at"}),
		}).Create(score).Error
		if err != nil {
			return err
		}

		err = tx.Where("user_id = ?", score.UserID).
			Delete(&popularitydomain.ScoreCategory{}).Error
		if err != nil {
			return err
		}

		if len(counts) == 0 {
			return nil
		}
		return tx.Create(&counts).Error
	})
}

func (r *PostgresRepository) GetScore(ctx context.Context, userID string) (*popularitydomain.Score, []popularitydomain.ScoreCategory, error) {
	var score popularitydomain.Score
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&score).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, popularitydomain.ErrScoreNotFound
		}
		return nil, nil, err
	}

	var counts []popularitydomain.ScoreCategory
	err = r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&counts).Error
	if err != nil {
		return nil, nil, err
	}
	return &score, counts, nil
}
