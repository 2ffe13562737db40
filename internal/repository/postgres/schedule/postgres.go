package schedule

import (
	"context"
	"errors"

	"gorm.io/gorm"

	scheduledomain "meetup-app-go/internal/domain/schedule"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(scheduledomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) CreateSchedule(ctx context.Context, schedule *scheduledomain.Schedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *PostgresRepository) GetSchedule(ctx context.Context, scheduleID string) (*scheduledomain.Schedule, error) {
	var schedule scheduledomain.Schedule
	if err := r.db.WithContext(ctx).Where("id = ?", scheduleID).First(&schedule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scheduledomain.ErrScheduleNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *PostgresRepository) ListSchedulesByGathering(ctx context.Context, gatheringID string) ([]scheduledomain.Schedule, error) {
	var schedules []scheduledomain.Schedule
	err := r.db.WithContext(ctx).
		Where("gathering_id = ?", gatheringID).
		Order("starts_at asc").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *PostgresRepository) DeleteSchedule(ctx context.Context, scheduleID string) error {
	return r.db.WithContext(ctx).Delete(&scheduledomain.Schedule{}, "id = ?", scheduleID).Error
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, scheduleID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&scheduledomain.Schedule{}).
		Where("id = ? AND is_completed = ?", scheduleID, false).
		Update("is_completed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) UpdateCreator(ctx context.Context, scheduleID, creatorID string) error {
	return r.db.WithContext(ctx).Model(&scheduledomain.Schedule{}).
		Where("id = ?", scheduleID).
		Update("creator_id", creatorID).Error
}

func (r *PostgresRepository) CreateMembership(ctx context.Context, membership *scheduledomain.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *PostgresRepository) GetMembership(ctx context.Context, scheduleID, userID string) (*scheduledomain.Membership, error) {
	var membership scheduledomain.Membership
	err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND user_id = ?", scheduleID, userID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scheduledomain.ErrMembershipNotFound
		}
		return nil, err
	}
	return &membership, nil
}

func (r *PostgresRepository) ListMemberships(ctx context.Context, scheduleID string) ([]scheduledomain.Membership, error) {
	var memberships []scheduledomain.Membership
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("created_at asc").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *PostgresRepository) DeleteMembership(ctx context.Context, scheduleID, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("schedule_id = ? AND user_id = ?", scheduleID, userID).
		Delete(&scheduledomain.Membership{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) FirstRemainingMember(ctx context.Context, scheduleID, excludeUserID string) (*scheduledomain.Membership, error) {
	var membership scheduledomain.Membership
	err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND user_id <> ?", scheduleID, excludeUserID).
		Order("created_at asc").
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scheduledomain.ErrMembershipNotFound
		}
		return nil, err
	}
	return &membership, nil
}

func (r *PostgresRepository) UpdateAttendance(ctx context.Context, scheduleID, userID, status string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&scheduledomain.Membership{}).
		Where("schedule_id = ? AND user_id = ?", scheduleID, userID).
		Update("attendance_status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) IncrementMembersWithinCap(ctx context.Context, scheduleID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&scheduledomain.Schedule{}).
		Where("id = ? AND current_members < max_members", scheduleID).
		UpdateColumn("current_members", gorm.Expr("current_members + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) DecrementMembers(ctx context.Context, scheduleID string) error {
	return r.db.WithContext(ctx).Model(&scheduledomain.Schedule{}).
		Where("id = ? AND current_members > 0", scheduleID).
		UpdateColumn("current_members", gorm.Expr("current_members - 1")).Error
}

func (r *PostgresRepository) CountMemberships(ctx context.Context, scheduleID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&scheduledomain.Membership{}).
		Where("schedule_id = ?", scheduleID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
