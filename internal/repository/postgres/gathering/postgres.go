package gathering

import (
	"context"
	"errors"

	"gorm.io/gorm"

	gatheringdomain "meetup-app-go/internal/domain/gathering"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(gatheringdomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) CreateGathering(ctx context.Context, gathering *gatheringdomain.Gathering) error {
	return r.db.WithContext(ctx).Create(gathering).Error
}

func (r *PostgresRepository) GetGathering(ctx context.Context, gatheringID string) (*gatheringdomain.Gathering, error) {
	var gathering gatheringdomain.Gathering
	if err := r.db.WithContext(ctx).Where("id = ?", gatheringID).First(&gathering).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gatheringdomain.ErrGatheringNotFound
		}
		return nil, err
	}
	return &gathering, nil
}

func (r *PostgresRepository) ListGatheringsByUser(ctx context.Context, userID string) ([]gatheringdomain.Gathering, error) {
	var gatherings []gatheringdomain.Gathering
	err := r.db.WithContext(ctx).
		Table("gatherings").
		Joins("join gathering_memberships on gathering_memberships.gathering_id = gatherings.id").
		Where("gathering_memberships.user_id = ? AND gathering_memberships.status IN ?",
			userID, []string{gatheringdomain.StatusPending, gatheringdomain.StatusApproved}).
		Order("gatherings.created_at desc").
		Find(&gatherings).Error
	if err != nil {
		return nil, err
	}
	return gatherings, nil
}

func (r *PostgresRepository) DeleteGathering(ctx context.Context, gatheringID string) error {
	return r.db.WithContext(ctx).Delete(&gatheringdomain.Gathering{}, "id = ?", gatheringID).Error
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, gatheringID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&gatheringdomain.Gathering{}).
		Where("id = ? AND is_completed = ?", gatheringID, false).
		Update("is_completed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) CreateMembership(ctx context.Context, membership *gatheringdomain.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *PostgresRepository) GetMembership(ctx context.Context, gatheringID, userID string) (*gatheringdomain.Membership, error) {
	var membership gatheringdomain.Membership
	err := r.db.WithContext(ctx).
		Where("gathering_id = ? AND user_id = ?", gatheringID, userID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gatheringdomain.ErrMembershipNotFound
		}
		return nil, err
	}
	return &membership, nil
}

func (r *PostgresRepository) ListMemberships(ctx context.Context, gatheringID, status string) ([]gatheringdomain.Membership, error) {
	query := r.db.WithContext(ctx).Where("gathering_id = ?", gatheringID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var memberships []gatheringdomain.Membership
	if err := query.Order("created_at asc").Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *PostgresRepository) DeleteMembership(ctx context.Context, gatheringID, userID, status string) (bool, error) {
	query := r.db.WithContext(ctx).Where("gathering_id = ? AND user_id = ?", gatheringID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	result := query.Delete(&gatheringdomain.Membership{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) SwapMembershipStatus(ctx context.Context, gatheringID, userID, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&gatheringdomain.Membership{}).
		Where("gathering_id = ? AND user_id = ? AND status = ?", gatheringID, userID, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) IncrementMembersWithinCap(ctx context.Context, gatheringID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&gatheringdomain.Gathering{}).
		Where("id = ? AND current_members < max_members", gatheringID).
		UpdateColumn("current_members", gorm.Expr("current_members + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PostgresRepository) DecrementMembers(ctx context.Context, gatheringID string) error {
	return r.db.WithContext(ctx).Model(&gatheringdomain.Gathering{}).
		Where("id = ? AND current_members > 0", gatheringID).
		UpdateColumn("current_members", gorm.Expr("current_members - 1")).Error
}

func (r *PostgresRepository) CountMembershipsByStatus(ctx context.Context, gatheringID, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gatheringdomain.Membership{}).
		Where("gathering_id = ? AND status = ?", gatheringID, status).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
