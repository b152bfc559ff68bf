package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civichub/civichub/internal/models"
)

// MembershipRepository provides community membership database operations
type MembershipRepository struct {
	*Repository
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(repo *Repository) *MembershipRepository {
	return &MembershipRepository{Repository: repo}
}

// Get retrieves a membership row, or nil, nil when the user has not joined
func (r *MembershipRepository) Get(ctx context.Context, communityID, userID uuid.UUID) (*models.Membership, error) {
	var membership models.Membership
	if err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &membership, nil
}

// Create inserts a membership. Idempotent: an existing
// (community_id, user_id) pair is left untouched.
func (r *MembershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", membership.CommunityID, membership.UserID).
		FirstOrCreate(membership).Error
}

// Delete removes a membership. No-op if not a member.
func (r *MembershipRepository) Delete(ctx context.Context, communityID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.Membership{}).Error
}

// ListByCommunity retrieves all memberships of a community
func (r *MembershipRepository) ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Membership, error) {
	memberships := make([]*models.Membership, 0)
	if err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// CountByCommunity counts memberships of a community
func (r *MembershipRepository) CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("community_id = ?", communityID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
