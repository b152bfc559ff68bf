package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civichub/civichub/internal/models"
)

// CommunityRepository provides community-related database operations
type CommunityRepository struct {
	*Repository
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(repo *Repository) *CommunityRepository {
	return &CommunityRepository{Repository: repo}
}

// Create inserts a new community
func (r *CommunityRepository) Create(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Create(community).Error
}

// GetBySlug retrieves a community by its unique slug
func (r *CommunityRepository) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&community).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

// GetByID retrieves a community by ID
func (r *CommunityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&community).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

// List retrieves all communities, newest first
func (r *CommunityRepository) List(ctx context.Context) ([]*models.Community, error) {
	communities := make([]*models.Community, 0)
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&communities).Error; err != nil {
		return nil, err
	}
	return communities, nil
}

// SlugExists checks whether a slug is already taken
func (r *CommunityRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update applies an allow-listed column map and returns the updated record
func (r *CommunityRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Community, error) {
	if err := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// AddMembers adjusts the denormalized member counter by delta
func (r *CommunityRepository) AddMembers(ctx context.Context, id uuid.UUID, delta int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("id = ?", id).
		UpdateColumn("member_count", gorm.Expr("GREATEST(0, member_count + ?)", delta)).Error
}

// AddReports adjusts the denormalized report counter by delta
func (r *CommunityRepository) AddReports(ctx context.Context, id uuid.UUID, delta int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("id = ?", id).
		UpdateColumn("report_count", gorm.Expr("GREATEST(0, report_count + ?)", delta)).Error
}

// SetCounters overwrites both denormalized counters with recounted values
func (r *CommunityRepository) SetCounters(ctx context.Context, id uuid.UUID, memberCount, reportCount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"member_count": memberCount,
			"report_count": reportCount,
		}).Error
}
