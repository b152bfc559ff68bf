package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/civichub/civichub/internal/models"
)

// ReportRepository provides report-related database operations
type ReportRepository struct {
	*Repository
}

// NewReportRepository creates a new report repository
func NewReportRepository(repo *Repository) *ReportRepository {
	return &ReportRepository{Repository: repo}
}

// Create inserts a new report
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// GetInCommunity retrieves a report only if it belongs to the community
func (r *ReportRepository) GetInCommunity(ctx context.Context, communityID, reportID uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).
		Where("id = ? AND community_id = ?", reportID, communityID).
		First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// ListByCommunity retrieves a community's reports, newest first
func (r *ReportRepository) ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Report, error) {
	reports := make([]*models.Report, 0)
	if err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// ListAll retrieves all reports, newest first
func (r *ReportRepository) ListAll(ctx context.Context) ([]*models.Report, error) {
	reports := make([]*models.Report, 0)
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// Update applies an allow-listed column map and returns the updated record
func (r *ReportRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*models.Report, error) {
	if err := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete hard-deletes a report
func (r *ReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Report{}).Error
}

// CountByCommunity counts a community's reports
func (r *ReportRepository) CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("community_id = ?", communityID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AddViews adds n buffered views to a report's view counter
func (r *ReportRepository) AddViews(ctx context.Context, id uuid.UUID, n int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", n)).Error
}
