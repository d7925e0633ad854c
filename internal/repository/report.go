package repository

import (
	"context"

	"pariposhan/internal/cache"
	"pariposhan/internal/models"

	"gorm.io/gorm"
)

// ReportFilter narrows the open report queue.
type ReportFilter struct {
	TargetKind models.ReportTargetKind
	Limit      int
	Offset     int
}

// ReportRepository stores pending reports. Resolved reports are deleted.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	ListPending(ctx context.Context, filter ReportFilter) ([]*models.Report, error)
	CountPending(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uint) error
	DeleteForTarget(ctx context.Context, kind models.ReportTargetKind, targetID uint) (int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	report.Status = models.ReportStatusPending
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return translateError(err, "Report", report.TargetID)
	}
	cache.Invalidate(ctx, cache.DashboardKey)
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return nil, translateError(err, "Report", id)
	}
	return &report, nil
}

// ListPending returns the queue oldest first.
func (r *reportRepository) ListPending(ctx context.Context, filter ReportFilter) ([]*models.Report, error) {
	q := r.db.WithContext(ctx).Where("status = ?", models.ReportStatusPending)
	if filter.TargetKind != "" {
		q = q.Where("target_kind = ?", filter.TargetKind)
	}
	q = q.Order("created_at ASC").Order("id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var reports []*models.Report
	err := q.Find(&reports).Error
	return reports, err
}

func (r *reportRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("status = ?", models.ReportStatusPending).
		Count(&n).Error
	return n, err
}

func (r *reportRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Report{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Report", id)
	}
	cache.Invalidate(ctx, cache.DashboardKey)
	return nil
}

// DeleteForTarget clears every report pointing at one target.
func (r *reportRepository) DeleteForTarget(ctx context.Context, kind models.ReportTargetKind, targetID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("target_kind = ? AND target_id = ?", kind, targetID).
		Delete(&models.Report{})
	if res.Error != nil {
		return 0, res.Error
	}
	cache.Invalidate(ctx, cache.DashboardKey)
	return res.RowsAffected, nil
}
