package repository

import (
	"context"

	"PropSync/internal/model"

	"gorm.io/gorm"
)

// RefreshLogRepository 盘口刷新记录仓储
type RefreshLogRepository interface {
	Create(ctx context.Context, l *model.DataRefreshLog) error
	ListByRun(ctx context.Context, runID string) ([]*model.DataRefreshLog, error)
}

type refreshLogRepository struct {
	db *gorm.DB
}

func NewRefreshLogRepository(db *gorm.DB) RefreshLogRepository {
	return &refreshLogRepository{db: db}
}

func (r *refreshLogRepository) Create(ctx context.Context, l *model.DataRefreshLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *refreshLogRepository) ListByRun(ctx context.Context, runID string) ([]*model.DataRefreshLog, error) {
	var list []*model.DataRefreshLog
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
