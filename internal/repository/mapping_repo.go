package repository

import (
	"context"

	"PropSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MappingRepository 球员映射仓储
type MappingRepository interface {
	GetByPlayerID(ctx context.Context, playerID string) (*model.PlayerMapping, error)
	GetActiveByPropName(ctx context.Context, propName string) (*model.PlayerMapping, error)
	// Upsert 以 source_name 为键
	Upsert(ctx context.Context, m *model.PlayerMapping) error
	ListActive(ctx context.Context) ([]*model.PlayerMapping, error)
}

type mappingRepository struct {
	db *gorm.DB
}

func NewMappingRepository(db *gorm.DB) MappingRepository {
	return &mappingRepository{db: db}
}

func (r *mappingRepository) GetByPlayerID(ctx context.Context, playerID string) (*model.PlayerMapping, error) {
	var m model.PlayerMapping
	err := r.db.WithContext(ctx).Where("player_id = ?", playerID).First(&m).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mappingRepository) GetActiveByPropName(ctx context.Context, propName string) (*model.PlayerMapping, error) {
	var m model.PlayerMapping
	err := r.db.WithContext(ctx).Where("prop_name = ? AND is_active = ?", propName, true).First(&m).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mappingRepository) Upsert(ctx context.Context, m *model.PlayerMapping) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"prop_name", "player_id", "position", "current_team", "is_active", "updated_at"}),
	}).Create(m).Error
}

func (r *mappingRepository) ListActive(ctx context.Context) ([]*model.PlayerMapping, error) {
	var list []*model.PlayerMapping
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("source_name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
