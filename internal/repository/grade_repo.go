package repository

import (
	"context"

	"PropSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GradeRepository 结算结果仓储
type GradeRepository interface {
	// Upsert 以 prop_line_history_id 为键，重复结算覆盖
	Upsert(ctx context.Context, g *model.PropGrade) error
	GetByHistoryID(ctx context.Context, historyID uint64) (*model.PropGrade, error)
	ListByGame(ctx context.Context, gameID string) ([]*model.PropGrade, error)
}

type gradeRepository struct {
	db *gorm.DB
}

func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) Upsert(ctx context.Context, g *model.PropGrade) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prop_line_history_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"game_id", "player_name", "market_key", "line_value", "label_value", "outcome", "graded_at"}),
	}).Create(g).Error
}

func (r *gradeRepository) GetByHistoryID(ctx context.Context, historyID uint64) (*model.PropGrade, error) {
	var g model.PropGrade
	err := r.db.WithContext(ctx).Where("prop_line_history_id = ?", historyID).First(&g).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gradeRepository) ListByGame(ctx context.Context, gameID string) ([]*model.PropGrade, error) {
	var list []*model.PropGrade
	if err := r.db.WithContext(ctx).Where("game_id = ?", gameID).
		Order("player_name ASC, market_key ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
