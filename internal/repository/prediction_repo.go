package repository

import (
	"context"

	"PropSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PredictionRepository 预测结果仓储
type PredictionRepository interface {
	Upsert(ctx context.Context, p *model.Prediction) error
	Get(ctx context.Context, playerID, gameID, propType string) (*model.Prediction, error)
}

type predictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) PredictionRepository {
	return &predictionRepository{db: db}
}

func (r *predictionRepository) Upsert(ctx context.Context, p *model.Prediction) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "game_id"}, {Name: "prop_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"predicted_value", "confidence_band_lower", "confidence_band_upper", "over_probability",
			"under_probability", "model_line", "user_line", "edge", "rationale", "model_version", "updated_at",
		}),
	}).Create(p).Error
}

func (r *predictionRepository) Get(ctx context.Context, playerID, gameID, propType string) (*model.Prediction, error) {
	var p model.Prediction
	err := r.db.WithContext(ctx).Where("player_id = ? AND game_id = ? AND prop_type = ?", playerID, gameID, propType).
		First(&p).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &p, nil
}
