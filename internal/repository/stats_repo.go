package repository

import (
	"context"

	"PropSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatsRepository 球员单场统计仓储
type StatsRepository interface {
	Get(ctx context.Context, playerID, gameID string) (*model.PlayerStats, error)
	Upsert(ctx context.Context, s *model.PlayerStats) error
	// ListBySeason 按周次升序返回整季统计，week<=0 时不限周次上界
	ListBySeason(ctx context.Context, season, maxWeek int) ([]*model.PlayerStats, error)
	LatestSeason(ctx context.Context) (int, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Get(ctx context.Context, playerID, gameID string) (*model.PlayerStats, error) {
	var s model.PlayerStats
	err := r.db.WithContext(ctx).Where("player_id = ? AND game_id = ?", playerID, gameID).First(&s).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statsRepository) Upsert(ctx context.Context, s *model.PlayerStats) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}, {Name: "game_id"}},
		UpdateAll: true,
	}).Create(s).Error
}

func (r *statsRepository) ListBySeason(ctx context.Context, season, maxWeek int) ([]*model.PlayerStats, error) {
	db := r.db.WithContext(ctx).Where("season = ?", season)
	if maxWeek > 0 {
		db = db.Where("week <= ?", maxWeek)
	}
	var list []*model.PlayerStats
	if err := db.Order("week ASC, id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *statsRepository) LatestSeason(ctx context.Context) (int, error) {
	var season *int
	if err := r.db.WithContext(ctx).Model(&model.PlayerStats{}).Select("MAX(season)").Scan(&season).Error; err != nil {
		return 0, err
	}
	if season == nil {
		return 0, nil
	}
	return *season, nil
}
