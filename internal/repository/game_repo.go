package repository

import (
	"context"
	"time"

	"PropSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameRepository 内部比赛仓储
type GameRepository interface {
	GetByGameID(ctx context.Context, gameID string) (*model.Game, error)
	// FindByKey 按赛季/周次/主客队查找，兼容 game_id 格式不一致的历史数据
	FindByKey(ctx context.Context, key model.GameKey) (*model.Game, error)
	Upsert(ctx context.Context, g *model.Game) error
	// ListUpcoming 开赛时间在 [from, to) 之间的比赛
	ListUpcoming(ctx context.Context, from, to time.Time) ([]*model.Game, error)
	ListBySeason(ctx context.Context, season int) ([]*model.Game, error)
}

type gameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) GetByGameID(ctx context.Context, gameID string) (*model.Game, error) {
	var g model.Game
	err := r.db.WithContext(ctx).Where("game_id = ?", gameID).First(&g).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gameRepository) FindByKey(ctx context.Context, key model.GameKey) (*model.Game, error) {
	var g model.Game
	err := r.db.WithContext(ctx).
		Where("season = ? AND week = ? AND home_team = ? AND away_team = ?", key.Season, key.Week, key.Home, key.Away).
		First(&g).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gameRepository) Upsert(ctx context.Context, g *model.Game) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"season", "week", "game_type", "home_team", "away_team", "kickoff_utc", "kickoff_local",
			"completed", "home_score", "away_score", "updated_at",
		}),
	}).Create(g).Error
}

func (r *gameRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]*model.Game, error) {
	var list []*model.Game
	if err := r.db.WithContext(ctx).
		Where("kickoff_utc >= ? AND kickoff_utc < ?", from, to).
		Order("kickoff_utc ASC, game_id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *gameRepository) ListBySeason(ctx context.Context, season int) ([]*model.Game, error) {
	var list []*model.Game
	if err := r.db.WithContext(ctx).Where("season = ?", season).Order("week ASC, game_id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
