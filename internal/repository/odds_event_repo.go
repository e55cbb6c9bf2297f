package repository

import (
	"context"
	"time"

	"PropSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OddsEventRepository 赔率源赛事及解析缓存仓储
type OddsEventRepository interface {
	Upsert(ctx context.Context, e *model.OddsEvent) error
	GetByEventID(ctx context.Context, eventID string) (*model.OddsEvent, error)
	GetActiveByGameID(ctx context.Context, gameID string) (*model.OddsEvent, error)
	TouchLastUpdated(ctx context.Context, eventID string, at time.Time) error
	GetMap(ctx context.Context, gameID string) (*model.OddsEventMap, error)
	UpsertMap(ctx context.Context, gameID, oddsEventID string, checkedAt time.Time) error
}

type oddsEventRepository struct {
	db *gorm.DB
}

func NewOddsEventRepository(db *gorm.DB) OddsEventRepository {
	return &oddsEventRepository{db: db}
}

func (r *oddsEventRepository) Upsert(ctx context.Context, e *model.OddsEvent) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"game_id", "sport_key", "home_team", "away_team", "commence_time", "is_active"}),
	}).Create(e).Error
}

func (r *oddsEventRepository) GetByEventID(ctx context.Context, eventID string) (*model.OddsEvent, error) {
	var e model.OddsEvent
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&e).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *oddsEventRepository) GetActiveByGameID(ctx context.Context, gameID string) (*model.OddsEvent, error) {
	var e model.OddsEvent
	err := r.db.WithContext(ctx).Where("game_id = ? AND is_active = ?", gameID, true).
		Order("last_updated DESC").First(&e).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *oddsEventRepository) TouchLastUpdated(ctx context.Context, eventID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.OddsEvent{}).Where("event_id = ?", eventID).
		Update("last_updated", at).Error
}

func (r *oddsEventRepository) GetMap(ctx context.Context, gameID string) (*model.OddsEventMap, error) {
	var m model.OddsEventMap
	err := r.db.WithContext(ctx).Where("game_id = ?", gameID).First(&m).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *oddsEventRepository) UpsertMap(ctx context.Context, gameID, oddsEventID string, checkedAt time.Time) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"odds_event_id", "last_checked_at"}),
	}).Create(&model.OddsEventMap{GameID: gameID, OddsEventID: oddsEventID, LastCheckedAt: checkedAt}).Error
}
