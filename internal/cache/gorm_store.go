package cache

import (
	"context"
	"errors"
	"time"

	"PropSync/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于 cached_data 表的缓存
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	var row model.CachedData
	err := s.db.WithContext(ctx).
		Where("data_type = ? AND season = ? AND week = ? AND expires_at > ?", key.DataType, key.Season, key.Week, s.now().UTC()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(row.Data), true, nil
}

func (s *GormStore) Set(ctx context.Context, key Key, data []byte, ttl time.Duration) error {
	row := &model.CachedData{
		DataType:  key.DataType,
		Season:    key.Season,
		Week:      key.Week,
		Data:      datatypes.JSON(data),
		ExpiresAt: s.now().UTC().Add(ttl),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "data_type"}, {Name: "season"}, {Name: "week"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at", "updated_at"}),
	}).Create(row).Error
}

func (s *GormStore) Delete(ctx context.Context, key Key) error {
	return s.db.WithContext(ctx).
		Where("data_type = ? AND season = ? AND week = ?", key.DataType, key.Season, key.Week).
		Delete(&model.CachedData{}).Error
}
