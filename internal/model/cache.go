package model

import (
	"time"

	"gorm.io/datatypes"
)

// CachedData 参考数据缓存，(data_type, season, week) 唯一，week=0 表示整季
type CachedData struct {
	ID        uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	DataType  string         `gorm:"column:data_type;type:varchar(32);not null;uniqueIndex:uq_cached_data"`
	Season    int            `gorm:"column:season;not null;uniqueIndex:uq_cached_data"`
	Week      int            `gorm:"column:week;not null;uniqueIndex:uq_cached_data"`
	Data      datatypes.JSON `gorm:"column:data;type:jsonb"`
	ExpiresAt time.Time      `gorm:"column:expires_at;index"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (CachedData) TableName() string { return "cached_data" }
