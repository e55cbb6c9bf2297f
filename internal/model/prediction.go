package model

import "time"

// Prediction 球员盘口预测，(player_id, game_id, prop_type) 唯一
type Prediction struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID         string    `gorm:"column:player_id;type:varchar(128);not null;uniqueIndex:uq_prediction"`
	GameID           string    `gorm:"column:game_id;type:varchar(32);not null;uniqueIndex:uq_prediction"`
	PropType         string    `gorm:"column:prop_type;type:varchar(64);not null;uniqueIndex:uq_prediction"`
	PredictedValue   float64   `gorm:"column:predicted_value"`
	ConfidenceLower  float64   `gorm:"column:confidence_band_lower;comment:5分位"`
	ConfidenceUpper  float64   `gorm:"column:confidence_band_upper;comment:95分位"`
	OverProbability  float64   `gorm:"column:over_probability"`
	UnderProbability float64   `gorm:"column:under_probability"`
	ModelLine        float64   `gorm:"column:model_line"`
	UserLine         *float64  `gorm:"column:user_line"`
	Edge             float64   `gorm:"column:edge"`
	Rationale        string    `gorm:"column:rationale;type:text"`
	ModelVersion     string    `gorm:"column:model_version;type:varchar(20)"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Prediction) TableName() string { return "predictions" }
