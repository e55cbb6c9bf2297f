package model

import "gorm.io/gorm"

// AutoMigrate 按依赖顺序迁移全部表（不存在则创建）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Team{},
		&Player{},
		&PlayerMapping{},
		&Game{},
		&PlayerStats{},
		&OddsEvent{},
		&OddsEventMap{},
		&PlayerProp{},
		&PropLineHistory{},
		&PropGrade{},
		&DataRefreshLog{},
		&Prediction{},
		&TeamDefense{},
		&TeamOffense{},
		&CachedData{},
	)
}
