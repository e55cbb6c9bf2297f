package model

import "time"

// Player 规范球员，player_id 为全局唯一的规范 ID
// 只会被更新或在合并时删除被替代方
type Player struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	PlayerID     string    `gorm:"column:player_id;type:varchar(128);uniqueIndex;not null;comment:规范球员ID"`
	PlayerName   string    `gorm:"column:player_name;type:varchar(128);not null;index;comment:球员名"`
	Position     string    `gorm:"column:position;type:varchar(8);comment:位置"`
	TeamAbbr     *string   `gorm:"column:team_abbr;type:varchar(8);index;comment:所属球队，可空"`
	JerseyNumber *int      `gorm:"column:jersey_number;comment:球衣号"`
	Height       string    `gorm:"column:height;type:varchar(8)"`
	Weight       *int      `gorm:"column:weight"`
	Age          *int      `gorm:"column:age"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PlayerMapping 两套命名体系之间的球员映射
// source_name 来自统计数据源，prop_name 来自盘口源
type PlayerMapping struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	SourceName  string    `gorm:"column:source_name;type:varchar(128);uniqueIndex;not null;comment:统计源球员名"`
	PropName    string    `gorm:"column:prop_name;type:varchar(128);uniqueIndex;not null;comment:盘口源球员名"`
	PlayerID    string    `gorm:"column:player_id;type:varchar(128);uniqueIndex;not null;comment:规范球员ID"`
	Position    string    `gorm:"column:position;type:varchar(8)"`
	CurrentTeam string    `gorm:"column:current_team;type:varchar(8)"`
	IsActive    bool      `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// PlayerStats 球员单场统计，统计值为 nil 表示数据源未提供
type PlayerStats struct {
	ID                 uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID           string    `gorm:"column:player_id;type:varchar(128);not null;uniqueIndex:uq_player_game_stats"`
	GameID             string    `gorm:"column:game_id;type:varchar(32);not null;uniqueIndex:uq_player_game_stats;index"`
	Season             int       `gorm:"column:season;not null;index:idx_stats_season_week"`
	Week               int       `gorm:"column:week;not null;index:idx_stats_season_week"`
	TeamAbbr           string    `gorm:"column:team_abbr;type:varchar(8);comment:当场所属球队"`
	OpponentAbbr       string    `gorm:"column:opponent_abbr;type:varchar(8);comment:当场对手"`
	PassingYards       *float64  `gorm:"column:passing_yards"`
	PassingAttempts    *float64  `gorm:"column:passing_attempts"`
	PassingCompletions *float64  `gorm:"column:passing_completions"`
	PassingTDs         *float64  `gorm:"column:passing_tds"`
	RushingYards       *float64  `gorm:"column:rushing_yards"`
	RushingAttempts    *float64  `gorm:"column:rushing_attempts"`
	RushingTDs         *float64  `gorm:"column:rushing_tds"`
	ReceivingYards     *float64  `gorm:"column:receiving_yards"`
	Receptions         *float64  `gorm:"column:receptions"`
	ReceivingTDs       *float64  `gorm:"column:receiving_tds"`
	Targets            *float64  `gorm:"column:targets"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Player) TableName() string        { return "players" }
func (PlayerMapping) TableName() string { return "player_mappings" }
func (PlayerStats) TableName() string   { return "player_stats" }
