package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Game 内部比赛，game_id 形如 2025_03_ATL_CAR（赛季_周次_客队_主队）
type Game struct {
	ID           uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	GameID       string     `gorm:"column:game_id;type:varchar(32);uniqueIndex;not null"`
	Season       int        `gorm:"column:season;not null;index:idx_game_season_week"`
	Week         int        `gorm:"column:week;not null;index:idx_game_season_week"`
	GameType     string     `gorm:"column:game_type;type:varchar(8);default:REG"`
	HomeTeam     string     `gorm:"column:home_team;type:varchar(8);not null"`
	AwayTeam     string     `gorm:"column:away_team;type:varchar(8);not null"`
	KickoffUTC   *time.Time `gorm:"column:kickoff_utc;comment:开赛时间（UTC）"`
	KickoffLocal string     `gorm:"column:kickoff_local;type:varchar(32);comment:当地开赛时间原文"`
	Completed    bool       `gorm:"column:completed;default:false"`
	HomeScore    *int       `gorm:"column:home_score"`
	AwayScore    *int       `gorm:"column:away_score"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// OddsEvent 赔率源的赛事
type OddsEvent struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	EventID      string    `gorm:"column:event_id;type:varchar(64);uniqueIndex;not null;comment:赔率源赛事ID"`
	GameID       string    `gorm:"column:game_id;type:varchar(32);index;comment:对应内部比赛"`
	SportKey     string    `gorm:"column:sport_key;type:varchar(64)"`
	HomeTeam     string    `gorm:"column:home_team;type:varchar(64);comment:赔率源主队名"`
	AwayTeam     string    `gorm:"column:away_team;type:varchar(64);comment:赔率源客队名"`
	CommenceTime time.Time `gorm:"column:commence_time;not null"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	LastUpdated  time.Time `gorm:"column:last_updated;comment:上次刷新盘口时间"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// OddsEventMap 内部比赛到赔率源赛事的解析缓存
type OddsEventMap struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	GameID        string    `gorm:"column:game_id;type:varchar(32);uniqueIndex;not null"`
	OddsEventID   string    `gorm:"column:odds_event_id;type:varchar(64);not null"`
	LastCheckedAt time.Time `gorm:"column:last_checked_at"`
}

func (Game) TableName() string         { return "games" }
func (OddsEvent) TableName() string    { return "odds_events" }
func (OddsEventMap) TableName() string { return "odds_event_map" }

// BuildGameID 拼接内部比赛 ID
func BuildGameID(season, week int, away, home string) string {
	return fmt.Sprintf("%04d_%02d_%s_%s", season, week, strings.ToUpper(away), strings.ToUpper(home))
}

// GameKey game_id 解析结果
type GameKey struct {
	Season int
	Week   int
	Away   string
	Home   string
}

// ParseGameID 解析 SEASON_WW_AWAY_HOME 形式的比赛 ID
func ParseGameID(gameID string) (GameKey, error) {
	parts := strings.Split(gameID, "_")
	if len(parts) != 4 {
		return GameKey{}, fmt.Errorf("比赛ID格式错误: %s", gameID)
	}
	season, err := strconv.Atoi(parts[0])
	if err != nil {
		return GameKey{}, fmt.Errorf("比赛ID赛季非法: %s", gameID)
	}
	week, err := strconv.Atoi(parts[1])
	if err != nil {
		return GameKey{}, fmt.Errorf("比赛ID周次非法: %s", gameID)
	}
	if parts[2] == "" || parts[3] == "" {
		return GameKey{}, fmt.Errorf("比赛ID缺少球队: %s", gameID)
	}
	return GameKey{Season: season, Week: week, Away: parts[2], Home: parts[3]}, nil
}
