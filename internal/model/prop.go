package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 结算结果
const (
	OutcomeOver  = "over"
	OutcomeUnder = "under"
	OutcomePush  = "push"
	OutcomeVoid  = "void"
)

// PlayerProp 某赛事某球员某盘口的最新盘口，(event_id, player_name, market_key) 唯一
type PlayerProp struct {
	ID            uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	EventID       string          `gorm:"column:event_id;type:varchar(64);not null;uniqueIndex:uq_player_prop"`
	GameID        string          `gorm:"column:game_id;type:varchar(32);index"`
	PlayerName    string          `gorm:"column:player_name;type:varchar(128);not null;uniqueIndex:uq_player_prop"`
	MarketKey     string          `gorm:"column:market_key;type:varchar(64);not null;uniqueIndex:uq_player_prop"`
	MarketDisplay string          `gorm:"column:market_display;type:varchar(64)"`
	Bookmaker     string          `gorm:"column:bookmaker;type:varchar(32)"`
	OverOdds      decimal.Decimal `gorm:"column:over_odds;type:numeric(10,2);not null"`
	OverPoint     decimal.Decimal `gorm:"column:over_point;type:numeric(10,2);not null"`
	UnderOdds     decimal.Decimal `gorm:"column:under_odds;type:numeric(10,2);not null"`
	UnderPoint    decimal.Decimal `gorm:"column:under_point;type:numeric(10,2);not null"`
	IsActive      bool            `gorm:"column:is_active;default:true"`
	LastUpdated   time.Time       `gorm:"column:last_updated;comment:盘口源最后更新时间"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PropLineHistory 盘口历史快照，只追加；创建后仅 CLV 字段可被回写
type PropLineHistory struct {
	ID            uint64              `gorm:"column:id;primaryKey;autoIncrement"`
	GameID        string              `gorm:"column:game_id;type:varchar(32);not null;index:idx_history_partition"`
	PlayerName    string              `gorm:"column:player_name;type:varchar(128);not null;index:idx_history_partition"`
	MarketKey     string              `gorm:"column:market_key;type:varchar(64);not null;index:idx_history_partition"`
	LineValue     decimal.Decimal     `gorm:"column:line_value;type:numeric(10,2);not null"`
	OverOdds      decimal.Decimal     `gorm:"column:over_odds;type:numeric(10,2)"`
	UnderOdds     decimal.Decimal     `gorm:"column:under_odds;type:numeric(10,2)"`
	Source        string              `gorm:"column:source;type:varchar(32);default:prizepicks"`
	CapturedAt    time.Time           `gorm:"column:captured_at;not null;index:idx_history_partition"`
	IsOpeningLine bool                `gorm:"column:is_opening_line;default:false"`
	IsClosingLine bool                `gorm:"column:is_closing_line;default:false"`
	IsOurCapture  bool                `gorm:"column:is_our_capture;default:false;comment:随计算时间漂移"`
	CLVVsOpening  decimal.NullDecimal `gorm:"column:clv_vs_opening;type:numeric(10,2)"`
	CLVVsClosing  decimal.NullDecimal `gorm:"column:clv_vs_closing;type:numeric(10,2)"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// PropGrade 一条历史快照的结算结果，重复结算覆盖
type PropGrade struct {
	ID                uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	PropLineHistoryID uint64          `gorm:"column:prop_line_history_id;uniqueIndex;not null"`
	GameID            string          `gorm:"column:game_id;type:varchar(32);index"`
	PlayerName        string          `gorm:"column:player_name;type:varchar(128)"`
	MarketKey         string          `gorm:"column:market_key;type:varchar(64)"`
	LineValue         decimal.Decimal `gorm:"column:line_value;type:numeric(10,2)"`
	LabelValue        *float64        `gorm:"column:label_value;comment:实际统计值，缺失为空"`
	Outcome           string          `gorm:"column:outcome;type:varchar(8);not null"`
	GradedAt          time.Time       `gorm:"column:graded_at"`
}

// DataRefreshLog 单次盘口刷新记录
type DataRefreshLog struct {
	ID               uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	RunID            string         `gorm:"column:run_id;type:varchar(64);index"`
	EventID          string         `gorm:"column:event_id;type:varchar(64);index"`
	GameID           string         `gorm:"column:game_id;type:varchar(32)"`
	MarketsRequested string         `gorm:"column:markets_requested;type:varchar(512);comment:逗号分隔"`
	MarketsFound     int            `gorm:"column:markets_found"`
	TotalLines       int            `gorm:"column:total_lines"`
	HistoryAdded     int            `gorm:"column:history_added"`
	APIStatus        string         `gorm:"column:api_status;type:varchar(32)"`
	Payload          datatypes.JSON `gorm:"column:payload;type:jsonb;comment:原始响应"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (PlayerProp) TableName() string      { return "player_props" }
func (PropLineHistory) TableName() string { return "prop_line_history" }
func (PropGrade) TableName() string       { return "prop_grades" }
func (DataRefreshLog) TableName() string  { return "data_refresh_logs" }

// MarketDisplay player_pass_yds -> Pass Yds
func MarketDisplay(marketKey string) string {
	words := strings.Fields(strings.ReplaceAll(strings.TrimPrefix(marketKey, "player_"), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
