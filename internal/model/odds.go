package model

import "time"

// ProviderEvent 赔率源赛事索引中的一条
type ProviderEvent struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	CommenceTime time.Time `json:"commence_time"`
}

// PropSide 单边盘口（美式赔率 + 盘口值）
type PropSide struct {
	Odds  float64 `json:"odds"`
	Point float64 `json:"point"`
}

// PropLine 一名球员在一个盘口下的完整两边
type PropLine struct {
	Player string   `json:"player"`
	Over   PropSide `json:"over"`
	Under  PropSide `json:"under"`
}

// MarketLines 一个盘口类型下的全部球员
type MarketLines struct {
	Key        string     `json:"key"`
	LastUpdate *time.Time `json:"last_update"`
	Lines      []PropLine `json:"lines"`
}

// ParsedProps 解析后的赛事盘口
type ParsedProps struct {
	EventID string        `json:"event_id"`
	Markets []MarketLines `json:"markets"`
}

// TotalLines 所有盘口下的球员线数
func (p *ParsedProps) TotalLines() int {
	n := 0
	for _, m := range p.Markets {
		n += len(m.Lines)
	}
	return n
}

// RosterPlayer 参考名册中的球员
type RosterPlayer struct {
	DisplayName string `json:"display_name"`
	Position    string `json:"position"`
	LatestTeam  string `json:"latest_team"`
	Status      string `json:"status"`
}
