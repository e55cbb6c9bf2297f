package theodds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"PropSync/internal/model"
)

type rawOutcome struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Point       *float64 `json:"point"`
}

type rawMarket struct {
	Key      string       `json:"key"`
	Outcomes []rawOutcome `json:"outcomes"`
}

type rawBookmaker struct {
	Key           string      `json:"key"`
	BookmakerKey  string      `json:"bookmaker_key"`
	LastUpdate    *time.Time  `json:"last_update"`
	LastUpdateAlt *time.Time  `json:"lastUpdate"`
	Markets       []rawMarket `json:"markets"`
}

type rawEvent struct {
	ID         string         `json:"id"`
	Bookmakers []rawBookmaker `json:"bookmakers"`
}

// ParseEvents 解析赛事索引，兼容数组形式 [...] 和对象形式 {"data": [...]} / {"events": [...]}
func ParseEvents(raw []byte) ([]model.ProviderEvent, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var events []model.ProviderEvent
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("解析赛事索引失败: %w", err)
		}
	case '{':
		var env struct {
			Data   []model.ProviderEvent `json:"data"`
			Events []model.ProviderEvent `json:"events"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("解析赛事索引失败: %w", err)
		}
		events = env.Data
		if len(events) == 0 {
			events = env.Events
		}
	default:
		return nil, fmt.Errorf("赛事索引格式未知")
	}
	return events, nil
}

// ParseProps 解析赛事盘口响应，兼容对象形式 {"bookmakers": [...]} 和数组形式 [...]
// 只保留指定博彩公司、指定盘口、且 Over/Under 两边齐全的球员
func ParseProps(raw []byte, bookmaker string, markets []string) (*model.ParsedProps, error) {
	out := &model.ParsedProps{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}

	var books []rawBookmaker
	switch trimmed[0] {
	case '{':
		var ev rawEvent
		if err := json.Unmarshal(trimmed, &ev); err != nil {
			return nil, fmt.Errorf("解析盘口响应失败: %w", err)
		}
		out.EventID = ev.ID
		books = ev.Bookmakers
	case '[':
		if err := json.Unmarshal(trimmed, &books); err != nil {
			return nil, fmt.Errorf("解析盘口响应失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("盘口响应格式未知")
	}

	var book *rawBookmaker
	for i := range books {
		key := books[i].Key
		if key == "" {
			key = books[i].BookmakerKey
		}
		if key == bookmaker {
			book = &books[i]
			break
		}
	}
	if book == nil {
		return out, nil
	}

	lastUpdate := book.LastUpdate
	if lastUpdate == nil {
		lastUpdate = book.LastUpdateAlt
	}
	wanted := make(map[string]struct{}, len(markets))
	for _, m := range markets {
		if m = strings.TrimSpace(m); m != "" {
			wanted[m] = struct{}{}
		}
	}

	for _, m := range book.Markets {
		if _, ok := wanted[m.Key]; len(wanted) > 0 && !ok {
			continue
		}
		out.Markets = append(out.Markets, model.MarketLines{
			Key:        m.Key,
			LastUpdate: lastUpdate,
			Lines:      pairOutcomes(m.Outcomes),
		})
	}
	return out, nil
}

// pairOutcomes 按球员（description）合并 Over/Under，保持首次出现顺序
func pairOutcomes(outcomes []rawOutcome) []model.PropLine {
	type pair struct {
		over, under *model.PropSide
	}
	order := make([]string, 0)
	byPlayer := make(map[string]*pair)
	for _, o := range outcomes {
		if o.Description == "" {
			continue
		}
		p, ok := byPlayer[o.Description]
		if !ok {
			p = &pair{}
			byPlayer[o.Description] = p
			order = append(order, o.Description)
		}
		if o.Price == nil || o.Point == nil {
			continue
		}
		side := &model.PropSide{Odds: *o.Price, Point: *o.Point}
		switch strings.ToLower(o.Name) {
		case "over":
			p.over = side
		case "under":
			p.under = side
		}
	}

	lines := make([]model.PropLine, 0, len(order))
	for _, name := range order {
		p := byPlayer[name]
		if p.over == nil || p.under == nil {
			continue
		}
		lines = append(lines, model.PropLine{Player: name, Over: *p.over, Under: *p.under})
	}
	return lines
}
