package repository

import (
	"context"
	"sort"

	"PropSync/internal/model"

	"gorm.io/gorm"
)

// HistoryFilter 历史快照筛选
type HistoryFilter struct {
	GameID    string
	MarketKey string
}

// HistoryRepository 历史快照读取与 CLV 回写仓储
type HistoryRepository interface {
	// List 按 (game_id, player_name, market_key, captured_at, id) 升序返回
	List(ctx context.Context, filter HistoryFilter) ([]*model.PropLineHistory, error)
	// UpdateCLV 只回写 CLV 相关字段，单事务
	UpdateCLV(ctx context.Context, rows []*model.PropLineHistory) error
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) List(ctx context.Context, filter HistoryFilter) ([]*model.PropLineHistory, error) {
	db := r.db.WithContext(ctx)
	if filter.GameID != "" {
		db = db.Where("game_id = ?", filter.GameID)
	}
	if filter.MarketKey != "" {
		db = db.Where("market_key = ?", filter.MarketKey)
	}
	var list []*model.PropLineHistory
	if err := db.Order("game_id ASC, player_name ASC, market_key ASC, captured_at ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *historyRepository) UpdateCLV(ctx context.Context, rows []*model.PropLineHistory) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, h := range rows {
			if err := tx.Model(&model.PropLineHistory{}).Where("id = ?", h.ID).Updates(map[string]interface{}{
				"is_opening_line": h.IsOpeningLine,
				"is_closing_line": h.IsClosingLine,
				"is_our_capture":  h.IsOurCapture,
				"clv_vs_opening":  h.CLVVsOpening,
				"clv_vs_closing":  h.CLVVsClosing,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok || s == "" {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
