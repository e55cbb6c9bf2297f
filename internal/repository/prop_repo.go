package repository

import (
	"context"

	"PropSync/internal/model"

	"gorm.io/gorm"
)

// PropRepository 当前盘口与历史快照写入仓储
type PropRepository interface {
	// Transaction 在单个事务内执行 fn，fn 中必须使用传入的 repo
	Transaction(ctx context.Context, fn func(repo PropRepository) error) error
	FindProp(ctx context.Context, eventID, playerName, marketKey string) (*model.PlayerProp, error)
	SaveProp(ctx context.Context, p *model.PlayerProp) error
	AppendHistory(ctx context.Context, h *model.PropLineHistory) error
	// ListByEvent 活跃盘口，markets 为空时不过滤
	ListByEvent(ctx context.Context, eventID string, markets []string) ([]*model.PlayerProp, error)
	ListActive(ctx context.Context) ([]*model.PlayerProp, error)
	// ListPlayerNames 盘口及历史中出现过的全部球员名（去重、升序）
	ListPlayerNames(ctx context.Context) ([]string, error)
}

type propRepository struct {
	db *gorm.DB
}

func NewPropRepository(db *gorm.DB) PropRepository {
	return &propRepository{db: db}
}

func (r *propRepository) Transaction(ctx context.Context, fn func(repo PropRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&propRepository{db: tx})
	})
}

func (r *propRepository) FindProp(ctx context.Context, eventID, playerName, marketKey string) (*model.PlayerProp, error) {
	var p model.PlayerProp
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND player_name = ? AND market_key = ?", eventID, playerName, marketKey).
		First(&p).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *propRepository) SaveProp(ctx context.Context, p *model.PlayerProp) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *propRepository) AppendHistory(ctx context.Context, h *model.PropLineHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *propRepository) ListByEvent(ctx context.Context, eventID string, markets []string) ([]*model.PlayerProp, error) {
	db := r.db.WithContext(ctx).Where("event_id = ? AND is_active = ?", eventID, true)
	if len(markets) > 0 {
		db = db.Where("market_key IN ?", markets)
	}
	var list []*model.PlayerProp
	if err := db.Order("market_key ASC, player_name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *propRepository) ListActive(ctx context.Context) ([]*model.PlayerProp, error) {
	var list []*model.PlayerProp
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).
		Order("game_id ASC, player_name ASC, market_key ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *propRepository) ListPlayerNames(ctx context.Context) ([]string, error) {
	var fromProps, fromHistory []string
	if err := r.db.WithContext(ctx).Model(&model.PlayerProp{}).Distinct().Pluck("player_name", &fromProps).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.PropLineHistory{}).Distinct().Pluck("player_name", &fromHistory).Error; err != nil {
		return nil, err
	}
	return mergeSorted(fromProps, fromHistory), nil
}
