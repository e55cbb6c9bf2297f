package repository

import (
	"context"
	"fmt"

	"PropSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerRepository 规范球员仓储
type PlayerRepository interface {
	GetByPlayerID(ctx context.Context, playerID string) (*model.Player, error)
	// FindByName 按展示名精确匹配，多条时取 id 最小
	FindByName(ctx context.Context, name string) (*model.Player, error)
	Upsert(ctx context.Context, p *model.Player) error
	UpdateTeamPosition(ctx context.Context, playerID string, team *string, position string) error
	// Merge 将 dropID 的统计和预测改挂到 keepID，回写位置/球队后删除 dropID，全程一个事务
	Merge(ctx context.Context, keepID, dropID string, position string, team *string) error
}

type playerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) GetByPlayerID(ctx context.Context, playerID string) (*model.Player, error) {
	var p model.Player
	err := r.db.WithContext(ctx).Where("player_id = ?", playerID).First(&p).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *playerRepository) FindByName(ctx context.Context, name string) (*model.Player, error) {
	var p model.Player
	err := r.db.WithContext(ctx).Where("player_name = ?", name).Order("id ASC").First(&p).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *playerRepository) Upsert(ctx context.Context, p *model.Player) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"player_name", "position", "team_abbr", "updated_at"}),
	}).Create(p).Error
}

func (r *playerRepository) UpdateTeamPosition(ctx context.Context, playerID string, team *string, position string) error {
	return r.db.WithContext(ctx).Model(&model.Player{}).Where("player_id = ?", playerID).
		Updates(map[string]interface{}{"team_abbr": team, "position": position}).Error
}

func (r *playerRepository) Merge(ctx context.Context, keepID, dropID string, position string, team *string) error {
	if keepID == dropID {
		return fmt.Errorf("合并双方为同一球员: %s", keepID)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 统计：保留方已有同场数据时丢弃被替代方的该场记录
		if err := tx.Where("player_id = ? AND game_id IN (?)", dropID,
			tx.Model(&model.PlayerStats{}).Select("game_id").Where("player_id = ?", keepID),
		).Delete(&model.PlayerStats{}).Error; err != nil {
			return fmt.Errorf("清理重复统计失败: %w", err)
		}
		if err := tx.Model(&model.PlayerStats{}).Where("player_id = ?", dropID).
			Update("player_id", keepID).Error; err != nil {
			return fmt.Errorf("迁移统计失败: %w", err)
		}

		// 2. 预测：同理按 (game_id, prop_type) 去重
		var keepKeys []struct {
			GameID   string
			PropType string
		}
		if err := tx.Model(&model.Prediction{}).Select("game_id, prop_type").
			Where("player_id = ?", keepID).Scan(&keepKeys).Error; err != nil {
			return fmt.Errorf("查询预测失败: %w", err)
		}
		for _, k := range keepKeys {
			if err := tx.Where("player_id = ? AND game_id = ? AND prop_type = ?", dropID, k.GameID, k.PropType).
				Delete(&model.Prediction{}).Error; err != nil {
				return fmt.Errorf("清理重复预测失败: %w", err)
			}
		}
		if err := tx.Model(&model.Prediction{}).Where("player_id = ?", dropID).
			Update("player_id", keepID).Error; err != nil {
			return fmt.Errorf("迁移预测失败: %w", err)
		}

		// 3. 回写保留方资料
		updates := map[string]interface{}{}
		if position != "" {
			updates["position"] = position
		}
		if team != nil {
			updates["team_abbr"] = *team
		}
		if len(updates) > 0 {
			if err := tx.Model(&model.Player{}).Where("player_id = ?", keepID).Updates(updates).Error; err != nil {
				return fmt.Errorf("更新保留球员失败: %w", err)
			}
		}

		// 4. 删除被替代方
		if err := tx.Where("player_id = ?", dropID).Delete(&model.Player{}).Error; err != nil {
			return fmt.Errorf("删除被替代球员失败: %w", err)
		}
		return nil
	})
}
