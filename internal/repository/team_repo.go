package repository

import (
	"context"
	"strings"

	"PropSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TeamRepository 球队参考数据仓储
type TeamRepository interface {
	GetByAbbr(ctx context.Context, abbr string) (*model.Team, error)
	// EnsureTeam 不存在则创建，返回是否新建
	EnsureTeam(ctx context.Context, abbr, name string) (bool, error)
	List(ctx context.Context) ([]*model.Team, error)
}

type teamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) GetByAbbr(ctx context.Context, abbr string) (*model.Team, error) {
	var t model.Team
	err := r.db.WithContext(ctx).Where("team_abbr = ?", strings.ToUpper(abbr)).First(&t).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *teamRepository) EnsureTeam(ctx context.Context, abbr, name string) (bool, error) {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	if name == "" {
		name = abbr
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Team{TeamAbbr: abbr, TeamName: name})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *teamRepository) List(ctx context.Context) ([]*model.Team, error) {
	var list []*model.Team
	if err := r.db.WithContext(ctx).Order("team_abbr ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
