package repository

import (
	"context"

	"PropSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TeamStatsRepository 球队攻防周度汇总仓储
type TeamStatsRepository interface {
	UpsertDefense(ctx context.Context, d *model.TeamDefense) error
	UpsertOffense(ctx context.Context, o *model.TeamOffense) error
	// LatestDefense 赛季内 week 及之前最近一周的防守数据
	LatestDefense(ctx context.Context, team string, season, week int) (*model.TeamDefense, error)
}

type teamStatsRepository struct {
	db *gorm.DB
}

func NewTeamStatsRepository(db *gorm.DB) TeamStatsRepository {
	return &teamStatsRepository{db: db}
}

func (r *teamStatsRepository) UpsertDefense(ctx context.Context, d *model.TeamDefense) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "team_abbr"}, {Name: "season"}, {Name: "week"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"pass_yds_allowed", "rush_yds_allowed", "rec_yds_allowed", "pass_defense_rank",
			"rush_defense_rank", "receiving_defense_rank", "overall_defense_rank", "updated_at",
		}),
	}).Create(d).Error
}

func (r *teamStatsRepository) UpsertOffense(ctx context.Context, o *model.TeamOffense) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "team_abbr"}, {Name: "season"}, {Name: "week"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"pass_yds", "rush_yds", "rec_yds", "pass_offense_rank", "rush_offense_rank", "overall_offense_rank", "updated_at",
		}),
	}).Create(o).Error
}

func (r *teamStatsRepository) LatestDefense(ctx context.Context, team string, season, week int) (*model.TeamDefense, error) {
	var d model.TeamDefense
	err := r.db.WithContext(ctx).Where("team_abbr = ? AND season = ? AND week <= ?", team, season, week).
		Order("week DESC").First(&d).Error
	if missing, err := notFound(err); missing || err != nil {
		return nil, err
	}
	return &d, nil
}
