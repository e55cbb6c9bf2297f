package model

import "time"

// Team 球队参考数据，team_abbr 为业务主键
type Team struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	TeamAbbr  string    `gorm:"column:team_abbr;type:varchar(8);uniqueIndex;not null;comment:球队缩写"`
	TeamName  string    `gorm:"column:team_name;type:varchar(64);not null;comment:球队名称"`
	TeamCity  string    `gorm:"column:team_city;type:varchar(64);comment:所在城市"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;comment:创建时间"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime;comment:更新时间"`
}

// TeamDefense 球队防守周度汇总（赛季至今场均，1 为最强防守）
type TeamDefense struct {
	ID                   uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	TeamAbbr             string    `gorm:"column:team_abbr;type:varchar(8);not null;uniqueIndex:uq_team_defense_week"`
	Season               int       `gorm:"column:season;not null;uniqueIndex:uq_team_defense_week"`
	Week                 int       `gorm:"column:week;not null;uniqueIndex:uq_team_defense_week"`
	PassYdsAllowed       float64   `gorm:"column:pass_yds_allowed;type:numeric(8,2);default:0;comment:场均被传球码数"`
	RushYdsAllowed       float64   `gorm:"column:rush_yds_allowed;type:numeric(8,2);default:0;comment:场均被冲球码数"`
	RecYdsAllowed        float64   `gorm:"column:rec_yds_allowed;type:numeric(8,2);default:0;comment:场均被接球码数"`
	PassDefenseRank      int       `gorm:"column:pass_defense_rank;default:16"`
	RushDefenseRank      int       `gorm:"column:rush_defense_rank;default:16"`
	ReceivingDefenseRank int       `gorm:"column:receiving_defense_rank;default:16"`
	OverallDefenseRank   int       `gorm:"column:overall_defense_rank;default:16"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TeamOffense 球队进攻周度汇总（赛季至今场均，1 为最强进攻）
type TeamOffense struct {
	ID                 uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	TeamAbbr           string    `gorm:"column:team_abbr;type:varchar(8);not null;uniqueIndex:uq_team_offense_week"`
	Season             int       `gorm:"column:season;not null;uniqueIndex:uq_team_offense_week"`
	Week               int       `gorm:"column:week;not null;uniqueIndex:uq_team_offense_week"`
	PassYds            float64   `gorm:"column:pass_yds;type:numeric(8,2);default:0"`
	RushYds            float64   `gorm:"column:rush_yds;type:numeric(8,2);default:0"`
	RecYds             float64   `gorm:"column:rec_yds;type:numeric(8,2);default:0"`
	PassOffenseRank    int       `gorm:"column:pass_offense_rank;default:16"`
	RushOffenseRank    int       `gorm:"column:rush_offense_rank;default:16"`
	OverallOffenseRank int       `gorm:"column:overall_offense_rank;default:16"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Team) TableName() string        { return "teams" }
func (TeamDefense) TableName() string { return "team_defense" }
func (TeamOffense) TableName() string { return "team_offense" }
