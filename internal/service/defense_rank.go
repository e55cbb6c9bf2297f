package service

import (
	"context"
	"fmt"
	"sort"

	"PropSync/internal/model"
	"PropSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// RankMin 按值排名，并列取最小名次（1,2,2,4）；ascending=true 时值越小名次越靠前
func RankMin(values map[string]float64, ascending bool) map[string]int {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := values[keys[i]], values[keys[j]]
		if a != b {
			if ascending {
				return a < b
			}
			return a > b
		}
		return keys[i] < keys[j]
	})
	ranks := make(map[string]int, len(keys))
	for i, k := range keys {
		if i > 0 && values[k] == values[keys[i-1]] {
			ranks[k] = ranks[keys[i-1]]
			continue
		}
		ranks[k] = i + 1
	}
	return ranks
}

// yardage 单周或场均码数
type yardage struct {
	Pass, Rush, Rec float64
}

func (y *yardage) add(s *model.PlayerStats) {
	if s.PassingYards != nil {
		y.Pass += *s.PassingYards
	}
	if s.RushingYards != nil {
		y.Rush += *s.RushingYards
	}
	if s.ReceivingYards != nil {
		y.Rec += *s.ReceivingYards
	}
}

// weeklyTotals team -> week -> 当周码数合计
type weeklyTotals map[string]map[int]*yardage

func (w weeklyTotals) add(team string, week int, s *model.PlayerStats) {
	if team == "" {
		return
	}
	if w[team] == nil {
		w[team] = make(map[int]*yardage)
	}
	if w[team][week] == nil {
		w[team][week] = &yardage{}
	}
	w[team][week].add(s)
}

// toDate 截至 week（含）的场均
func (w weeklyTotals) toDate(team string, week int) (yardage, bool) {
	var sum yardage
	n := 0
	for wk, y := range w[team] {
		if wk > week {
			continue
		}
		sum.Pass += y.Pass
		sum.Rush += y.Rush
		sum.Rec += y.Rec
		n++
	}
	if n == 0 {
		return yardage{}, false
	}
	return yardage{Pass: sum.Pass / float64(n), Rush: sum.Rush / float64(n), Rec: sum.Rec / float64(n)}, true
}

// DefenseService 由球员统计汇总球队攻防数据并排名
type DefenseService struct {
	statsRepo     repository.StatsRepository
	teamStatsRepo repository.TeamStatsRepository
	logger        *logrus.Logger
}

func NewDefenseService(statsRepo repository.StatsRepository, teamStatsRepo repository.TeamStatsRepository, logger *logrus.Logger) *DefenseService {
	return &DefenseService{statsRepo: statsRepo, teamStatsRepo: teamStatsRepo, logger: logger}
}

// RecomputeRanks 重算一个赛季每周的攻防排名；season<=0 时取统计中最新赛季
func (s *DefenseService) RecomputeRanks(ctx context.Context, season int) (*BatchSummary, error) {
	summary := NewBatchSummary("defense")
	if season <= 0 {
		latest, err := s.statsRepo.LatestSeason(ctx)
		if err != nil {
			return nil, fmt.Errorf("查询最新赛季失败: %w", err)
		}
		season = latest
	}
	stats, err := s.statsRepo.ListBySeason(ctx, season, 0)
	if err != nil {
		return nil, fmt.Errorf("查询球员统计失败: %w", err)
	}

	allowed, gained := weeklyTotals{}, weeklyTotals{}
	weekSet := make(map[int]struct{})
	for _, st := range stats {
		allowed.add(st.OpponentAbbr, st.Week, st)
		gained.add(st.TeamAbbr, st.Week, st)
		weekSet[st.Week] = struct{}{}
	}
	weeks := make([]int, 0, len(weekSet))
	for w := range weekSet {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	for _, week := range weeks {
		if ctx.Err() != nil {
			return summary.Finish(), ctx.Err()
		}
		for _, row := range defenseRows(allowed, season, week) {
			if err := s.teamStatsRepo.UpsertDefense(ctx, row); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{"team": row.TeamAbbr, "week": week}).Warn("写入防守排名失败")
				summary.Fail(fmt.Sprintf("defense/%s/%d", row.TeamAbbr, week), err)
				continue
			}
			summary.Succeed()
		}
		for _, row := range offenseRows(gained, season, week) {
			if err := s.teamStatsRepo.UpsertOffense(ctx, row); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{"team": row.TeamAbbr, "week": week}).Warn("写入进攻排名失败")
				summary.Fail(fmt.Sprintf("offense/%s/%d", row.TeamAbbr, week), err)
				continue
			}
			summary.Succeed()
		}
	}
	s.logger.WithFields(logrus.Fields{"season": season, "weeks": len(weeks)}).Info("攻防排名重算完成")
	return summary.Finish(), nil
}

// defenseRows 截至 week 的场均被推进码数排名，被推进越少名次越靠前
func defenseRows(allowed weeklyTotals, season, week int) []*model.TeamDefense {
	avg := make(map[string]yardage)
	pass, rush, rec := map[string]float64{}, map[string]float64{}, map[string]float64{}
	for team := range allowed {
		y, ok := allowed.toDate(team, week)
		if !ok {
			continue
		}
		avg[team] = y
		pass[team], rush[team], rec[team] = y.Pass, y.Rush, y.Rec
	}
	passRank, rushRank, recRank := RankMin(pass, true), RankMin(rush, true), RankMin(rec, true)
	overall := make(map[string]float64, len(avg))
	for team := range avg {
		overall[team] = float64(passRank[team]+rushRank[team]+recRank[team]) / 3
	}
	overallRank := RankMin(overall, true)

	rows := make([]*model.TeamDefense, 0, len(avg))
	for _, team := range sortedKeys(avg) {
		y := avg[team]
		rows = append(rows, &model.TeamDefense{
			TeamAbbr:             team,
			Season:               season,
			Week:                 week,
			PassYdsAllowed:       y.Pass,
			RushYdsAllowed:       y.Rush,
			RecYdsAllowed:        y.Rec,
			PassDefenseRank:      passRank[team],
			RushDefenseRank:      rushRank[team],
			ReceivingDefenseRank: recRank[team],
			OverallDefenseRank:   overallRank[team],
		})
	}
	return rows
}

// offenseRows 截至 week 的场均推进码数排名，推进越多名次越靠前
func offenseRows(gained weeklyTotals, season, week int) []*model.TeamOffense {
	avg := make(map[string]yardage)
	pass, rush := map[string]float64{}, map[string]float64{}
	for team := range gained {
		y, ok := gained.toDate(team, week)
		if !ok {
			continue
		}
		avg[team] = y
		pass[team], rush[team] = y.Pass, y.Rush
	}
	passRank, rushRank := RankMin(pass, false), RankMin(rush, false)
	overall := make(map[string]float64, len(avg))
	for team := range avg {
		overall[team] = float64(passRank[team]+rushRank[team]) / 2
	}
	overallRank := RankMin(overall, true)

	rows := make([]*model.TeamOffense, 0, len(avg))
	for _, team := range sortedKeys(avg) {
		y := avg[team]
		rows = append(rows, &model.TeamOffense{
			TeamAbbr:           team,
			Season:             season,
			Week:               week,
			PassYds:            y.Pass,
			RushYds:            y.Rush,
			RecYds:             y.Rec,
			PassOffenseRank:    passRank[team],
			RushOffenseRank:    rushRank[team],
			OverallOffenseRank: overallRank[team],
		})
	}
	return rows
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
