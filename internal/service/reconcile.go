package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"PropSync/internal/model"
	"PropSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// unknownTeam 名册中未知球队的占位
const unknownTeam = "UNK"

// ReconcileOptions 球员资料校正参数
type ReconcileOptions struct {
	Season  int
	Refresh bool
	DryRun  bool
}

// ReconcileService 以参考名册为准校正球员的球队和位置，并合并重复球员
type ReconcileService struct {
	playerRepo  repository.PlayerRepository
	teamRepo    repository.TeamRepository
	mappingRepo repository.MappingRepository
	propRepo    repository.PropRepository
	roster      *RosterLoader
	logger      *logrus.Logger
}

func NewReconcileService(playerRepo repository.PlayerRepository, teamRepo repository.TeamRepository, mappingRepo repository.MappingRepository, propRepo repository.PropRepository, roster *RosterLoader, logger *logrus.Logger) *ReconcileService {
	return &ReconcileService{
		playerRepo:  playerRepo,
		teamRepo:    teamRepo,
		mappingRepo: mappingRepo,
		propRepo:    propRepo,
		roster:      roster,
		logger:      logger,
	}
}

// FindRosterEntry 先按展示名精确匹配，再按姓（最后一个词）包含匹配，取名册中第一条
func FindRosterEntry(roster []model.RosterPlayer, name string) (*model.RosterPlayer, bool) {
	for i := range roster {
		if roster[i].DisplayName == name {
			return &roster[i], true
		}
	}
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return nil, false
	}
	last := parts[len(parts)-1]
	for i := range roster {
		if strings.Contains(roster[i].DisplayName, last) {
			return &roster[i], true
		}
	}
	return nil, false
}

// activePropNames 活跃盘口中的球员名（去重、升序）
func (s *ReconcileService) activePropNames(ctx context.Context) ([]string, error) {
	props, err := s.propRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var names []string
	for _, p := range props {
		if _, ok := seen[p.PlayerName]; ok {
			continue
		}
		seen[p.PlayerName] = struct{}{}
		names = append(names, p.PlayerName)
	}
	sort.Strings(names)
	return names, nil
}

// Reconcile 为有活跃盘口的球员回写名册中的球队和位置；可重复执行，结果一致
func (s *ReconcileService) Reconcile(ctx context.Context, opts ReconcileOptions) (*BatchSummary, error) {
	summary := NewBatchSummary("reconcile")
	roster, err := s.roster.Load(ctx, opts.Season, opts.Refresh)
	if err != nil {
		return nil, fmt.Errorf("加载名册失败: %w", err)
	}
	names, err := s.activePropNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询活跃盘口球员失败: %w", err)
	}

	for _, name := range names {
		if ctx.Err() != nil {
			return summary.Finish(), ctx.Err()
		}
		player, err := s.playerRepo.FindByName(ctx, name)
		if err != nil {
			s.logger.WithError(err).WithField("player", name).Warn("查询球员失败")
			summary.Fail(name, err)
			continue
		}
		if player == nil {
			summary.Add("not_found", 1)
			summary.Skip()
			continue
		}
		entry, ok := FindRosterEntry(roster, name)
		if !ok || entry.LatestTeam == "" {
			summary.Add("not_found", 1)
			summary.Skip()
			continue
		}

		sameTeam := player.TeamAbbr != nil && *player.TeamAbbr == entry.LatestTeam
		if sameTeam && player.Position == entry.Position {
			summary.Skip()
			continue
		}
		if opts.DryRun {
			summary.Succeed()
			continue
		}
		created, err := s.teamRepo.EnsureTeam(ctx, entry.LatestTeam, entry.LatestTeam)
		if err != nil {
			s.logger.WithError(err).WithField("team", entry.LatestTeam).Warn("创建球队失败")
			summary.Fail(name, err)
			continue
		}
		if created {
			summary.Add("created_teams", 1)
		}
		team := entry.LatestTeam
		if err := s.playerRepo.UpdateTeamPosition(ctx, player.PlayerID, &team, entry.Position); err != nil {
			s.logger.WithError(err).WithField("player", name).Warn("更新球员资料失败")
			summary.Fail(name, err)
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"player":   name,
			"team":     team,
			"position": entry.Position,
		}).Debug("球员资料已更新")
		summary.Succeed()
	}
	return summary.Finish(), nil
}

// MergeDuplicates 映射两端分别建档的球员合并到盘口名一侧，每对一个事务
func (s *ReconcileService) MergeDuplicates(ctx context.Context, dryRun bool) (*BatchSummary, error) {
	summary := NewBatchSummary("merge")
	mappings, err := s.mappingRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询球员映射失败: %w", err)
	}
	for _, m := range mappings {
		if ctx.Err() != nil {
			return summary.Finish(), ctx.Err()
		}
		source, err := s.playerRepo.FindByName(ctx, m.SourceName)
		if err != nil {
			summary.Fail(m.SourceName, err)
			continue
		}
		target, err := s.playerRepo.FindByName(ctx, m.PropName)
		if err != nil {
			summary.Fail(m.PropName, err)
			continue
		}
		if source == nil || target == nil || source.ID == target.ID {
			summary.Skip()
			continue
		}
		if dryRun {
			summary.Succeed()
			continue
		}

		var team *string
		if m.CurrentTeam != "" && m.CurrentTeam != unknownTeam {
			if _, err := s.teamRepo.EnsureTeam(ctx, m.CurrentTeam, m.CurrentTeam); err != nil {
				summary.Fail(m.PropName, err)
				continue
			}
			t := m.CurrentTeam
			team = &t
		}
		if err := s.playerRepo.Merge(ctx, target.PlayerID, source.PlayerID, m.Position, team); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"keep": target.PlayerID,
				"drop": source.PlayerID,
			}).Warn("合并球员失败")
			summary.Fail(m.PropName, err)
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"keep": target.PlayerID,
			"drop": source.PlayerID,
		}).Info("重复球员已合并")
		summary.Succeed()
	}
	return summary.Finish(), nil
}
