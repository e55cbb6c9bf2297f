package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"PropSync/internal/model"
	"PropSync/internal/repository"

	"github.com/sirupsen/logrus"
)

const pushEpsilon = 1e-9

// StatForMarket 盘口类型对应的统计值；不支持的盘口或统计缺失返回 nil
func StatForMarket(stats *model.PlayerStats, marketKey string) *float64 {
	if stats == nil {
		return nil
	}
	switch marketKey {
	case "player_pass_yds":
		return stats.PassingYards
	case "player_rush_yds":
		return stats.RushingYards
	case "player_reception_yds":
		return stats.ReceivingYards
	case "player_pass_attempts":
		return stats.PassingAttempts
	case "player_rush_attempts":
		return stats.RushingAttempts
	case "player_receptions":
		return stats.Receptions
	case "player_pass_tds":
		return stats.PassingTDs
	case "player_rush_tds":
		return stats.RushingTDs
	case "player_reception_tds":
		return stats.ReceivingTDs
	}
	return nil
}

// SupportedMarket 是否有对应的统计字段
func SupportedMarket(marketKey string) bool {
	switch marketKey {
	case "player_pass_yds", "player_rush_yds", "player_reception_yds",
		"player_pass_attempts", "player_rush_attempts", "player_receptions",
		"player_pass_tds", "player_rush_tds", "player_reception_tds":
		return true
	}
	return false
}

// DetermineOutcome 实际值与盘口比较
func DetermineOutcome(actual *float64, line float64) string {
	switch {
	case actual == nil:
		return model.OutcomeVoid
	case math.Abs(*actual-line) < pushEpsilon:
		return model.OutcomePush
	case *actual > line:
		return model.OutcomeOver
	default:
		return model.OutcomeUnder
	}
}

// SelectSnapshot 从单个分区选出结算用的快照：
// 开赛前（含）最晚的一条；没有则取开赛后最早的一条。同一时刻取 id 最大。kickoff 为 nil 时取最晚一条
func SelectSnapshot(rows []*model.PropLineHistory, kickoff *time.Time) *model.PropLineHistory {
	var before, after *model.PropLineHistory
	for _, h := range rows {
		if kickoff == nil || !h.CapturedAt.After(*kickoff) {
			if before == nil || h.CapturedAt.After(before.CapturedAt) ||
				(h.CapturedAt.Equal(before.CapturedAt) && h.ID > before.ID) {
				before = h
			}
			continue
		}
		if after == nil || h.CapturedAt.Before(after.CapturedAt) ||
			(h.CapturedAt.Equal(after.CapturedAt) && h.ID > after.ID) {
			after = h
		}
	}
	if before != nil {
		return before
	}
	return after
}

// GradeOptions 结算范围
type GradeOptions struct {
	GameID    string
	MarketKey string
	DryRun    bool
}

// GradingService 盘口结算
type GradingService struct {
	historyRepo repository.HistoryRepository
	gameRepo    repository.GameRepository
	statsRepo   repository.StatsRepository
	gradeRepo   repository.GradeRepository
	identity    *IdentityService
	now         func() time.Time
	logger      *logrus.Logger
}

func NewGradingService(historyRepo repository.HistoryRepository, gameRepo repository.GameRepository, statsRepo repository.StatsRepository, gradeRepo repository.GradeRepository, identity *IdentityService, logger *logrus.Logger) *GradingService {
	return &GradingService{
		historyRepo: historyRepo,
		gameRepo:    gameRepo,
		statsRepo:   statsRepo,
		gradeRepo:   gradeRepo,
		identity:    identity,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

// Grade 每个 (比赛, 球员, 盘口) 结算一次，结果按历史行覆盖写入
func (s *GradingService) Grade(ctx context.Context, opts GradeOptions) (*BatchSummary, error) {
	summary := NewBatchSummary("grade")
	rows, err := s.historyRepo.List(ctx, repository.HistoryFilter{GameID: opts.GameID, MarketKey: opts.MarketKey})
	if err != nil {
		return nil, fmt.Errorf("查询盘口历史失败: %w", err)
	}
	games := make(map[string]*model.Game)
	for _, part := range partitions(rows) {
		if ctx.Err() != nil {
			return summary.Finish(), ctx.Err()
		}
		unit := fmt.Sprintf("%s/%s/%s", part[0].GameID, part[0].PlayerName, part[0].MarketKey)
		grade, err := s.gradePartition(ctx, part, games)
		if err != nil {
			s.logger.WithError(err).WithField("unit", unit).Warn("结算失败，跳过")
			summary.Fail(unit, err)
			continue
		}
		if !opts.DryRun {
			if err := s.gradeRepo.Upsert(ctx, grade); err != nil {
				s.logger.WithError(err).WithField("unit", unit).Warn("写入结算结果失败")
				summary.Fail(unit, err)
				continue
			}
		}
		s.logger.WithFields(logrus.Fields{
			"unit":    unit,
			"line":    grade.LineValue.String(),
			"outcome": grade.Outcome,
		}).Debug("已结算")
		summary.Succeed()
	}
	return summary.Finish(), nil
}

func (s *GradingService) gradePartition(ctx context.Context, part []*model.PropLineHistory, games map[string]*model.Game) (*model.PropGrade, error) {
	gameID := part[0].GameID
	game, ok := games[gameID]
	if !ok {
		g, err := s.gameRepo.GetByGameID(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("查询比赛失败: %w", err)
		}
		games[gameID] = g
		game = g
	}
	var kickoff *time.Time
	if game != nil {
		kickoff = game.KickoffUTC
	}
	snap := SelectSnapshot(part, kickoff)

	actual, err := s.actualResult(ctx, game, snap)
	if err != nil {
		return nil, err
	}
	line, _ := snap.LineValue.Float64()
	return &model.PropGrade{
		PropLineHistoryID: snap.ID,
		GameID:            snap.GameID,
		PlayerName:        snap.PlayerName,
		MarketKey:         snap.MarketKey,
		LineValue:         snap.LineValue,
		LabelValue:        actual,
		Outcome:           DetermineOutcome(actual, line),
		GradedAt:          s.now(),
	}, nil
}

// actualResult 找不到比赛、球员或统计时返回 nil（结算为 void），仅存储错误返回 error
func (s *GradingService) actualResult(ctx context.Context, game *model.Game, snap *model.PropLineHistory) (*float64, error) {
	if game == nil {
		return nil, nil
	}
	playerID, err := s.identity.ResolvePlayerID(ctx, snap.PlayerName)
	if err != nil {
		return nil, fmt.Errorf("解析球员失败: %w", err)
	}
	if playerID == "" {
		return nil, nil
	}
	stats, err := s.statsRepo.Get(ctx, playerID, game.GameID)
	if err != nil {
		return nil, fmt.Errorf("查询球员统计失败: %w", err)
	}
	return StatForMarket(stats, snap.MarketKey), nil
}
