package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PropSync/internal/model"
	"PropSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// DefaultDefenseRank 查不到防守数据时的排名
const DefaultDefenseRank = 16

// PredictionConfig 预测参数
type PredictionConfig struct {
	Simulations  int
	Seed         uint64
	ModelVersion string
}

// PredictOptions 预测范围，GameID 为空时覆盖全部活跃盘口
type PredictOptions struct {
	GameID string
	DryRun bool
}

// PredictionService 简单统计 + 蒙特卡洛预测
type PredictionService struct {
	propRepo      repository.PropRepository
	gameRepo      repository.GameRepository
	playerRepo    repository.PlayerRepository
	statsRepo     repository.StatsRepository
	teamStatsRepo repository.TeamStatsRepository
	predRepo      repository.PredictionRepository
	identity      *IdentityService
	cfg           PredictionConfig
	logger        *logrus.Logger
}

func NewPredictionService(propRepo repository.PropRepository, gameRepo repository.GameRepository, playerRepo repository.PlayerRepository, statsRepo repository.StatsRepository, teamStatsRepo repository.TeamStatsRepository, predRepo repository.PredictionRepository, identity *IdentityService, cfg PredictionConfig, logger *logrus.Logger) *PredictionService {
	if cfg.Simulations <= 0 {
		cfg.Simulations = DefaultSimulations
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = "4.0_simple"
	}
	return &PredictionService{
		propRepo:      propRepo,
		gameRepo:      gameRepo,
		playerRepo:    playerRepo,
		statsRepo:     statsRepo,
		teamStatsRepo: teamStatsRepo,
		predRepo:      predRepo,
		identity:      identity,
		cfg:           cfg,
		logger:        logger,
	}
}

// modelCache 同一批次内按 (赛季, 周, 盘口) 复用模型
type modelCache map[string]*MarketModel

// marketModel 比赛之前的统计窗口：当季 game.Week 之前；第 1 周使用上赛季全部
func (s *PredictionService) marketModel(ctx context.Context, game *model.Game, marketKey string, cache modelCache) (*MarketModel, error) {
	season, maxWeek := game.Season, game.Week-1
	if maxWeek < 1 {
		season, maxWeek = game.Season-1, 0
	}
	key := fmt.Sprintf("%d:%d:%s", season, maxWeek, marketKey)
	if m, ok := cache[key]; ok {
		return m, nil
	}
	stats, err := s.statsRepo.ListBySeason(ctx, season, maxWeek)
	if err != nil {
		return nil, fmt.Errorf("查询球员统计失败: %w", err)
	}
	m := BuildMarketModel(marketKey, stats)
	cache[key] = m
	return m, nil
}

// defenseRankFor 按盘口类型选取对手的防守排名
func defenseRankFor(d *model.TeamDefense, marketKey string) int {
	if d == nil {
		return DefaultDefenseRank
	}
	rank := d.OverallDefenseRank
	switch {
	case strings.Contains(marketKey, "pass"):
		rank = d.PassDefenseRank
	case strings.Contains(marketKey, "rush"):
		rank = d.RushDefenseRank
	case strings.Contains(marketKey, "reception"), strings.Contains(marketKey, "receiving"):
		rank = d.ReceivingDefenseRank
	}
	if rank <= 0 {
		return DefaultDefenseRank
	}
	return rank
}

// opponentMultiplier 球员所在队不属于本场比赛时不调整
func (s *PredictionService) opponentMultiplier(ctx context.Context, player *model.Player, game *model.Game, marketKey string) (float64, error) {
	if player == nil || player.TeamAbbr == nil {
		return 1, nil
	}
	var opponent string
	switch *player.TeamAbbr {
	case game.HomeTeam:
		opponent = game.AwayTeam
	case game.AwayTeam:
		opponent = game.HomeTeam
	default:
		return 1, nil
	}
	d, err := s.teamStatsRepo.LatestDefense(ctx, opponent, game.Season, game.Week)
	if err != nil {
		return 1, fmt.Errorf("查询对手防守数据失败: %w", err)
	}
	if d == nil {
		return 1, nil
	}
	return OpponentMultiplier(defenseRankFor(d, marketKey)), nil
}

// PredictLine 为指定球员、比赛、盘口和盘口值生成预测（不落库）
func (s *PredictionService) PredictLine(ctx context.Context, player *model.Player, game *model.Game, marketKey string, line float64, cache modelCache) (*model.Prediction, error) {
	if cache == nil {
		cache = modelCache{}
	}
	m, err := s.marketModel(ctx, game, marketKey, cache)
	if err != nil {
		return nil, err
	}
	mult, err := s.opponentMultiplier(ctx, player, game, marketKey)
	if err != nil {
		return nil, err
	}
	mean, std, ok := m.Estimate(player.PlayerID, mult)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", player.PlayerID, marketKey, ErrNoStatsAvailable)
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	sim := Simulate(mean, std, line, s.cfg.Simulations, seed)
	userLine := line
	return &model.Prediction{
		PlayerID:         player.PlayerID,
		GameID:           game.GameID,
		PropType:         marketKey,
		PredictedValue:   mean,
		ConfidenceLower:  sim.Lower,
		ConfidenceUpper:  sim.Upper,
		OverProbability:  sim.OverProbability,
		UnderProbability: sim.UnderProbability,
		ModelLine:        mean,
		UserLine:         &userLine,
		Edge:             mean - line,
		Rationale: fmt.Sprintf("Simple Statistical + Monte Carlo: μ=%.1f, σ=%.1f, P(Over)=%.1f%%",
			mean, std, sim.OverProbability*100),
		ModelVersion: s.cfg.ModelVersion,
	}, nil
}

// resolvePlayer 盘口名 -> 球员；不存在时按规范 ID 建档
func (s *PredictionService) resolvePlayer(ctx context.Context, propName string) (*model.Player, error) {
	playerID, err := s.identity.ResolvePlayerID(ctx, propName)
	if err != nil {
		return nil, err
	}
	if playerID != "" {
		p, err := s.playerRepo.GetByPlayerID(ctx, playerID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	} else {
		playerID = CanonicalPlayerID(propName)
	}
	p := &model.Player{PlayerID: playerID, PlayerName: propName}
	if err := s.playerRepo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("创建球员失败: %w", err)
	}
	return s.playerRepo.GetByPlayerID(ctx, playerID)
}

// Predict 为活跃盘口批量生成预测；盘口值取 over 一侧
func (s *PredictionService) Predict(ctx context.Context, opts PredictOptions) (*BatchSummary, error) {
	summary := NewBatchSummary("predict")
	props, err := s.propRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询活跃盘口失败: %w", err)
	}
	cache := modelCache{}
	games := make(map[string]*model.Game)
	for _, prop := range props {
		if opts.GameID != "" && prop.GameID != opts.GameID {
			continue
		}
		if ctx.Err() != nil {
			return summary.Finish(), ctx.Err()
		}
		unit := fmt.Sprintf("%s/%s/%s", prop.GameID, prop.PlayerName, prop.MarketKey)
		if !SupportedMarket(prop.MarketKey) {
			summary.Skip()
			continue
		}

		game, ok := games[prop.GameID]
		if !ok {
			game, err = s.gameRepo.GetByGameID(ctx, prop.GameID)
			if err != nil {
				summary.Fail(unit, err)
				continue
			}
			games[prop.GameID] = game
		}
		if game == nil {
			summary.Skip()
			continue
		}

		pred, err := s.predictProp(ctx, prop, game, cache)
		if err != nil {
			if errors.Is(err, ErrNoStatsAvailable) {
				s.logger.WithField("unit", unit).Debug("无可用统计，跳过预测")
				summary.Skip()
				continue
			}
			s.logger.WithError(err).WithField("unit", unit).Warn("预测失败，跳过")
			summary.Fail(unit, err)
			continue
		}
		if !opts.DryRun {
			if err := s.predRepo.Upsert(ctx, pred); err != nil {
				s.logger.WithError(err).WithField("unit", unit).Warn("写入预测失败")
				summary.Fail(unit, err)
				continue
			}
		}
		summary.Succeed()
	}
	return summary.Finish(), nil
}

func (s *PredictionService) predictProp(ctx context.Context, prop *model.PlayerProp, game *model.Game, cache modelCache) (*model.Prediction, error) {
	player, err := s.resolvePlayer(ctx, prop.PlayerName)
	if err != nil {
		return nil, err
	}
	line, _ := prop.OverPoint.Float64()
	return s.PredictLine(ctx, player, game, prop.MarketKey, line, cache)
}
