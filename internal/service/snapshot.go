package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"PropSync/internal/interfaces"
	"PropSync/internal/model"
	"PropSync/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// 刷新日志状态
const (
	RefreshStatusSuccess = "success"
	RefreshStatusEmpty   = "empty"
	RefreshStatusFailed  = "failed"
)

// 批量刷新默认覆盖的开赛时间窗口
const (
	refreshLookBehind = 4 * time.Hour
	refreshLookAhead  = 8 * 24 * time.Hour
)

// IngestResult 单场赛事写入结果
type IngestResult struct {
	Lines        int
	Created      int
	Updated      int
	Unchanged    int
	HistoryAdded int
}

// RefreshOptions 盘口刷新参数，GameID 为空时刷新窗口内全部比赛
type RefreshOptions struct {
	GameID string
	Force  bool
}

// SnapshotService 盘口快照：变更检测、追加历史、覆盖当前值
type SnapshotService struct {
	provider    interfaces.OddsProvider
	resolver    *EventResolver
	gameRepo    repository.GameRepository
	eventRepo   repository.OddsEventRepository
	propRepo    repository.PropRepository
	logRepo     repository.RefreshLogRepository
	markets     []string
	bookmaker   string
	freshness   time.Duration
	concurrency int
	now         func() time.Time
	logger      *logrus.Logger
}

// SnapshotConfig 刷新行为参数
type SnapshotConfig struct {
	Markets     []string
	Bookmaker   string
	Freshness   time.Duration
	Concurrency int
}

func NewSnapshotService(provider interfaces.OddsProvider, resolver *EventResolver, gameRepo repository.GameRepository, eventRepo repository.OddsEventRepository, propRepo repository.PropRepository, logRepo repository.RefreshLogRepository, cfg SnapshotConfig, logger *logrus.Logger) *SnapshotService {
	return &SnapshotService{
		provider:    provider,
		resolver:    resolver,
		gameRepo:    gameRepo,
		eventRepo:   eventRepo,
		propRepo:    propRepo,
		logRepo:     logRepo,
		markets:     cfg.Markets,
		bookmaker:   cfg.Bookmaker,
		freshness:   cfg.Freshness,
		concurrency: cfg.Concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

func toDecimal(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// lineChanged 任意一边的赔率或盘口值变化即视为变更
func lineChanged(p *model.PlayerProp, line model.PropLine) bool {
	return !p.OverOdds.Equal(toDecimal(line.Over.Odds)) ||
		!p.OverPoint.Equal(toDecimal(line.Over.Point)) ||
		!p.UnderOdds.Equal(toDecimal(line.Under.Odds)) ||
		!p.UnderPoint.Equal(toDecimal(line.Under.Point))
}

// IngestEvent 写入一场赛事的最新盘口；变更时先把旧值追加进历史再覆盖，整场一个事务
func (s *SnapshotService) IngestEvent(ctx context.Context, event *model.OddsEvent, parsed *model.ParsedProps) (*IngestResult, error) {
	res := &IngestResult{}
	now := s.now()
	err := s.propRepo.Transaction(ctx, func(repo repository.PropRepository) error {
		*res = IngestResult{}
		for _, m := range parsed.Markets {
			for _, line := range m.Lines {
				res.Lines++
				prop, err := repo.FindProp(ctx, event.EventID, line.Player, m.Key)
				if err != nil {
					return fmt.Errorf("查询盘口失败(%s/%s): %w", line.Player, m.Key, err)
				}
				switch {
				case prop == nil:
					prop = &model.PlayerProp{
						EventID:       event.EventID,
						PlayerName:    line.Player,
						MarketKey:     m.Key,
						MarketDisplay: model.MarketDisplay(m.Key),
					}
					res.Created++
				case lineChanged(prop, line):
					if err := repo.AppendHistory(ctx, &model.PropLineHistory{
						GameID:     event.GameID,
						PlayerName: prop.PlayerName,
						MarketKey:  prop.MarketKey,
						LineValue:  prop.OverPoint,
						OverOdds:   prop.OverOdds,
						UnderOdds:  prop.UnderOdds,
						Source:     s.bookmaker,
						CapturedAt: now,
					}); err != nil {
						return fmt.Errorf("追加盘口历史失败(%s/%s): %w", line.Player, m.Key, err)
					}
					res.HistoryAdded++
					res.Updated++
				default:
					res.Unchanged++
				}

				prop.GameID = event.GameID
				prop.Bookmaker = s.bookmaker
				prop.OverOdds = toDecimal(line.Over.Odds)
				prop.OverPoint = toDecimal(line.Over.Point)
				prop.UnderOdds = toDecimal(line.Under.Odds)
				prop.UnderPoint = toDecimal(line.Under.Point)
				prop.IsActive = true
				prop.LastUpdated = now
				if err := repo.SaveProp(ctx, prop); err != nil {
					return fmt.Errorf("保存盘口失败(%s/%s): %w", line.Player, m.Key, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RefreshGame 刷新一场比赛；freshness 窗口内刷新过的赛事在非强制时跳过，返回 skipped=true
func (s *SnapshotService) RefreshGame(ctx context.Context, runID string, game *model.Game, force bool) (*IngestResult, bool, error) {
	return s.refreshGame(ctx, runID, game, force, nil)
}

func (s *SnapshotService) refreshGame(ctx context.Context, runID string, game *model.Game, force bool, idx *EventIndex) (*IngestResult, bool, error) {
	event, err := s.resolver.ResolveWith(ctx, game, idx)
	if err != nil {
		return nil, false, err
	}
	now := s.now()
	if !force && s.freshness > 0 && !event.LastUpdated.IsZero() && event.LastUpdated.After(now.Add(-s.freshness)) {
		s.logger.WithFields(logrus.Fields{
			"game_id":      game.GameID,
			"event_id":     event.EventID,
			"last_updated": event.LastUpdated.Format(time.RFC3339),
		}).Debug("盘口仍新鲜，跳过刷新")
		return nil, true, nil
	}

	entry := &model.DataRefreshLog{
		RunID:            runID,
		EventID:          event.EventID,
		GameID:           game.GameID,
		MarketsRequested: strings.Join(s.markets, ","),
	}
	parsed, raw, err := s.provider.FetchEventProps(ctx, event.EventID, s.markets)
	if err != nil {
		entry.APIStatus = RefreshStatusFailed
		entry.Payload = errorPayload(err)
		s.writeLog(ctx, entry)
		return nil, false, fmt.Errorf("拉取盘口失败(%s): %v: %w", event.EventID, err, ErrFetchFailed)
	}
	if len(raw) > 0 && json.Valid(raw) {
		entry.Payload = datatypes.JSON(raw)
	}
	entry.MarketsFound = len(parsed.Markets)
	entry.TotalLines = parsed.TotalLines()
	if len(parsed.Markets) == 0 {
		entry.APIStatus = RefreshStatusEmpty
		s.writeLog(ctx, entry)
		return &IngestResult{}, false, nil
	}

	res, err := s.IngestEvent(ctx, event, parsed)
	if err != nil {
		return nil, false, err
	}
	if err := s.eventRepo.TouchLastUpdated(ctx, event.EventID, now); err != nil {
		return nil, false, fmt.Errorf("更新赛事刷新时间失败: %w", err)
	}
	entry.APIStatus = RefreshStatusSuccess
	entry.HistoryAdded = res.HistoryAdded
	s.writeLog(ctx, entry)

	s.logger.WithFields(logrus.Fields{
		"game_id":       game.GameID,
		"event_id":      event.EventID,
		"lines":         res.Lines,
		"created":       res.Created,
		"updated":       res.Updated,
		"history_added": res.HistoryAdded,
	}).Info("盘口刷新完成")
	return res, false, nil
}

// writeLog 刷新日志写入失败不影响刷新结果
func (s *SnapshotService) writeLog(ctx context.Context, entry *model.DataRefreshLog) {
	if err := s.logRepo.Create(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("event_id", entry.EventID).Warn("写入刷新日志失败")
	}
}

func errorPayload(err error) datatypes.JSON {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return datatypes.JSON(b)
}

// Refresh 批量刷新；单场失败只计入汇总
func (s *SnapshotService) Refresh(ctx context.Context, opts RefreshOptions) (*BatchSummary, error) {
	summary := NewBatchSummary("refresh")
	var games []*model.Game
	if opts.GameID != "" {
		g, err := s.gameRepo.GetByGameID(ctx, opts.GameID)
		if err != nil {
			return nil, fmt.Errorf("查询比赛失败: %w", err)
		}
		if g == nil {
			return nil, fmt.Errorf("比赛%s: %w", opts.GameID, ErrGameNotFound)
		}
		games = append(games, g)
	} else {
		now := s.now()
		list, err := s.gameRepo.ListUpcoming(ctx, now.Add(-refreshLookBehind), now.Add(refreshLookAhead))
		if err != nil {
			return nil, fmt.Errorf("查询待刷新比赛失败: %w", err)
		}
		games = list
	}

	// 整批只拉一次赛事索引
	idx := s.resolver.NewEventIndex()
	forEach(ctx, s.concurrency, games, func(ctx context.Context, g *model.Game) {
		_, skipped, err := s.refreshGame(ctx, summary.RunID, g, opts.Force, idx)
		switch {
		case errors.Is(err, ErrEventNotFound):
			s.logger.WithField("game_id", g.GameID).Warn("未解析到赔率源赛事，跳过")
			summary.Skip()
		case err != nil:
			s.logger.WithError(err).WithField("game_id", g.GameID).Warn("盘口刷新失败，跳过")
			summary.Fail(g.GameID, err)
		case skipped:
			summary.Skip()
		default:
			summary.Succeed()
		}
	})
	return summary.Finish(), ctx.Err()
}
