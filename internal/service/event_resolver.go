package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"PropSync/internal/interfaces"
	"PropSync/internal/model"
	"PropSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// DefaultEventTolerance 开赛时间与赔率源 commence_time 的最大允许偏差
const DefaultEventTolerance = 10 * time.Minute

// 球队缩写 -> 队名（含备用缩写）
var teamNicknames = map[string]string{
	"ARI": "cardinals", "ATL": "falcons", "BAL": "ravens", "BUF": "bills",
	"CAR": "panthers", "CHI": "bears", "CIN": "bengals", "CLE": "browns",
	"DAL": "cowboys", "DEN": "broncos", "DET": "lions", "GB": "packers", "GNB": "packers",
	"HOU": "texans", "IND": "colts", "JAX": "jaguars", "JAC": "jaguars",
	"KC": "chiefs", "KAN": "chiefs", "LV": "raiders", "LVR": "raiders", "OAK": "raiders", "LA": "rams", "LAR": "rams", "LAC": "chargers",
	"MIA": "dolphins", "MIN": "vikings", "NE": "patriots", "NWE": "patriots",
	"NO": "saints", "NOR": "saints", "NYG": "giants", "NYJ": "jets",
	"PHI": "eagles", "PIT": "steelers", "SEA": "seahawks", "SF": "49ers", "SFO": "49ers",
	"TB": "buccaneers", "TAM": "buccaneers", "TEN": "titans", "WAS": "commanders",
}

// 整串匹配的城市名写法
var teamAliases = map[string]string{
	"washington football team": "commanders",
	"washington":               "commanders",
	"san francisco":            "49ers",
	"new york giants":          "giants",
	"new york jets":            "jets",
	"tampa bay":                "buccaneers",
	"green bay":                "packers",
	"kansas city":              "chiefs",
	"las vegas":                "raiders",
	"los angeles rams":         "rams",
	"los angeles chargers":     "chargers",
}

// NormalizeTeam 把缩写或全称统一成小写队名，如 CAR / "Carolina Panthers" -> panthers
func NormalizeTeam(team string) string {
	t := strings.TrimSpace(team)
	if nick, ok := teamNicknames[strings.ToUpper(t)]; ok {
		return nick
	}
	t = strings.ToLower(t)
	if nick, ok := teamAliases[t]; ok {
		t = nick
	}
	t = strings.ReplaceAll(strings.ReplaceAll(t, ".", ""), "-", " ")
	parts := strings.Fields(t)
	if len(parts) >= 2 {
		return parts[len(parts)-1]
	}
	return t
}

// MatchEvent 主客队名一致且开赛时间差最小的赛事；差值超过 tolerance 视为未找到
func MatchEvent(home, away string, kickoff time.Time, events []model.ProviderEvent, tolerance time.Duration) (*model.ProviderEvent, bool) {
	h, a := NormalizeTeam(home), NormalizeTeam(away)
	var (
		best     *model.ProviderEvent
		bestDiff time.Duration
	)
	for i := range events {
		ev := &events[i]
		if NormalizeTeam(ev.HomeTeam) != h || NormalizeTeam(ev.AwayTeam) != a {
			continue
		}
		diff := ev.CommenceTime.Sub(kickoff)
		if diff < 0 {
			diff = -diff
		}
		if best == nil || diff < bestDiff {
			best, bestDiff = ev, diff
		}
	}
	if best == nil || bestDiff > tolerance {
		return nil, false
	}
	return best, true
}

// EventResolver 内部比赛 -> 赔率源赛事，成功结果写入 odds_event_map
type EventResolver struct {
	provider  interfaces.OddsProvider
	eventRepo repository.OddsEventRepository
	tolerance time.Duration
	now       func() time.Time
	logger    *logrus.Logger
}

func NewEventResolver(provider interfaces.OddsProvider, eventRepo repository.OddsEventRepository, tolerance time.Duration, logger *logrus.Logger) *EventResolver {
	if tolerance <= 0 {
		tolerance = DefaultEventTolerance
	}
	return &EventResolver{
		provider:  provider,
		eventRepo: eventRepo,
		tolerance: tolerance,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// EventIndex 一次批量运行内共享的赛事索引，首次使用时拉取，之后复用（失败也复用）
type EventIndex struct {
	provider interfaces.OddsProvider
	once     sync.Once
	events   []model.ProviderEvent
	err      error
}

// NewEventIndex 创建一份惰性加载的赛事索引
func (r *EventResolver) NewEventIndex() *EventIndex {
	return &EventIndex{provider: r.provider}
}

// Events 返回赛事索引
func (i *EventIndex) Events(ctx context.Context) ([]model.ProviderEvent, error) {
	i.once.Do(func() {
		i.events, i.err = i.provider.ListEvents(ctx)
	})
	return i.events, i.err
}

// Resolve 先查解析缓存，未命中再拉一次赛事索引匹配
func (r *EventResolver) Resolve(ctx context.Context, game *model.Game) (*model.OddsEvent, error) {
	return r.ResolveWith(ctx, game, nil)
}

// ResolveWith 同 Resolve，idx 非空时复用已拉取的赛事索引
func (r *EventResolver) ResolveWith(ctx context.Context, game *model.Game, idx *EventIndex) (*model.OddsEvent, error) {
	if m, err := r.eventRepo.GetMap(ctx, game.GameID); err != nil {
		return nil, fmt.Errorf("查询赛事映射失败: %w", err)
	} else if m != nil {
		ev, err := r.eventRepo.GetByEventID(ctx, m.OddsEventID)
		if err != nil {
			return nil, fmt.Errorf("查询赔率源赛事失败: %w", err)
		}
		if ev != nil {
			return ev, nil
		}
	}

	if game.KickoffUTC == nil {
		return nil, fmt.Errorf("比赛%s缺少开赛时间: %w", game.GameID, ErrEventNotFound)
	}
	if idx == nil {
		idx = r.NewEventIndex()
	}
	events, err := idx.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("拉取赛事索引失败: %v: %w", err, ErrFetchFailed)
	}
	match, ok := MatchEvent(game.HomeTeam, game.AwayTeam, *game.KickoffUTC, events, r.tolerance)
	if !ok {
		r.logger.WithFields(logrus.Fields{
			"game_id": game.GameID,
			"home":    game.HomeTeam,
			"away":    game.AwayTeam,
			"kickoff": game.KickoffUTC.Format(time.RFC3339),
			"events":  len(events),
		}).Warn("未找到匹配的赔率源赛事")
		return nil, fmt.Errorf("比赛%s: %w", game.GameID, ErrEventNotFound)
	}

	ev := &model.OddsEvent{
		EventID:      match.ID,
		GameID:       game.GameID,
		SportKey:     match.SportKey,
		HomeTeam:     match.HomeTeam,
		AwayTeam:     match.AwayTeam,
		CommenceTime: match.CommenceTime.UTC(),
		IsActive:     true,
	}
	if err := r.eventRepo.Upsert(ctx, ev); err != nil {
		return nil, fmt.Errorf("保存赔率源赛事失败: %w", err)
	}
	if err := r.eventRepo.UpsertMap(ctx, game.GameID, match.ID, r.now()); err != nil {
		return nil, fmt.Errorf("保存赛事映射失败: %w", err)
	}
	r.logger.WithFields(logrus.Fields{
		"game_id":  game.GameID,
		"event_id": match.ID,
	}).Info("赔率源赛事解析成功")
	return r.eventRepo.GetByEventID(ctx, match.ID)
}
