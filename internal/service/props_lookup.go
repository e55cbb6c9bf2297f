package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PropSync/internal/interfaces"
	"PropSync/internal/model"
	"PropSync/internal/repository"

	"github.com/sirupsen/logrus"
)

// 查询结果来源
const (
	SourceDatabase = "database"
	SourceAPI      = "api"
)

// NoteUnavailable 赔率源没有这场比赛
const NoteUnavailable = "prizepicks_unavailable"

// DefaultLookupMarket 未指定盘口时查询的类型
const DefaultLookupMarket = "player_pass_yds"

// PropsResponse 单场比赛的盘口查询结果；Markets 为空表示无数据
type PropsResponse struct {
	GameID      string       `json:"game_id"`
	OddsEventID string       `json:"odds_event_id,omitempty"`
	HomeTeam    string       `json:"home_team"`
	AwayTeam    string       `json:"away_team"`
	KickoffUTC  *time.Time   `json:"kickoff_utc"`
	Markets     []MarketView `json:"markets"`
	Source      string       `json:"source,omitempty"`
	Note        string       `json:"note,omitempty"`
}

type MarketView struct {
	Key        string     `json:"key"`
	LastUpdate *time.Time `json:"last_update"`
	Lines      []LineView `json:"lines"`
}

type LineView struct {
	Player       string          `json:"player"`
	TeamAbbr     string          `json:"team_abbr,omitempty"`
	TeamName     string          `json:"team_name,omitempty"`
	Over         SideView        `json:"over"`
	Under        SideView        `json:"under"`
	MLPrediction *PredictionView `json:"ml_prediction,omitempty"`
}

type SideView struct {
	Odds               float64 `json:"odds"`
	Point              float64 `json:"point"`
	ImpliedProbability float64 `json:"implied_probability"`
}

type PredictionView struct {
	OverProbability  float64 `json:"over_probability"`
	UnderProbability float64 `json:"under_probability"`
	PredictedValue   float64 `json:"predicted_value"`
	Edge             float64 `json:"edge"`
	ModelVersion     string  `json:"model_version"`
}

// ImpliedProbability 美式赔率隐含概率：-110 -> 0.5238，+150 -> 0.4
func ImpliedProbability(odds float64) float64 {
	switch {
	case odds < 0:
		return -odds / (-odds + 100)
	case odds > 0:
		return 100 / (odds + 100)
	}
	return 0
}

func sideView(odds, point float64) SideView {
	return SideView{Odds: odds, Point: point, ImpliedProbability: ImpliedProbability(odds)}
}

// PropLookupService 盘口查询：优先读库，库中没有时直连赔率源（不落库）
type PropLookupService struct {
	provider   interfaces.OddsProvider
	resolver   *EventResolver
	gameRepo   repository.GameRepository
	eventRepo  repository.OddsEventRepository
	propRepo   repository.PropRepository
	playerRepo repository.PlayerRepository
	teamRepo   repository.TeamRepository
	predRepo   repository.PredictionRepository
	logger     *logrus.Logger
}

func NewPropLookupService(provider interfaces.OddsProvider, resolver *EventResolver, gameRepo repository.GameRepository, eventRepo repository.OddsEventRepository, propRepo repository.PropRepository, playerRepo repository.PlayerRepository, teamRepo repository.TeamRepository, predRepo repository.PredictionRepository, logger *logrus.Logger) *PropLookupService {
	return &PropLookupService{
		provider:   provider,
		resolver:   resolver,
		gameRepo:   gameRepo,
		eventRepo:  eventRepo,
		propRepo:   propRepo,
		playerRepo: playerRepo,
		teamRepo:   teamRepo,
		predRepo:   predRepo,
		logger:     logger,
	}
}

// Lookup 返回 ErrGameNotFound / ErrFetchFailed；赔率源无此赛事或无盘口时返回 Markets 为空的结果
func (s *PropLookupService) Lookup(ctx context.Context, gameID string, markets []string) (*PropsResponse, error) {
	if len(markets) == 0 {
		markets = []string{DefaultLookupMarket}
	}
	game, err := s.gameRepo.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("查询比赛失败: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	resp := &PropsResponse{
		GameID:     game.GameID,
		HomeTeam:   game.HomeTeam,
		AwayTeam:   game.AwayTeam,
		KickoffUTC: game.KickoffUTC,
	}

	event, err := s.eventRepo.GetActiveByGameID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("查询赔率源赛事失败: %w", err)
	}
	if event == nil {
		event, err = s.resolver.Resolve(ctx, game)
		if errors.Is(err, ErrEventNotFound) {
			s.logger.WithField("game_id", gameID).Info("赔率源无此比赛")
			resp.Note = NoteUnavailable
			return resp, nil
		}
		if err != nil {
			return nil, err
		}
	}
	resp.OddsEventID = event.EventID

	props, err := s.propRepo.ListByEvent(ctx, event.EventID, markets)
	if err != nil {
		return nil, fmt.Errorf("查询盘口失败: %w", err)
	}
	if len(props) == 0 {
		return s.fromProvider(ctx, resp, event.EventID, markets)
	}
	resp.Source = SourceDatabase
	resp.Markets, err = s.groupProps(ctx, gameID, props)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *PropLookupService) fromProvider(ctx context.Context, resp *PropsResponse, eventID string, markets []string) (*PropsResponse, error) {
	parsed, _, err := s.provider.FetchEventProps(ctx, eventID, markets)
	if err != nil {
		s.logger.WithError(err).WithField("event_id", eventID).Warn("直连赔率源拉取盘口失败")
		return nil, fmt.Errorf("%v: %w", err, ErrFetchFailed)
	}
	resp.Source = SourceAPI
	for _, m := range parsed.Markets {
		if len(m.Lines) == 0 {
			continue
		}
		view := MarketView{Key: m.Key, LastUpdate: m.LastUpdate}
		for _, l := range m.Lines {
			view.Lines = append(view.Lines, LineView{
				Player: l.Player,
				Over:   sideView(l.Over.Odds, l.Over.Point),
				Under:  sideView(l.Under.Odds, l.Under.Point),
			})
		}
		resp.Markets = append(resp.Markets, view)
	}
	return resp, nil
}

// groupProps 按盘口分组，附带球队与预测；props 已按 market_key 排序
func (s *PropLookupService) groupProps(ctx context.Context, gameID string, props []*model.PlayerProp) ([]MarketView, error) {
	var out []MarketView
	teams := make(map[string]string)
	for _, p := range props {
		if len(out) == 0 || out[len(out)-1].Key != p.MarketKey {
			out = append(out, MarketView{Key: p.MarketKey})
		}
		mv := &out[len(out)-1]
		if !p.LastUpdated.IsZero() && (mv.LastUpdate == nil || p.LastUpdated.After(*mv.LastUpdate)) {
			t := p.LastUpdated
			mv.LastUpdate = &t
		}

		overOdds, _ := p.OverOdds.Float64()
		overPoint, _ := p.OverPoint.Float64()
		underOdds, _ := p.UnderOdds.Float64()
		underPoint, _ := p.UnderPoint.Float64()
		line := LineView{
			Player:   p.PlayerName,
			TeamAbbr: unknownTeam,
			TeamName: "Unknown Team",
			Over:     sideView(overOdds, overPoint),
			Under:    sideView(underOdds, underPoint),
		}

		player, err := s.playerRepo.FindByName(ctx, p.PlayerName)
		if err != nil {
			return nil, fmt.Errorf("查询球员失败: %w", err)
		}
		if player != nil {
			if player.TeamAbbr != nil && *player.TeamAbbr != "" {
				line.TeamAbbr = *player.TeamAbbr
				line.TeamName, err = s.teamName(ctx, *player.TeamAbbr, teams)
				if err != nil {
					return nil, err
				}
			}
			pred, err := s.predRepo.Get(ctx, player.PlayerID, gameID, p.MarketKey)
			if err != nil {
				return nil, fmt.Errorf("查询预测失败: %w", err)
			}
			if pred != nil {
				line.MLPrediction = &PredictionView{
					OverProbability:  pred.OverProbability,
					UnderProbability: pred.UnderProbability,
					PredictedValue:   pred.PredictedValue,
					Edge:             pred.Edge,
					ModelVersion:     pred.ModelVersion,
				}
			}
		}
		mv.Lines = append(mv.Lines, line)
	}
	return out, nil
}

func (s *PropLookupService) teamName(ctx context.Context, abbr string, cache map[string]string) (string, error) {
	if name, ok := cache[abbr]; ok {
		return name, nil
	}
	t, err := s.teamRepo.GetByAbbr(ctx, abbr)
	if err != nil {
		return "", fmt.Errorf("查询球队失败: %w", err)
	}
	name := abbr
	if t != nil && t.TeamName != "" {
		name = t.TeamName
	}
	cache[abbr] = name
	return name, nil
}
