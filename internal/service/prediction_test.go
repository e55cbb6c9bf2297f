package service

import (
	"context"
	"strings"
	"testing"

	"PropSync/internal/model"
	"PropSync/internal/repository"
	"PropSync/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type PredictionTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ctx     context.Context
	games   repository.GameRepository
	players repository.PlayerRepository
	stats   repository.StatsRepository
	props   repository.PropRepository
	preds   repository.PredictionRepository
	svc     *PredictionService
}

func (s *PredictionTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.ctx = context.Background()
	logger := testutil.NewLogger()
	s.games = repository.NewGameRepository(s.db)
	s.players = repository.NewPlayerRepository(s.db)
	s.stats = repository.NewStatsRepository(s.db)
	s.props = repository.NewPropRepository(s.db)
	s.preds = repository.NewPredictionRepository(s.db)
	teamStats := repository.NewTeamStatsRepository(s.db)
	mappings := repository.NewMappingRepository(s.db)

	s.Require().NoError(s.games.Upsert(s.ctx, &model.Game{GameID: "2025_03_ATL_CAR", Season: 2025, Week: 3, HomeTeam: "CAR", AwayTeam: "ATL"}))
	s.Require().NoError(s.players.Upsert(s.ctx, &model.Player{PlayerID: "bryce_young", PlayerName: "Bryce Young", Position: "QB", TeamAbbr: testutil.S("CAR")}))
	for _, st := range []*model.PlayerStats{
		{PlayerID: "bryce_young", GameID: "2025_01_CAR_JAX", Season: 2025, Week: 1, PassingYards: testutil.F(200)},
		{PlayerID: "bryce_young", GameID: "2025_02_ARI_CAR", Season: 2025, Week: 2, PassingYards: testutil.F(220)},
		// 目标比赛当周及之后不进入窗口
		{PlayerID: "bryce_young", GameID: "2025_03_ATL_CAR", Season: 2025, Week: 3, PassingYards: testutil.F(999)},
	} {
		s.Require().NoError(s.stats.Upsert(s.ctx, st))
	}
	s.Require().NoError(teamStats.UpsertDefense(s.ctx, &model.TeamDefense{
		TeamAbbr: "ATL", Season: 2025, Week: 2,
		PassDefenseRank: 1, RushDefenseRank: 20, ReceivingDefenseRank: 30, OverallDefenseRank: 10,
	}))

	identity := NewIdentityService(mappings, s.players, s.props, nil, 0, logger)
	s.svc = NewPredictionService(s.props, s.games, s.players, s.stats, teamStats, s.preds, identity,
		PredictionConfig{Simulations: 2000, Seed: 42}, logger)
}

func (s *PredictionTestSuite) saveProp(gameID, player, market string, point float64) {
	s.Require().NoError(s.props.SaveProp(s.ctx, &model.PlayerProp{
		EventID: "evt_" + gameID, GameID: gameID, PlayerName: player, MarketKey: market,
		OverPoint: decimal.NewFromFloat(point), UnderPoint: decimal.NewFromFloat(point),
		OverOdds: decimal.NewFromInt(-110), UnderOdds: decimal.NewFromInt(-110), IsActive: true,
	}))
}

func (s *PredictionTestSuite) TestPredictWritesOneRowPerProp() {
	s.saveProp("2025_03_ATL_CAR", "Bryce Young", "player_pass_yds", 230.5)
	s.saveProp("2025_03_ATL_CAR", "Bryce Young", "player_anytime_td", 0.5)
	s.saveProp("2025_03_ATL_CAR", "Drake London", "player_reception_yds", 64.5)
	s.saveProp("2025_09_NYJ_BUF", "Josh Allen", "player_pass_yds", 240.5)

	summary, err := s.svc.Predict(s.ctx, PredictOptions{})
	s.Require().NoError(err)
	s.Equal(1, summary.Succeeded)
	s.Equal(3, summary.Skipped)
	s.Zero(summary.Failed)

	p, err := s.preds.Get(s.ctx, "bryce_young", "2025_03_ATL_CAR", "player_pass_yds")
	s.Require().NoError(err)
	s.Require().NotNil(p)
	// 210 近期均值 + 10 趋势，乘以对手传球防守第 1 的 0.8，再与联盟均值 7:3 收缩
	s.InDelta(186.2, p.PredictedValue, 1e-6)
	s.InDelta(186.2-230.5, p.Edge, 1e-6)
	s.Require().NotNil(p.UserLine)
	s.InDelta(230.5, *p.UserLine, 1e-9)
	s.InDelta(1, p.OverProbability+p.UnderProbability, 1e-9)
	s.Less(p.OverProbability, 0.5)
	s.Less(p.ConfidenceLower, p.PredictedValue)
	s.Greater(p.ConfidenceUpper, p.PredictedValue)
	s.Equal("4.0_simple", p.ModelVersion)
	s.True(strings.HasPrefix(p.Rationale, "Simple Statistical + Monte Carlo: μ=186.2"))

	// 无映射的球员按规范 ID 建档
	london, err := s.players.GetByPlayerID(s.ctx, "drake_london")
	s.Require().NoError(err)
	s.NotNil(london)

	// 重复预测覆盖
	_, err = s.svc.Predict(s.ctx, PredictOptions{GameID: "2025_03_ATL_CAR"})
	s.Require().NoError(err)
	var n int64
	s.db.Model(&model.Prediction{}).Count(&n)
	s.EqualValues(1, n)
}

func (s *PredictionTestSuite) TestDryRun() {
	s.saveProp("2025_03_ATL_CAR", "Bryce Young", "player_pass_yds", 230.5)
	summary, err := s.svc.Predict(s.ctx, PredictOptions{DryRun: true})
	s.Require().NoError(err)
	s.Equal(1, summary.Succeeded)
	p, err := s.preds.Get(s.ctx, "bryce_young", "2025_03_ATL_CAR", "player_pass_yds")
	s.Require().NoError(err)
	s.Nil(p)
}

func (s *PredictionTestSuite) TestWeekOneUsesPreviousSeason() {
	game := &model.Game{GameID: "2026_01_CAR_NO", Season: 2026, Week: 1, HomeTeam: "NO", AwayTeam: "CAR"}
	player, err := s.players.GetByPlayerID(s.ctx, "bryce_young")
	s.Require().NoError(err)

	p, err := s.svc.PredictLine(s.ctx, player, game, "player_pass_yds", 250.5, nil)
	s.Require().NoError(err)
	// 上赛季全部三周：近两场 609.5 + 趋势 399.5 的一半
	s.InDelta(809.25, p.PredictedValue, 1e-6)

	_, err = s.svc.PredictLine(s.ctx, player, game, "player_rush_yds", 20.5, nil)
	s.ErrorIs(err, ErrNoStatsAvailable)
}

func TestDefenseRankFor(t *testing.T) {
	d := &model.TeamDefense{PassDefenseRank: 3, RushDefenseRank: 0, ReceivingDefenseRank: 30, OverallDefenseRank: 12}
	cases := map[string]int{
		"player_pass_yds":      3,
		"player_rush_yds":      DefaultDefenseRank,
		"player_reception_yds": 30,
		"player_receptions":    30,
		"player_anytime_td":    12,
	}
	for market, want := range cases {
		if got := defenseRankFor(d, market); got != want {
			t.Errorf("%s: got %d want %d", market, got, want)
		}
	}
	if got := defenseRankFor(nil, "player_pass_yds"); got != DefaultDefenseRank {
		t.Errorf("nil defense: got %d", got)
	}
}

func TestPredictionTestSuite(t *testing.T) {
	suite.Run(t, new(PredictionTestSuite))
}
