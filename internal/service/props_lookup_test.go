package service

import (
	"context"
	"errors"
	"testing"

	"PropSync/internal/model"
	"PropSync/internal/repository"
	"PropSync/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func TestImpliedProbability(t *testing.T) {
	assert.InDelta(t, 0.5238, ImpliedProbability(-110), 1e-4)
	assert.InDelta(t, 0.4, ImpliedProbability(150), 1e-9)
	assert.InDelta(t, 0.5, ImpliedProbability(100), 1e-9)
	assert.Zero(t, ImpliedProbability(0))
}

type LookupTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	provider *fakeProvider
	props    repository.PropRepository
	players  repository.PlayerRepository
	teams    repository.TeamRepository
	preds    repository.PredictionRepository
	svc      *PropLookupService
}

func (s *LookupTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.ctx = context.Background()
	logger := testutil.NewLogger()
	kickoff := utc("2025-09-21T17:00:00Z")
	s.provider = newFakeProvider(model.ProviderEvent{
		ID: "evt1", HomeTeam: "Carolina Panthers", AwayTeam: "Atlanta Falcons", CommenceTime: kickoff,
	})
	games := repository.NewGameRepository(s.db)
	events := repository.NewOddsEventRepository(s.db)
	s.props = repository.NewPropRepository(s.db)
	s.players = repository.NewPlayerRepository(s.db)
	s.teams = repository.NewTeamRepository(s.db)
	s.preds = repository.NewPredictionRepository(s.db)
	s.Require().NoError(games.Upsert(s.ctx, &model.Game{GameID: "2025_03_ATL_CAR", Season: 2025, Week: 3, HomeTeam: "CAR", AwayTeam: "ATL", KickoffUTC: timePtr(kickoff)}))
	s.Require().NoError(games.Upsert(s.ctx, &model.Game{GameID: "2025_03_NYJ_BUF", Season: 2025, Week: 3, HomeTeam: "BUF", AwayTeam: "NYJ", KickoffUTC: timePtr(kickoff)}))

	resolver := NewEventResolver(s.provider, events, 0, logger)
	s.svc = NewPropLookupService(s.provider, resolver, games, events, s.props, s.players, s.teams, s.preds, logger)
}

func (s *LookupTestSuite) TestUnknownGame() {
	_, err := s.svc.Lookup(s.ctx, "2025_03_XXX_YYY", nil)
	s.True(errors.Is(err, ErrGameNotFound))
}

func (s *LookupTestSuite) TestEventUnavailable() {
	resp, err := s.svc.Lookup(s.ctx, "2025_03_NYJ_BUF", nil)
	s.Require().NoError(err)
	s.Equal(NoteUnavailable, resp.Note)
	s.Empty(resp.Markets)
}

func (s *LookupTestSuite) TestFromDatabase() {
	updated := utc("2025-09-20T12:00:00Z")
	for _, name := range []string{"Bryce Young", "Michael Penix Jr."} {
		s.Require().NoError(s.props.SaveProp(s.ctx, &model.PlayerProp{
			EventID: "evt1", GameID: "2025_03_ATL_CAR", PlayerName: name, MarketKey: "player_pass_yds",
			OverOdds: decimal.NewFromInt(-110), OverPoint: decimal.NewFromFloat(245.5),
			UnderOdds: decimal.NewFromInt(150), UnderPoint: decimal.NewFromFloat(245.5),
			IsActive: true, LastUpdated: updated,
		}))
	}
	s.Require().NoError(s.players.Upsert(s.ctx, &model.Player{PlayerID: "bryce_young", PlayerName: "Bryce Young", TeamAbbr: testutil.S("CAR")}))
	_, err := s.teams.EnsureTeam(s.ctx, "CAR", "Carolina Panthers")
	s.Require().NoError(err)
	s.Require().NoError(s.preds.Upsert(s.ctx, &model.Prediction{
		PlayerID: "bryce_young", GameID: "2025_03_ATL_CAR", PropType: "player_pass_yds",
		PredictedValue: 231.2, OverProbability: 0.41, UnderProbability: 0.59, Edge: -14.3, ModelVersion: "4.0_simple",
	}))

	resp, err := s.svc.Lookup(s.ctx, "2025_03_ATL_CAR", nil)
	s.Require().NoError(err)
	s.Equal(SourceDatabase, resp.Source)
	s.Equal("evt1", resp.OddsEventID)
	s.Require().Len(resp.Markets, 1)
	mv := resp.Markets[0]
	s.Equal("player_pass_yds", mv.Key)
	s.Require().NotNil(mv.LastUpdate)
	s.True(mv.LastUpdate.Equal(updated))
	s.Require().Len(mv.Lines, 2)

	young := mv.Lines[0]
	s.Equal("Bryce Young", young.Player)
	s.Equal("CAR", young.TeamAbbr)
	s.Equal("Carolina Panthers", young.TeamName)
	s.InDelta(245.5, young.Over.Point, 1e-9)
	s.InDelta(0.5238, young.Over.ImpliedProbability, 1e-4)
	s.InDelta(0.4, young.Under.ImpliedProbability, 1e-9)
	s.Require().NotNil(young.MLPrediction)
	s.InDelta(0.41, young.MLPrediction.OverProbability, 1e-9)

	penix := mv.Lines[1]
	s.Equal("UNK", penix.TeamAbbr)
	s.Equal("Unknown Team", penix.TeamName)
	s.Nil(penix.MLPrediction)
	s.Zero(s.provider.fetchCalls)
}

func (s *LookupTestSuite) TestFallsBackToProviderWithoutPersisting() {
	s.provider.setLines("evt1", "player_pass_yds", line("Bryce Young", 245.5, -110, -110))
	resp, err := s.svc.Lookup(s.ctx, "2025_03_ATL_CAR", []string{"player_pass_yds"})
	s.Require().NoError(err)
	s.Equal(SourceAPI, resp.Source)
	s.Require().Len(resp.Markets, 1)
	s.Equal("Bryce Young", resp.Markets[0].Lines[0].Player)

	stored, err := s.props.ListByEvent(s.ctx, "evt1", nil)
	s.Require().NoError(err)
	s.Empty(stored)

	s.provider.fetchErr = errUpstream
	_, err = s.svc.Lookup(s.ctx, "2025_03_ATL_CAR", nil)
	s.True(errors.Is(err, ErrFetchFailed))
}

func (s *LookupTestSuite) TestProviderWithoutLinesReturnsEmpty() {
	resp, err := s.svc.Lookup(s.ctx, "2025_03_ATL_CAR", nil)
	s.Require().NoError(err)
	s.Empty(resp.Markets)
	s.Equal(SourceAPI, resp.Source)
}

func TestLookupTestSuite(t *testing.T) {
	suite.Run(t, new(LookupTestSuite))
}
