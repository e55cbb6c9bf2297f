package service

import (
	"context"
	"testing"

	"PropSync/internal/model"
	"PropSync/internal/repository"
	"PropSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func TestFindRosterEntry(t *testing.T) {
	roster := []model.RosterPlayer{
		{DisplayName: "Marvin Harrison Jr.", LatestTeam: "ARI"},
		{DisplayName: "Bryce Young", LatestTeam: "CAR"},
	}
	e, ok := FindRosterEntry(roster, "Bryce Young")
	assert.True(t, ok)
	assert.Equal(t, "CAR", e.LatestTeam)

	e, ok = FindRosterEntry(roster, "Marvin Harrison")
	assert.True(t, ok)
	assert.Equal(t, "ARI", e.LatestTeam)

	_, ok = FindRosterEntry(roster, "Ghost Player")
	assert.False(t, ok)
	_, ok = FindRosterEntry(roster, "  ")
	assert.False(t, ok)
}

type ReconcileTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	players  repository.PlayerRepository
	teams    repository.TeamRepository
	mappings repository.MappingRepository
	props    repository.PropRepository
	stats    repository.StatsRepository
	svc      *ReconcileService
}

func (s *ReconcileTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.ctx = context.Background()
	s.players = repository.NewPlayerRepository(s.db)
	s.teams = repository.NewTeamRepository(s.db)
	s.mappings = repository.NewMappingRepository(s.db)
	s.props = repository.NewPropRepository(s.db)
	s.stats = repository.NewStatsRepository(s.db)
	feed := &fakeFeed{roster: []model.RosterPlayer{
		{DisplayName: "Bryce Young", Position: "QB", LatestTeam: "CAR", Status: "ACT"},
		{DisplayName: "Marvin Harrison Jr.", Position: "WR", LatestTeam: "ARI", Status: "ACT"},
	}}
	s.svc = NewReconcileService(s.players, s.teams, s.mappings, s.props, NewRosterLoader(feed, nil), testutil.NewLogger())
}

func (s *ReconcileTestSuite) TestReconcileUpdatesTeamAndPosition() {
	s.Require().NoError(s.players.Upsert(s.ctx, &model.Player{PlayerID: "bryce_young", PlayerName: "Bryce Young"}))
	s.Require().NoError(s.players.Upsert(s.ctx, &model.Player{PlayerID: "marvin_harrison", PlayerName: "Marvin Harrison", TeamAbbr: testutil.S("NYG")}))
	s.Require().NoError(s.players.Upsert(s.ctx, &model.Player{PlayerID: "ghost_player", PlayerName: "Ghost Player"}))
	for _, name := range []string{"Bryce Young", "Marvin Harrison", "Ghost Player", "Not In Players"} {
		s.Require().NoError(s.props.SaveProp(s.ctx, &model.PlayerProp{EventID: "evt1", PlayerName: name, MarketKey: "player_pass_yds", IsActive: true}))
	}

	summary, err := s.svc.Reconcile(s.ctx, ReconcileOptions{Season: 2025, DryRun: true})
	s.Require().NoError(err)
	s.Equal(2, summary.Succeeded)
	p, err := s.players.GetByPlayerID(s.ctx, "bryce_young")
	s.Require().NoError(err)
	s.Nil(p.TeamAbbr)

	summary, err = s.svc.Reconcile(s.ctx, ReconcileOptions{Season: 2025})
	s.Require().NoError(err)
	s.Equal(2, summary.Succeeded)
	s.Equal(2, summary.Skipped)
	s.Equal(2, summary.Details["not_found"])
	s.Equal(2, summary.Details["created_teams"])

	p, err = s.players.GetByPlayerID(s.ctx, "marvin_harrison")
	s.Require().NoError(err)
	s.Require().NotNil(p.TeamAbbr)
	s.Equal("ARI", *p.TeamAbbr)
	s.Equal("WR", p.Position)

	team, err := s.teams.GetByAbbr(s.ctx, "CAR")
	s.Require().NoError(err)
	s.NotNil(team)

	// 再跑一次结果不变
	summary, err = s.svc.Reconcile(s.ctx, ReconcileOptions{Season: 2025})
	s.Require().NoError(err)
	s.Zero(summary.Succeeded)
	s.Equal(4, summary.Skipped)
}

func (s *ReconcileTestSuite) TestMergeDuplicates() {
	s.Require().NoError(s.mappings.Upsert(s.ctx, &model.PlayerMapping{
		SourceName: "Marvin Harrison Jr.", PropName: "Marvin Harrison", PlayerID: "marvin_harrison",
		Position: "WR", CurrentTeam: "ARI", IsActive: true,
	}))
	s.Require().NoError(s.mappings.Upsert(s.ctx, &model.PlayerMapping{
		SourceName: "Bryce Young", PropName: "B. Young", PlayerID: "b_young", IsActive: true,
	}))
	s.Require().NoError(s.players.Upsert(s.ctx, &model.Player{PlayerID: "00-0039849", PlayerName: "Marvin Harrison Jr."}))
	s.Require().NoError(s.players.Upsert(s.ctx, &model.Player{PlayerID: "marvin_harrison", PlayerName: "Marvin Harrison"}))
	s.Require().NoError(s.stats.Upsert(s.ctx, &model.PlayerStats{
		PlayerID: "00-0039849", GameID: "2025_01_ARI_NO", Season: 2025, Week: 1, ReceivingYards: testutil.F(71),
	}))

	summary, err := s.svc.MergeDuplicates(s.ctx, true)
	s.Require().NoError(err)
	s.Equal(1, summary.Succeeded)
	s.Equal(1, summary.Skipped)
	dup, err := s.players.GetByPlayerID(s.ctx, "00-0039849")
	s.Require().NoError(err)
	s.NotNil(dup)

	_, err = s.svc.MergeDuplicates(s.ctx, false)
	s.Require().NoError(err)
	dup, err = s.players.GetByPlayerID(s.ctx, "00-0039849")
	s.Require().NoError(err)
	s.Nil(dup)

	kept, err := s.players.GetByPlayerID(s.ctx, "marvin_harrison")
	s.Require().NoError(err)
	s.Equal("WR", kept.Position)
	s.Require().NotNil(kept.TeamAbbr)
	s.Equal("ARI", *kept.TeamAbbr)

	st, err := s.stats.Get(s.ctx, "marvin_harrison", "2025_01_ARI_NO")
	s.Require().NoError(err)
	s.Require().NotNil(st)
	s.InDelta(71, *st.ReceivingYards, 1e-9)
}

func TestReconcileTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcileTestSuite))
}
