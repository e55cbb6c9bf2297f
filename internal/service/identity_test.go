package service

import (
	"context"
	"testing"
	"time"

	"PropSync/internal/cache"
	"PropSync/internal/model"
	"PropSync/internal/repository"
	"PropSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "marvin harrison", NormalizeName("  Marvin   Harrison Jr. "))
	assert.Equal(t, "patrick mahomes", NormalizeName("Patrick Mahomes II"))
	assert.Equal(t, "kenneth walker", NormalizeName("Kenneth Walker III"))
	// 名字中间的 v 不是后缀
	assert.Equal(t, "v jackson", NormalizeName("V Jackson"))
}

func TestSimilarityScore(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"Marvin Harrison Jr.", "Marvin Harrison", 0.99, 1},
		{"Patrick Mahomes II", "Patrick Mahomes", 0.99, 1},
		{"D.J. Moore", "DJ Moore", DefaultMatchThreshold, 1},
		{"Bryce Young", "Bryce Huff", 0, 0.6},
		{"Josh Allen", "Josh Jacobs", 0, 0.6},
	}
	for _, c := range cases {
		s := SimilarityScore(c.a, c.b)
		assert.GreaterOrEqual(t, s, c.min, "%s vs %s", c.a, c.b)
		assert.LessOrEqual(t, s, c.max, "%s vs %s", c.a, c.b)
	}
}

func TestFindBestMatch(t *testing.T) {
	candidates := []string{"Bryce Huff", "Bryce Young", "Young Bryce"}
	name, score, ok := FindBestMatch("Bryce Young", candidates, DefaultMatchThreshold)
	assert.True(t, ok)
	assert.Equal(t, "Bryce Young", name)
	assert.InDelta(t, 1.0, score, 1e-9)

	_, _, ok = FindBestMatch("Tom Brady", candidates, DefaultMatchThreshold)
	assert.False(t, ok)

	// 同分取先出现的
	name, _, ok = FindBestMatch("Chris Olave", []string{"Chris Olave", "Chris  Olave"}, DefaultMatchThreshold)
	assert.True(t, ok)
	assert.Equal(t, "Chris Olave", name)
}

func TestCanonicalPlayerID(t *testing.T) {
	assert.Equal(t, "bryce_young", CanonicalPlayerID("Bryce Young"))
	assert.Equal(t, "dj_moore", CanonicalPlayerID(" D.J.  Moore "))
	assert.Equal(t, "amon-ra_st_brown", CanonicalPlayerID("Amon-Ra St. Brown"))
}

type IdentityTestSuite struct {
	suite.Suite
	db       *gorm.DB
	ctx      context.Context
	feed     *fakeFeed
	mappings repository.MappingRepository
	players  repository.PlayerRepository
	props    repository.PropRepository
	svc      *IdentityService
}

func (s *IdentityTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.ctx = context.Background()
	s.feed = &fakeFeed{roster: []model.RosterPlayer{
		{DisplayName: "Bryce Young", Position: "QB", LatestTeam: "CAR", Status: "ACT"},
		{DisplayName: "Marvin Harrison Jr.", Position: "WR", LatestTeam: "ARI", Status: "ACT"},
		{DisplayName: "Matt Ryan", Position: "QB", LatestTeam: "IND", Status: "RET"},
		{DisplayName: "Nobody Special", Position: "TE", LatestTeam: "NYJ", Status: "ACT"},
	}}
	s.mappings = repository.NewMappingRepository(s.db)
	s.players = repository.NewPlayerRepository(s.db)
	s.props = repository.NewPropRepository(s.db)
	logger := testutil.NewLogger()
	roster := NewRosterLoader(s.feed, cache.New(cache.NewGormStore(s.db), time.Hour, logger))
	s.svc = NewIdentityService(s.mappings, s.players, s.props, roster, 0, logger)

	for _, name := range []string{"Bryce Young", "Marvin Harrison", "Matt Ryan"} {
		s.Require().NoError(s.props.SaveProp(s.ctx, &model.PlayerProp{
			EventID: "evt1", GameID: "2025_03_ATL_CAR", PlayerName: name, MarketKey: "player_pass_yds", IsActive: true,
		}))
	}
}

func (s *IdentityTestSuite) TestBuildMappings() {
	summary, err := s.svc.BuildMappings(s.ctx, 2025, false)
	s.Require().NoError(err)
	// 退役球员不参与匹配
	s.Equal(3, summary.Processed)
	s.Equal(2, summary.Succeeded)
	s.Equal(1, summary.Skipped)

	m, err := s.mappings.GetActiveByPropName(s.ctx, "Marvin Harrison")
	s.Require().NoError(err)
	s.Require().NotNil(m)
	s.Equal("Marvin Harrison Jr.", m.SourceName)
	s.Equal("marvin_harrison", m.PlayerID)
	s.Equal("ARI", m.CurrentTeam)

	retired, err := s.mappings.GetActiveByPropName(s.ctx, "Matt Ryan")
	s.Require().NoError(err)
	s.Nil(retired)

	// 第二次走名册缓存
	_, err = s.svc.BuildMappings(s.ctx, 2025, false)
	s.Require().NoError(err)
	s.Equal(1, s.feed.calls)
	_, err = s.svc.BuildMappings(s.ctx, 2025, true)
	s.Require().NoError(err)
	s.Equal(2, s.feed.calls)
}

func (s *IdentityTestSuite) TestBuildMappings_ConflictSkipped() {
	s.Require().NoError(s.mappings.Upsert(s.ctx, &model.PlayerMapping{
		SourceName: "B. Young", PropName: "B.Young", PlayerID: "bryce_young", IsActive: true,
	}))
	summary, err := s.svc.BuildMappings(s.ctx, 2025, false)
	s.Require().NoError(err)
	s.Equal(1, summary.Conflicts)
	s.Equal(1, summary.Succeeded)
	s.Len(summary.Errors, 1)

	m, err := s.mappings.GetByPlayerID(s.ctx, "bryce_young")
	s.Require().NoError(err)
	s.Equal("B. Young", m.SourceName)
}

func (s *IdentityTestSuite) TestResolvePlayerID() {
	s.Require().NoError(s.mappings.Upsert(s.ctx, &model.PlayerMapping{
		SourceName: "Marvin Harrison Jr.", PropName: "Marvin Harrison", PlayerID: "marvin_harrison", IsActive: true,
	}))
	s.Require().NoError(s.players.Upsert(s.ctx, &model.Player{PlayerID: "00-0039163", PlayerName: "Bryce Young"}))

	id, err := s.svc.ResolvePlayerID(s.ctx, "Marvin Harrison")
	s.Require().NoError(err)
	s.Equal("marvin_harrison", id)

	id, err = s.svc.ResolvePlayerID(s.ctx, "Bryce Young")
	s.Require().NoError(err)
	s.Equal("00-0039163", id)

	id, err = s.svc.ResolvePlayerID(s.ctx, "Unknown Player")
	s.Require().NoError(err)
	s.Empty(id)
}

func TestIdentityTestSuite(t *testing.T) {
	suite.Run(t, new(IdentityTestSuite))
}
