package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"PropSync/internal/model"
	"PropSync/internal/repository"
	"PropSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTeam(t *testing.T) {
	cases := map[string]string{
		"CAR":                      "panthers",
		"Carolina Panthers":        "panthers",
		"car":                      "panthers",
		"Washington Football Team": "commanders",
		"Washington Commanders":    "commanders",
		"San Francisco 49ers":      "49ers",
		"SFO":                      "49ers",
		"LA":                       "rams",
		"Los Angeles Rams":         "rams",
		"Tampa Bay Buccaneers":     "buccaneers",
		"LV":                       "raiders",
		"LVR":                      "raiders",
		"OAK":                      "raiders",
		"Las Vegas Raiders":        "raiders",
		"Las Vegas":                "raiders",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTeam(in), in)
	}
}

func TestMatchEvent(t *testing.T) {
	kickoff := utc("2025-09-21T17:00:00Z")
	events := []model.ProviderEvent{
		{ID: "wrong_order", HomeTeam: "Atlanta Falcons", AwayTeam: "Carolina Panthers", CommenceTime: kickoff},
		{ID: "next_week", HomeTeam: "Carolina Panthers", AwayTeam: "Atlanta Falcons", CommenceTime: kickoff.Add(7 * 24 * time.Hour)},
		{ID: "evt1", HomeTeam: "Carolina Panthers", AwayTeam: "Atlanta Falcons", CommenceTime: kickoff.Add(5 * time.Minute)},
	}

	ev, ok := MatchEvent("CAR", "ATL", kickoff, events, DefaultEventTolerance)
	require.True(t, ok)
	assert.Equal(t, "evt1", ev.ID)

	// 恰好等于容差仍可匹配
	edge := []model.ProviderEvent{{ID: "edge", HomeTeam: "Carolina Panthers", AwayTeam: "Atlanta Falcons", CommenceTime: kickoff.Add(-10 * time.Minute)}}
	ev, ok = MatchEvent("CAR", "ATL", kickoff, edge, DefaultEventTolerance)
	require.True(t, ok)
	assert.Equal(t, "edge", ev.ID)

	late := []model.ProviderEvent{{ID: "late", HomeTeam: "Carolina Panthers", AwayTeam: "Atlanta Falcons", CommenceTime: kickoff.Add(11 * time.Minute)}}
	_, ok = MatchEvent("CAR", "ATL", kickoff, late, DefaultEventTolerance)
	assert.False(t, ok)

	// 同样的偏差取先出现的
	tie := []model.ProviderEvent{
		{ID: "first", HomeTeam: "Carolina Panthers", AwayTeam: "Atlanta Falcons", CommenceTime: kickoff.Add(-3 * time.Minute)},
		{ID: "second", HomeTeam: "Carolina Panthers", AwayTeam: "Atlanta Falcons", CommenceTime: kickoff.Add(3 * time.Minute)},
	}
	ev, ok = MatchEvent("CAR", "ATL", kickoff, tie, DefaultEventTolerance)
	require.True(t, ok)
	assert.Equal(t, "first", ev.ID)

	raiders := []model.ProviderEvent{{ID: "lv_den", HomeTeam: "Las Vegas Raiders", AwayTeam: "Denver Broncos", CommenceTime: kickoff}}
	ev, ok = MatchEvent("LV", "DEN", kickoff, raiders, DefaultEventTolerance)
	require.True(t, ok)
	assert.Equal(t, "lv_den", ev.ID)
}

func TestEventResolver_ResolveCachesMapping(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	eventRepo := repository.NewOddsEventRepository(db)
	kickoff := utc("2025-09-21T17:00:00Z")
	provider := newFakeProvider(model.ProviderEvent{
		ID: "evt1", SportKey: "americanfootball_nfl", HomeTeam: "Carolina Panthers", AwayTeam: "Atlanta Falcons",
		CommenceTime: kickoff.Add(5 * time.Minute),
	})
	r := NewEventResolver(provider, eventRepo, 0, testutil.NewLogger())
	game := &model.Game{GameID: "2025_03_ATL_CAR", Season: 2025, Week: 3, HomeTeam: "CAR", AwayTeam: "ATL", KickoffUTC: timePtr(kickoff)}

	ev, err := r.Resolve(ctx, game)
	require.NoError(t, err)
	assert.Equal(t, "evt1", ev.EventID)
	assert.Equal(t, "2025_03_ATL_CAR", ev.GameID)

	m, err := eventRepo.GetMap(ctx, game.GameID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "evt1", m.OddsEventID)

	ev, err = r.Resolve(ctx, game)
	require.NoError(t, err)
	assert.Equal(t, "evt1", ev.EventID)
	assert.Equal(t, 1, provider.listCalls)
}

func TestEventResolver_Errors(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	eventRepo := repository.NewOddsEventRepository(db)
	kickoff := utc("2025-09-21T17:00:00Z")
	provider := newFakeProvider(model.ProviderEvent{
		ID: "evt1", HomeTeam: "Carolina Panthers", AwayTeam: "Atlanta Falcons", CommenceTime: kickoff.Add(11 * time.Minute),
	})
	r := NewEventResolver(provider, eventRepo, 0, testutil.NewLogger())
	game := &model.Game{GameID: "2025_03_ATL_CAR", HomeTeam: "CAR", AwayTeam: "ATL", KickoffUTC: timePtr(kickoff)}

	_, err := r.Resolve(ctx, game)
	assert.True(t, errors.Is(err, ErrEventNotFound))
	m, err := eventRepo.GetMap(ctx, game.GameID)
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = r.Resolve(ctx, &model.Game{GameID: "2025_03_NYJ_BUF", HomeTeam: "BUF", AwayTeam: "NYJ"})
	assert.True(t, errors.Is(err, ErrEventNotFound))

	provider.listErr = errUpstream
	_, err = r.Resolve(ctx, game)
	assert.True(t, errors.Is(err, ErrFetchFailed))
}
