package theodds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"PropSync/internal/config"
	"PropSync/internal/testutil"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.OddsProviderConfig {
	return &config.OddsProviderConfig{
		BaseURL:          baseURL,
		APIKey:           "secret",
		Sport:            "americanfootball_nfl",
		Regions:          "us_dfs",
		Bookmaker:        "prizepicks",
		Timeout:          2,
		MaxRetries:       4,
		BaseDelayMs:      250,
		MaxDelayMs:       2000,
		MaxJitterMs:      150,
		BreakerThreshold: 10,
		BreakerTimeout:   60,
	}
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

const propsPayload = `{
  "id": "evt-1",
  "bookmakers": [
    {"key": "draftkings", "markets": []},
    {"key": "prizepicks", "last_update": "2025-09-21T15:00:00Z", "markets": [
      {"key": "player_pass_yds", "outcomes": [
        {"name": "Over", "description": "Bryce Young", "price": -115, "point": 250.5},
        {"name": "Under", "description": "Bryce Young", "price": -105, "point": 250.5},
        {"name": "Over", "description": "Michael Penix Jr.", "price": -110, "point": 230.5}
      ]}
    ]}
  ]
}`

func TestFetchEventProps_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sports/americanfootball_nfl/events/evt-1/odds", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("apiKey"))
		assert.Equal(t, "prizepicks", q.Get("bookmakers"))
		assert.Equal(t, "american", q.Get("oddsFormat"))
		assert.Equal(t, "player_pass_yds,player_rush_yds", q.Get("markets"))
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(propsPayload))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	a := New(testConfig(srv.URL), testutil.NewLogger(), WithSleeper(rec.sleep), WithJitter(func(int) int { return 0 }))
	parsed, raw, err := a.FetchEventProps(context.Background(), "evt-1", []string{"player_pass_yds", "player_rush_yds"})
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 500 * time.Millisecond}, rec.delays)

	require.Len(t, parsed.Markets, 1)
	require.Len(t, parsed.Markets[0].Lines, 1)
	assert.Equal(t, "Bryce Young", parsed.Markets[0].Lines[0].Player)
	assert.Equal(t, "evt-1", parsed.EventID)
}

func TestFetchEventProps_ClientErrorFailsFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	a := New(testConfig(srv.URL), testutil.NewLogger(), WithSleeper(rec.sleep))
	_, _, err := a.FetchEventProps(context.Background(), "evt-1", []string{"player_pass_yds"})
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.False(t, se.Temporary())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, rec.delays)
}

func TestFetchEventProps_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	a := New(testConfig(srv.URL), testutil.NewLogger(), WithSleeper(rec.sleep), WithJitter(func(max int) int { return max }))
	_, _, err := a.FetchEventProps(context.Background(), "evt-1", []string{"player_pass_yds"})
	require.Error(t, err)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
	require.Len(t, rec.delays, 4)
	// 250, 500, 1000, 2000 毫秒，各加 150 抖动
	assert.Equal(t, 2150*time.Millisecond, rec.delays[3])
	for _, d := range rec.delays {
		assert.LessOrEqual(t, d, 2150*time.Millisecond)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0
	cfg.BreakerThreshold = 2
	a := New(cfg, testutil.NewLogger())

	for i := 0; i < 2; i++ {
		_, err := a.ListEvents(context.Background())
		require.Error(t, err)
	}
	_, err := a.ListEvents(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sports/americanfootball_nfl/events", r.URL.Path)
		assert.Equal(t, "iso", r.URL.Query().Get("dateFormat"))
		assert.Equal(t, "us_dfs", r.URL.Query().Get("regions"))
		_, _ = w.Write([]byte(`[{"id":"e1","home_team":"Carolina Panthers","away_team":"Atlanta Falcons","commence_time":"2025-09-21T17:05:00Z"}]`))
	}))
	defer srv.Close()

	a := New(testConfig(srv.URL), testutil.NewLogger())
	events, err := a.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Carolina Panthers", events[0].HomeTeam)
	assert.Equal(t, time.Date(2025, 9, 21, 17, 5, 0, 0, time.UTC), events[0].CommenceTime.UTC())
}

func TestListEvents_DataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"e2","home_team":"Las Vegas Raiders","away_team":"Denver Broncos","commence_time":"2025-09-21T20:25:00Z"}]}`))
	}))
	defer srv.Close()

	a := New(testConfig(srv.URL), testutil.NewLogger())
	events, err := a.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e2", events[0].ID)
	assert.Equal(t, "Las Vegas Raiders", events[0].HomeTeam)
}

func TestParseEvents(t *testing.T) {
	events, err := ParseEvents([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = ParseEvents([]byte(`{"events":[{"id":"e3"}]}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e3", events[0].ID)

	_, err = ParseEvents([]byte(`"oops"`))
	assert.Error(t, err)
}

func TestStatusErrorTemporary(t *testing.T) {
	cases := map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusNotImplemented:      true,
		http.StatusBadGateway:          true,
		http.StatusInsufficientStorage: true,
		520:                            true,
		522:                            true,
		524:                            true,
		http.StatusBadRequest:          false,
		http.StatusUnauthorized:        false,
		http.StatusNotFound:            false,
		422:                            false,
		600:                            false,
	}
	for status, want := range cases {
		assert.Equal(t, want, (&StatusError{Op: "event_odds", Status: status}).Temporary(), status)
	}
}

func TestFetchEventProps_RetriesCDNStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(522)
			return
		}
		_, _ = w.Write([]byte(propsPayload))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	a := New(testConfig(srv.URL), testutil.NewLogger(), WithSleeper(rec.sleep), WithJitter(func(int) int { return 0 }))
	parsed, _, err := a.FetchEventProps(context.Background(), "evt-1", []string{"player_pass_yds"})
	require.NoError(t, err)
	require.Len(t, parsed.Markets, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Len(t, rec.delays, 1)
}

func TestBackoffCapped(t *testing.T) {
	a := New(testConfig("http://unused"), testutil.NewLogger(), WithJitter(func(int) int { return 0 }))
	assert.Equal(t, 250*time.Millisecond, a.backoff(0))
	assert.Equal(t, 1000*time.Millisecond, a.backoff(2))
	assert.Equal(t, 2000*time.Millisecond, a.backoff(3))
	assert.Equal(t, 2000*time.Millisecond, a.backoff(10))
}
