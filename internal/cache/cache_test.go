package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"PropSync/internal/config"
	"PropSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CacheTestSuite struct {
	suite.Suite
	store *GormStore
	clock time.Time
	cache *Cache
	calls int
}

func (s *CacheTestSuite) SetupTest() {
	s.store = NewGormStore(testutil.NewDB(s.T()))
	s.clock = time.Date(2025, 9, 20, 10, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return s.clock }
	s.cache = New(s.store, time.Hour, testutil.NewLogger())
	s.calls = 0
}

func (s *CacheTestSuite) fetch(payload string) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) {
		s.calls++
		return []byte(payload), nil
	}
}

func (s *CacheTestSuite) TestLoad_HitWithinTTL() {
	key := Key{DataType: TypeRoster, Season: 2025}
	ctx := context.Background()

	data, err := s.cache.Load(ctx, key, false, s.fetch(`[1]`))
	s.Require().NoError(err)
	s.JSONEq(`[1]`, string(data))

	data, err = s.cache.Load(ctx, key, false, s.fetch(`[2]`))
	s.Require().NoError(err)
	s.JSONEq(`[1]`, string(data))
	s.Equal(1, s.calls)
}

func (s *CacheTestSuite) TestLoad_ExpiredOrRefreshRefetches() {
	key := Key{DataType: TypeRoster, Season: 2025, Week: 3}
	ctx := context.Background()

	_, err := s.cache.Load(ctx, key, false, s.fetch(`[1]`))
	s.Require().NoError(err)

	s.clock = s.clock.Add(2 * time.Hour)
	data, err := s.cache.Load(ctx, key, false, s.fetch(`[2]`))
	s.Require().NoError(err)
	s.JSONEq(`[2]`, string(data))

	data, err = s.cache.Load(ctx, key, true, s.fetch(`[3]`))
	s.Require().NoError(err)
	s.JSONEq(`[3]`, string(data))
	s.Equal(3, s.calls)
}

func (s *CacheTestSuite) TestLoad_FetchErrorNotCached() {
	key := Key{DataType: TypeRoster, Season: 2024}
	_, err := s.cache.Load(context.Background(), key, false, func(context.Context) ([]byte, error) {
		return nil, errors.New("feed down")
	})
	s.Error(err)
	_, ok, err := s.store.Get(context.Background(), key)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CacheTestSuite) TestInvalidate() {
	key := Key{DataType: TypeRoster, Season: 2025}
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, key, []byte(`[]`), time.Hour))
	s.Require().NoError(s.cache.Invalidate(ctx, key))
	_, ok, err := s.store.Get(ctx, key)
	s.Require().NoError(err)
	s.False(ok)
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "propsync:roster:2025:0", Key{DataType: TypeRoster, Season: 2025}.String())
}

func TestNewStore_DefaultsToDatabase(t *testing.T) {
	store := NewStore(&config.CacheConfig{Backend: "db"}, testutil.NewDB(t), testutil.NewLogger())
	_, ok := store.(*GormStore)
	require.True(t, ok)

	redisStore := NewStore(&config.CacheConfig{Backend: "redis", RedisAddr: "localhost:0"}, nil, testutil.NewLogger())
	_, ok = redisStore.(*RedisStore)
	assert.True(t, ok)
}
